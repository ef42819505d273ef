package coltype

import (
	"encoding/json"
	"reflect"
	"testing"
)

func quoteForTest(s string) string { return `"` + s + `"` }

func TestSQLTypeMapping(t *testing.T) {
	cases := []struct {
		ct   ColumnType
		want string
	}{
		{ColumnType{Kind: String}, "TEXT"},
		{ColumnType{Kind: Integer}, "BIGINT"},
		{NewDecimal(10, 2), "NUMERIC(10,2)"},
		{NewDecimal(0, 0), "NUMERIC(19,4)"},
		{ColumnType{Kind: Boolean}, "BOOLEAN"},
		{ColumnType{Kind: Timestamp}, "TIMESTAMPTZ"},
		{ColumnType{Kind: JSON}, "JSONB"},
	}
	for _, c := range cases {
		got, err := SQLType(c.ct, "col", quoteForTest)
		if err != nil {
			t.Fatalf("SQLType(%v) error: %v", c.ct.Kind, err)
		}
		if got != c.want {
			t.Errorf("SQLType(%v) = %q, want %q", c.ct.Kind, got, c.want)
		}
	}
}

func TestSQLTypeEnum(t *testing.T) {
	ct := NewEnum([]string{"a", "b's", "c"})
	got, err := SQLType(ct, "status", quoteForTest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `TEXT CHECK ("status" IN ('a','b''s','c'))`
	if got != want {
		t.Errorf("SQLType(enum) = %q, want %q", got, want)
	}
}

func TestSQLTypeEnumEmptyValues(t *testing.T) {
	ct := NewEnum(nil)
	if _, err := SQLType(ct, "status", quoteForTest); err == nil {
		t.Fatal("expected error for empty enum values")
	}
}

func TestValidateValueNullAlwaysOK(t *testing.T) {
	for _, kind := range []Kind{String, Integer, Decimal, Boolean, Timestamp, JSON, Enum} {
		if err := ValidateValue(ColumnType{Kind: kind}, nil); err != nil {
			t.Errorf("ValidateValue(%v, nil) unexpected error: %v", kind, err)
		}
	}
}

func TestValidateValueInteger(t *testing.T) {
	ct := ColumnType{Kind: Integer}
	if err := ValidateValue(ct, float64(42)); err != nil {
		t.Errorf("unexpected error for int-valued float64: %v", err)
	}
	if err := ValidateValue(ct, "42"); err != nil {
		t.Errorf("unexpected error for numeric string: %v", err)
	}
	if err := ValidateValue(ct, "foo"); err == nil {
		t.Error("expected error for non-numeric string")
	}
	if err := ValidateValue(ct, float64(1.5)); err == nil {
		t.Error("expected error for non-integral float")
	}
}

func TestValidateValueDecimal(t *testing.T) {
	ct := NewDecimal(10, 2)
	if err := ValidateValue(ct, float64(29.99)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateValue(ct, "29.99"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateValue(ct, "abc"); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestValidateValueBoolean(t *testing.T) {
	ct := ColumnType{Kind: Boolean}
	for _, ok := range []any{true, false, "true", "FALSE", "1", "0", "yes", "No"} {
		if err := ValidateValue(ct, ok); err != nil {
			t.Errorf("ValidateValue(%v) unexpected error: %v", ok, err)
		}
	}
	if err := ValidateValue(ct, "maybe"); err == nil {
		t.Error("expected error for unrecognized boolean string")
	}
}

func TestValidateValueTimestamp(t *testing.T) {
	ct := ColumnType{Kind: Timestamp}
	if err := ValidateValue(ct, "2024-01-01T00:00:00Z"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateValue(ct, "not-a-date"); err == nil {
		t.Error("expected error for invalid timestamp")
	}
}

func TestValidateValueEnum(t *testing.T) {
	ct := NewEnum([]string{"active", "inactive"})
	if err := ValidateValue(ct, "active"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateValue(ct, "deleted"); err == nil {
		t.Error("expected error for value outside enum set")
	}
}

func TestValidateValueJSONAcceptsAnything(t *testing.T) {
	ct := ColumnType{Kind: JSON}
	for _, v := range []any{"x", float64(1), true, map[string]any{"a": 1}, []any{1, 2}} {
		if err := ValidateValue(ct, v); err != nil {
			t.Errorf("ValidateValue(json, %v) unexpected error: %v", v, err)
		}
	}
}

func TestColumnTypeJSONRoundTrip(t *testing.T) {
	original := NewDecimal(10, 2)
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ColumnType
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestColumnTypeJSONDecimalDefaults(t *testing.T) {
	var ct ColumnType
	if err := json.Unmarshal([]byte(`{"type":"decimal"}`), &ct); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ct.Precision != DefaultPrecision || ct.Scale != DefaultScale {
		t.Errorf("ct = %+v", ct)
	}
}

func TestColumnTypeJSONEnum(t *testing.T) {
	var ct ColumnType
	if err := json.Unmarshal([]byte(`{"type":"enum","values":["a","b"]}`), &ct); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ct.Kind != Enum || len(ct.Values) != 2 {
		t.Errorf("ct = %+v", ct)
	}
}

func TestColumnTypeJSONUnknownType(t *testing.T) {
	var ct ColumnType
	if err := json.Unmarshal([]byte(`{"type":"bogus"}`), &ct); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestCoerceHelpers(t *testing.T) {
	if b, err := CoerceBoolean("yes"); err != nil || !b {
		t.Errorf("CoerceBoolean(yes) = %v, %v", b, err)
	}
	if n, err := CoerceInteger("42"); err != nil || n != 42 {
		t.Errorf("CoerceInteger(42) = %v, %v", n, err)
	}
	if f, err := CoerceDecimal("29.99"); err != nil || f != 29.99 {
		t.Errorf("CoerceDecimal(29.99) = %v, %v", f, err)
	}
}
