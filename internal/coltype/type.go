// Package coltype defines the closed set of column types the store
// understands, their physical PostgreSQL representation, and the
// JSON-value coercion rules used both by DDL generation and by instance
// validation/binding.
package coltype

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the closed set of column type variants. There is no
// extension point: adding a physical type means adding a Kind here and
// threading it through SQLType/ValidateValue.
type Kind int

const (
	String Kind = iota
	Integer
	Decimal
	Boolean
	Timestamp
	JSON
	Enum
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Decimal:
		return "decimal"
	case Boolean:
		return "boolean"
	case Timestamp:
		return "timestamp"
	case JSON:
		return "json"
	case Enum:
		return "enum"
	default:
		return "unknown"
	}
}

// DefaultPrecision and DefaultScale apply to a Decimal column whose
// Precision/Scale were left at their zero value.
const (
	DefaultPrecision = 19
	DefaultScale     = 4
)

// ColumnType is the closed variant: Kind selects which of the remaining
// fields are meaningful (Precision/Scale for Decimal, Values for Enum).
type ColumnType struct {
	Kind      Kind
	Precision int      // Decimal only
	Scale     int      // Decimal only
	Values    []string // Enum only, ordered, distinct
}

// NewDecimal builds a Decimal ColumnType, applying the spec defaults when
// precision or scale are zero.
func NewDecimal(precision, scale int) ColumnType {
	if precision == 0 {
		precision = DefaultPrecision
	}
	if scale == 0 {
		scale = DefaultScale
	}
	return ColumnType{Kind: Decimal, Precision: precision, Scale: scale}
}

// NewEnum builds an Enum ColumnType over the given ordered, distinct values.
func NewEnum(values []string) ColumnType {
	return ColumnType{Kind: Enum, Values: values}
}

// kindFromName is the inverse of Kind.String, used when decoding the wire
// and catalog-storage representation of a ColumnType.
func kindFromName(name string) (Kind, error) {
	switch name {
	case "string":
		return String, nil
	case "integer":
		return Integer, nil
	case "decimal":
		return Decimal, nil
	case "boolean":
		return Boolean, nil
	case "timestamp":
		return Timestamp, nil
	case "json":
		return JSON, nil
	case "enum":
		return Enum, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", name)
	}
}

// MarshalJSON renders a ColumnType the way it is both persisted in the
// catalog's columns JSONB and accepted on the schema-create/update wire:
// {"type":"decimal","precision":10,"scale":2} or {"type":"enum","values":[...]}.
func (ct ColumnType) MarshalJSON() ([]byte, error) {
	aux := struct {
		Type      string   `json:"type"`
		Precision int      `json:"precision,omitempty"`
		Scale     int      `json:"scale,omitempty"`
		Values    []string `json:"values,omitempty"`
	}{
		Type:      ct.Kind.String(),
		Precision: ct.Precision,
		Scale:     ct.Scale,
		Values:    ct.Values,
	}
	return json.Marshal(aux)
}

// UnmarshalJSON is the inverse of MarshalJSON, applying the Decimal default
// precision/scale when they are omitted.
func (ct *ColumnType) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type      string   `json:"type"`
		Precision int      `json:"precision"`
		Scale     int      `json:"scale"`
		Values    []string `json:"values"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	kind, err := kindFromName(aux.Type)
	if err != nil {
		return err
	}
	*ct = ColumnType{Kind: kind, Precision: aux.Precision, Scale: aux.Scale, Values: aux.Values}
	if kind == Decimal {
		if ct.Precision == 0 {
			ct.Precision = DefaultPrecision
		}
		if ct.Scale == 0 {
			ct.Scale = DefaultScale
		}
	}
	return nil
}

// SQLType returns the physical PostgreSQL type fragment for this column,
// including the CHECK constraint for Enum. columnName must already be the
// raw (unquoted) identifier; SQLType quotes it itself for the CHECK clause.
func SQLType(ct ColumnType, columnName string, quote func(string) string) (string, error) {
	switch ct.Kind {
	case String:
		return "TEXT", nil
	case Integer:
		return "BIGINT", nil
	case Decimal:
		precision, scale := ct.Precision, ct.Scale
		if precision == 0 {
			precision = DefaultPrecision
		}
		if scale == 0 {
			scale = DefaultScale
		}
		return fmt.Sprintf("NUMERIC(%d,%d)", precision, scale), nil
	case Boolean:
		return "BOOLEAN", nil
	case Timestamp:
		return "TIMESTAMPTZ", nil
	case JSON:
		return "JSONB", nil
	case Enum:
		if len(ct.Values) == 0 {
			return "", fmt.Errorf("enum column %q declares no values", columnName)
		}
		quotedLiterals := make([]string, len(ct.Values))
		for i, v := range ct.Values {
			quotedLiterals[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		return fmt.Sprintf("TEXT CHECK (%s IN (%s))", quote(columnName), strings.Join(quotedLiterals, ",")), nil
	default:
		return "", fmt.Errorf("unknown column type kind %v", ct.Kind)
	}
}

// ValidateValue checks that v, a JSON-decoded value (nil, bool, string,
// float64, map[string]any, or []any per encoding/json), is acceptable for
// ct. A JSON null is always accepted here; nullability is enforced by the
// caller using the column's Nullable flag.
func ValidateValue(ct ColumnType, v any) error {
	if v == nil {
		return nil
	}
	switch ct.Kind {
	case String:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected a string value, got %T", v)
		}
		return nil
	case Integer:
		switch val := v.(type) {
		case float64:
			if val != float64(int64(val)) {
				return fmt.Errorf("expected an integer value, got non-integral number %v", val)
			}
			return nil
		case string:
			if _, err := strconv.ParseInt(val, 10, 64); err != nil {
				return fmt.Errorf("expected an integer value, %q does not parse as one", val)
			}
			return nil
		default:
			return fmt.Errorf("expected an integer value, got %T", v)
		}
	case Decimal:
		switch val := v.(type) {
		case float64:
			return nil
		case string:
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				return fmt.Errorf("expected a decimal value, %q does not parse as one", val)
			}
			return nil
		default:
			_ = val
			return fmt.Errorf("expected a decimal value, got %T", v)
		}
	case Boolean:
		switch val := v.(type) {
		case bool:
			return nil
		case string:
			switch strings.ToLower(val) {
			case "true", "false", "1", "0", "yes", "no":
				return nil
			default:
				return fmt.Errorf("expected a boolean value, %q is not recognized", val)
			}
		default:
			return fmt.Errorf("expected a boolean value, got %T", v)
		}
	case Timestamp:
		val, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected an RFC 3339 timestamp string, got %T", v)
		}
		if _, err := ParseTimestamp(val); err != nil {
			return fmt.Errorf("expected an RFC 3339 timestamp, got %q: %w", val, err)
		}
		return nil
	case JSON:
		return nil
	case Enum:
		val, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected an enum string value, got %T", v)
		}
		for _, allowed := range ct.Values {
			if val == allowed {
				return nil
			}
		}
		return fmt.Errorf("value %q is not one of the declared enum values %v", val, ct.Values)
	default:
		return fmt.Errorf("unknown column type kind %v", ct.Kind)
	}
}

// CoerceBoolean normalizes a JSON bool or one of the accepted boolean
// strings into a Go bool. Callers should call ValidateValue first.
func CoerceBoolean(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
	}
	return false, fmt.Errorf("cannot coerce %v (%T) to boolean", v, v)
}

// CoerceInteger normalizes a JSON number or numeric string into an int64.
func CoerceInteger(v any) (int64, error) {
	switch val := v.(type) {
	case float64:
		return int64(val), nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, fmt.Errorf("cannot coerce %v (%T) to integer", v, v)
}

// CoerceDecimal normalizes a JSON number or numeric string into a float64.
func CoerceDecimal(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		return strconv.ParseFloat(val, 64)
	}
	return 0, fmt.Errorf("cannot coerce %v (%T) to decimal", v, v)
}
