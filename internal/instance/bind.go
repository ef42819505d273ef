package instance

import (
	"encoding/json"
	"fmt"

	"objectstore/internal/coltype"
)

// bindValue converts a JSON-decoded property value into the Go value bound
// to the statement parameter for ct, plus the cast suffix (if any) the
// placeholder needs in the generated SQL. Callers must have already run
// coltype.ValidateValue.
func bindValue(ct coltype.ColumnType, v any) (bound any, castSuffix string, err error) {
	if v == nil {
		return nil, "", nil
	}
	switch ct.Kind {
	case coltype.String, coltype.Enum:
		s, ok := v.(string)
		if !ok {
			return nil, "", fmt.Errorf("expected string, got %T", v)
		}
		return s, "", nil
	case coltype.Integer:
		n, err := coltype.CoerceInteger(v)
		if err != nil {
			return nil, "", err
		}
		return n, "", nil
	case coltype.Decimal:
		f, err := coltype.CoerceDecimal(v)
		if err != nil {
			return nil, "", err
		}
		return f, "", nil
	case coltype.Boolean:
		b, err := coltype.CoerceBoolean(v)
		if err != nil {
			return nil, "", err
		}
		return b, "", nil
	case coltype.Timestamp:
		s, ok := v.(string)
		if !ok {
			return nil, "", fmt.Errorf("expected RFC 3339 string, got %T", v)
		}
		t, err := coltype.ParseTimestamp(s)
		if err != nil {
			return nil, "", err
		}
		return t, "::timestamptz", nil
	case coltype.JSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("encode json value: %w", err)
		}
		return string(raw), "::jsonb", nil
	default:
		return nil, "", fmt.Errorf("unknown column type kind %v", ct.Kind)
	}
}
