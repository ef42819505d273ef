package condition

import (
	"encoding/json"
	"fmt"
	"strings"

	"objectstore/internal/sanitize"
)

// Compile recursively translates expr into a parameterized SQL fragment and
// its ordered bind parameters, threading offset (the next free $n
// placeholder) through the recursion. offset is read and advanced in place;
// callers pass the starting placeholder number (normally 1).
//
// No partial fragment is ever returned alongside an error: on failure the
// returned string is empty and params is nil.
func Compile(expr Expression, offset *int) (string, []any, error) {
	if expr.isValue {
		field, err := expr.value.FieldName()
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s IS NOT NULL", sanitize.Quote(field)), nil, nil
	}

	switch expr.Op {
	case "AND", "OR":
		if len(expr.Arguments) == 0 {
			return "", nil, fmt.Errorf("%s operation requires at least one condition", expr.Op)
		}
		var clauses []string
		var params []any
		for _, arg := range expr.Arguments {
			if !arg.IsExpression {
				return "", nil, fmt.Errorf("%s operation requires nested conditions as arguments", expr.Op)
			}
			clause, subParams, err := Compile(arg.Expr, offset)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, "("+clause+")")
			params = append(params, subParams...)
		}
		joiner := " AND "
		if expr.Op == "OR" {
			joiner = " OR "
		}
		return strings.Join(clauses, joiner), params, nil

	case "NOT":
		if len(expr.Arguments) != 1 || !expr.Arguments[0].IsExpression {
			return "", nil, fmt.Errorf("NOT operation requires exactly one nested condition argument")
		}
		clause, params, err := Compile(expr.Arguments[0].Expr, offset)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("NOT (%s)", clause), params, nil

	case "EQ", "NE", "GT", "LT", "GTE", "LTE":
		field, value, err := twoArgs(expr)
		if err != nil {
			return "", nil, err
		}
		quoted := sanitize.Quote(field)
		operator := map[string]string{"EQ": "=", "NE": "!=", "GT": ">", "LT": "<", "GTE": ">=", "LTE": "<="}[expr.Op]

		if value.Value == nil {
			switch expr.Op {
			case "EQ":
				return fmt.Sprintf("%s IS NULL", quoted), nil, nil
			case "NE":
				return fmt.Sprintf("%s IS NOT NULL", quoted), nil, nil
			default:
				return "", nil, fmt.Errorf("%s operation with NULL value is not supported", expr.Op)
			}
		}

		strValue, err := scalarToText(value.Value)
		if err != nil {
			return "", nil, err
		}
		clause := fmt.Sprintf("%s::text %s $%d::text", quoted, operator, *offset)
		*offset++
		return clause, []any{strValue}, nil

	case "CONTAINS", "STARTSWITH", "ENDSWITH":
		field, value, err := twoArgs(expr)
		if err != nil {
			return "", nil, err
		}
		str, ok := value.Value.(string)
		if !ok {
			return "", nil, fmt.Errorf("%s operation requires a string value", expr.Op)
		}
		var pattern string
		switch expr.Op {
		case "CONTAINS":
			pattern = "%" + str + "%"
		case "STARTSWITH":
			pattern = str + "%"
		case "ENDSWITH":
			pattern = "%" + str
		}
		clause := fmt.Sprintf("%s::text LIKE $%d::text", sanitize.Quote(field), *offset)
		*offset++
		return clause, []any{pattern}, nil

	case "IN", "NOTIN":
		field, value, err := twoArgs(expr)
		if err != nil {
			return "", nil, err
		}
		arr, ok := value.Value.([]any)
		if !ok {
			return "", nil, fmt.Errorf("%s operation requires an array value", expr.Op)
		}
		payload, err := json.Marshal(arr)
		if err != nil {
			return "", nil, fmt.Errorf("encode %s array: %w", expr.Op, err)
		}
		quoted := sanitize.Quote(field)
		frag := fmt.Sprintf("%s::text = ANY(SELECT jsonb_array_elements_text($%d::jsonb))", quoted, *offset)
		*offset++
		if expr.Op == "NOTIN" {
			frag = "NOT (" + frag + ")"
		}
		return frag, []any{string(payload)}, nil

	case "ISEMPTY":
		field, err := oneFieldArg(expr)
		if err != nil {
			return "", nil, err
		}
		quoted := sanitize.Quote(field)
		return fmt.Sprintf("(%s IS NULL OR %s::text = '')", quoted, quoted), nil, nil

	case "ISNOTEMPTY":
		field, err := oneFieldArg(expr)
		if err != nil {
			return "", nil, err
		}
		quoted := sanitize.Quote(field)
		return fmt.Sprintf("(%s IS NOT NULL AND %s::text != '')", quoted, quoted), nil, nil

	case "ISDEFINED":
		field, err := oneFieldArg(expr)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s IS NOT NULL", sanitize.Quote(field)), nil, nil

	case "LENGTH":
		return "", nil, fmt.Errorf("LENGTH is only legal as an operand of a comparison, not standalone")

	default:
		return "", nil, fmt.Errorf("unsupported operation: %s", expr.Op)
	}
}

func twoArgs(expr Expression) (field string, value MappingValue, err error) {
	if len(expr.Arguments) != 2 {
		return "", MappingValue{}, fmt.Errorf("%s operation requires exactly 2 arguments", expr.Op)
	}
	fieldArg, valueArg := expr.Arguments[0], expr.Arguments[1]
	if fieldArg.IsExpression || fieldArg.Value.Kind != Reference {
		return "", MappingValue{}, fmt.Errorf("%s operation's first argument must be a field name", expr.Op)
	}
	field, err = fieldArg.Value.FieldName()
	if err != nil {
		return "", MappingValue{}, err
	}
	if valueArg.IsExpression {
		return "", MappingValue{}, fmt.Errorf("%s operation's second argument must be a value", expr.Op)
	}
	if valueArg.Value.Kind == Composite {
		return "", MappingValue{}, fmt.Errorf("composite values are not supported in filters")
	}
	return field, valueArg.Value, nil
}

func oneFieldArg(expr Expression) (string, error) {
	if len(expr.Arguments) != 1 {
		return "", fmt.Errorf("%s operation requires exactly 1 argument", expr.Op)
	}
	arg := expr.Arguments[0]
	if arg.IsExpression || arg.Value.Kind != Reference {
		return "", fmt.Errorf("%s operation's argument must be a field name", expr.Op)
	}
	return arg.Value.FieldName()
}

// scalarToText renders a JSON scalar the way the wire value is bound: the
// caller always serializes to a string (the compiler casts both sides of
// every comparison to text).
func scalarToText(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return formatNumber(val), nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("encode comparison value: %w", err)
		}
		return string(b), nil
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
