// Package instance implements validated single and bulk CRUD over the
// physical table backing one schema, routing reads through the condition
// and order-by compilers.
package instance

import (
	"encoding/json"
	"fmt"
	"time"

	"objectstore/internal/condition"
)

// Instance is one row materialized from a schema-owned table.
type Instance struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	SchemaID   string         `json:"schemaId"`
	SchemaName string         `json:"schemaName"`
	Properties map[string]any `json:"properties"`
}

// SimpleFilter is the equality-only filter shape accepted at the
// library/HTTP boundary; it reduces to a FilterRequest before compilation.
type SimpleFilter struct {
	SchemaName string
	Filters    map[string]any
	Limit      int
	Offset     int
}

// FilterRequest is the general filter shape: an optional condition tree
// plus sort and pagination parameters.
type FilterRequest struct {
	Condition *condition.Expression
	SortBy    []string
	SortOrder []string
	Limit     int
	Offset    int
}

// ReduceSimpleFilter turns a SimpleFilter's flat equality map into a
// FilterRequest: an empty map yields no condition, a single entry yields
// Eq(field, value), multiple entries yield And(Eq(k, v) for each). Map
// iteration order is not guaranteed and is not part of the contract.
func ReduceSimpleFilter(f SimpleFilter) FilterRequest {
	req := FilterRequest{Limit: f.Limit, Offset: f.Offset}
	switch len(f.Filters) {
	case 0:
		return req
	case 1:
		for k, v := range f.Filters {
			expr := condition.Eq(k, v)
			req.Condition = &expr
		}
		return req
	default:
		exprs := make([]condition.Expression, 0, len(f.Filters))
		for k, v := range f.Filters {
			exprs = append(exprs, condition.Eq(k, v))
		}
		expr := condition.And(exprs...)
		req.Condition = &expr
		return req
	}
}

// ParseProperties decodes raw into a JSON object, failing if the top-level
// value is not an object (array, scalar, or null at the top level).
func ParseProperties(raw json.RawMessage) (map[string]any, error) {
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("properties must be a JSON object: %w", err)
	}
	if props == nil {
		return nil, fmt.Errorf("properties must be a JSON object, got null")
	}
	return props, nil
}
