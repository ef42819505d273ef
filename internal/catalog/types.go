package catalog

import (
	"time"

	"objectstore/internal/coltype"
	"objectstore/internal/ddl"
)

// ColumnDefinition is a user-declared column as carried on the wire and in
// the metadata table's columns JSONB.
type ColumnDefinition struct {
	Name     string             `json:"name"`
	Type     coltype.ColumnType `json:"type"`
	Nullable bool               `json:"nullable"`
	Unique   bool               `json:"unique"`
	Default  string             `json:"defaultValue,omitempty"`
}

// IndexDefinition is a user-requested secondary index.
type IndexDefinition struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// Schema is the catalog's materialized view of one registered object type.
type Schema struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	TableName   string             `json:"tableName"`
	Columns     []ColumnDefinition `json:"columns"`
	Indexes     []IndexDefinition  `json:"indexes,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// CreateRequest is the input to CreateSchema.
type CreateRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	TableName   string             `json:"tableName"`
	Columns     []ColumnDefinition `json:"columns"`
	Indexes     []IndexDefinition  `json:"indexes,omitempty"`
}

// UpdateRequest carries only the fields present in an update_schema call;
// nil pointers/slices mean "leave unchanged". Name and TableName are
// immutable once a schema is created.
type UpdateRequest struct {
	Description *string
	Columns     []ColumnDefinition
	Indexes     []IndexDefinition
}

// ColumnNames returns the declared user column names in order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

func toDDLColumns(cols []ColumnDefinition) []ddl.Column {
	out := make([]ddl.Column, len(cols))
	for i, c := range cols {
		out[i] = ddl.Column{
			Name:     c.Name,
			Type:     c.Type,
			Nullable: c.Nullable,
			Unique:   c.Unique,
			Default:  c.Default,
		}
	}
	return out
}

func toDDLIndexes(idxs []IndexDefinition) []ddl.Index {
	out := make([]ddl.Index, len(idxs))
	for i, idx := range idxs {
		out[i] = ddl.Index{Name: idx.Name, Columns: idx.Columns, Unique: idx.Unique}
	}
	return out
}
