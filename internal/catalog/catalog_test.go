package catalog

import (
	"testing"

	"objectstore/internal/coltype"
)

func TestValidateColumnsRejectsEmpty(t *testing.T) {
	c := &Catalog{}
	if err := c.validateColumns(nil); err == nil {
		t.Fatal("expected error for no columns")
	}
}

func TestValidateColumnsRejectsDuplicateNames(t *testing.T) {
	c := &Catalog{}
	cols := []ColumnDefinition{
		{Name: "sku", Type: coltype.ColumnType{Kind: coltype.String}},
		{Name: "sku", Type: coltype.ColumnType{Kind: coltype.Integer}},
	}
	if err := c.validateColumns(cols); err == nil {
		t.Fatal("expected error for duplicate column name")
	}
}

func TestValidateColumnsRejectsReservedAutoColumn(t *testing.T) {
	c := &Catalog{autoID: true}
	cols := []ColumnDefinition{{Name: "created_at", Type: coltype.ColumnType{Kind: coltype.Timestamp}}}
	if err := c.validateColumns(cols); err == nil {
		t.Fatal("expected error for column colliding with an auto-managed name")
	}
}

func TestValidateColumnsAcceptsWellFormed(t *testing.T) {
	c := &Catalog{autoID: true}
	cols := []ColumnDefinition{
		{Name: "sku", Type: coltype.ColumnType{Kind: coltype.String}, Unique: true},
		{Name: "price", Type: coltype.NewDecimal(10, 2)},
	}
	if err := c.validateColumns(cols); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSchemaColumnNames(t *testing.T) {
	s := &Schema{Columns: []ColumnDefinition{{Name: "a"}, {Name: "b"}}}
	names := s.ColumnNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("names = %v", names)
	}
}

func TestJoinSets(t *testing.T) {
	got := joinSets([]string{`"updated_at" = NOW()`, `"description" = $2`})
	want := `"updated_at" = NOW(), "description" = $2`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
