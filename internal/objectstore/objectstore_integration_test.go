//go:build integration

package objectstore_test

import (
	"context"
	"testing"

	"objectstore/internal/catalog"
	"objectstore/internal/coltype"
	"objectstore/internal/condition"
	"objectstore/internal/config"
	"objectstore/internal/instance"
	"objectstore/internal/objectstore"
	"objectstore/internal/testhelper"
)

func testStore(t *testing.T) *objectstore.ObjectStore {
	t.Helper()
	db := testhelper.StartDatabase(t)
	t.Cleanup(db.Close)

	cfg := &config.Config{
		DatabaseURL:   db.URL,
		MetadataTable: "__schema",
		SoftDelete:    true,
		AutoColumns:   config.AutoColumnsConfig{ID: true, CreatedAt: true, UpdatedAt: true},
		PoolSize:      4,
	}
	store, err := objectstore.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build object store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestCreateRetrieveFilter(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	schema, err := store.CreateSchema(ctx, catalog.CreateRequest{
		Name:      "products_it",
		TableName: "products_it",
		Columns: []catalog.ColumnDefinition{
			{Name: "sku", Type: coltype.ColumnType{Kind: coltype.String}, Unique: true},
			{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}},
			{Name: "price", Type: coltype.NewDecimal(10, 2), Nullable: true},
			{Name: "in_stock", Type: coltype.ColumnType{Kind: coltype.Boolean}, Default: "true"},
		},
	})
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	defer store.DeleteSchema(ctx, schema.Name)

	id, err := store.CreateInstance(ctx, "products_it", map[string]any{
		"sku": "W1", "name": "Widget", "price": 29.99, "in_stock": true,
	})
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}

	eq := condition.Eq("in_stock", true)
	rows, total, err := store.FilterInstances(ctx, "products_it", instance.FilterRequest{
		Condition: &eq,
	})
	if err != nil {
		t.Fatalf("filter instances: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("total = %d, len(rows) = %d, want 1/1", total, len(rows))
	}
	if rows[0].Properties["sku"] != "W1" {
		t.Errorf("sku = %v, want W1", rows[0].Properties["sku"])
	}
	if rows[0].ID != id {
		t.Errorf("id = %q, want %q", rows[0].ID, id)
	}
}

func TestBulkUpsertSurvivesOneRow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	schema, err := store.CreateSchema(ctx, catalog.CreateRequest{
		Name:      "items_it",
		TableName: "items_it",
		Columns: []catalog.ColumnDefinition{
			{Name: "sku", Type: coltype.ColumnType{Kind: coltype.String}, Unique: true},
			{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}},
		},
	})
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	defer store.DeleteSchema(ctx, schema.Name)

	n, err := store.UpsertInstances(ctx, "items_it", []map[string]any{
		{"sku": "A", "name": "x"},
		{"sku": "A", "name": "y"},
	}, []string{"sku"})
	if err != nil {
		t.Fatalf("upsert instances: %v", err)
	}
	if n < 1 {
		t.Errorf("rows_affected = %d, want >= 1", n)
	}

	eq := condition.Eq("sku", "A")
	rows, total, err := store.FilterInstances(ctx, "items_it", instance.FilterRequest{Condition: &eq})
	if err != nil {
		t.Fatalf("filter instances: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1 surviving row", total)
	}
	if rows[0].Properties["name"] != "y" {
		t.Errorf("name = %v, want y", rows[0].Properties["name"])
	}
}
