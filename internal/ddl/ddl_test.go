package ddl

import (
	"strings"
	"testing"

	"objectstore/internal/coltype"
)

func TestCreateTableAutoManaged(t *testing.T) {
	columns := []Column{
		{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}, Nullable: false},
		{Name: "price", Type: coltype.NewDecimal(10, 2), Nullable: true},
	}
	stmt, err := CreateTable("products", columns, TableOptions{AutoManaged: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(stmt, `CREATE TABLE "products" (`) {
		t.Errorf("stmt = %q", stmt)
	}
	if !strings.Contains(stmt, `"id" VARCHAR(255) PRIMARY KEY DEFAULT gen_random_uuid()`) {
		t.Errorf("missing id column: %q", stmt)
	}
	if !strings.Contains(stmt, `"name" TEXT NOT NULL`) {
		t.Errorf("missing name column: %q", stmt)
	}
	if !strings.Contains(stmt, `"price" NUMERIC(10,2)`) {
		t.Errorf("missing price column: %q", stmt)
	}
	if strings.Contains(stmt, `"price" NUMERIC(10,2) NOT NULL`) {
		t.Errorf("price should be nullable: %q", stmt)
	}
	if !strings.Contains(stmt, `"created_at" TIMESTAMPTZ DEFAULT NOW()`) || !strings.Contains(stmt, `"updated_at" TIMESTAMPTZ DEFAULT NOW()`) {
		t.Errorf("missing timestamp columns: %q", stmt)
	}
}

func TestCreateTableSoftDelete(t *testing.T) {
	columns := []Column{{Name: "title", Type: coltype.ColumnType{Kind: coltype.String}, Nullable: true}}
	stmt, err := CreateTable("posts", columns, TableOptions{AutoManaged: true, SoftDelete: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stmt, `"deleted" BOOLEAN DEFAULT FALSE`) {
		t.Errorf("missing deleted column: %q", stmt)
	}
}

func TestCreateTableColumnWithDefault(t *testing.T) {
	columns := []Column{{Name: "status", Type: coltype.ColumnType{Kind: coltype.String}, Nullable: false, Default: "'active'"}}
	stmt, err := CreateTable("orders", columns, TableOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stmt, `"status" TEXT NOT NULL DEFAULT 'active'`) {
		t.Errorf("stmt = %q", stmt)
	}
}

func TestCreateTableUniqueColumn(t *testing.T) {
	columns := []Column{{Name: "email", Type: coltype.ColumnType{Kind: coltype.String}, Unique: true, Nullable: false}}
	stmt, err := CreateTable("users", columns, TableOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stmt, `"email" TEXT UNIQUE NOT NULL`) {
		t.Errorf("stmt = %q", stmt)
	}
}

func TestCreateTableNoColumnsIsError(t *testing.T) {
	if _, err := CreateTable("empty", nil, TableOptions{}); err == nil {
		t.Fatal("expected error for empty table")
	}
}

func TestDropTable(t *testing.T) {
	got := DropTable("products")
	want := `DROP TABLE IF EXISTS "products" CASCADE`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCreateIndex(t *testing.T) {
	got, err := CreateIndex("products", Index{Name: "by_name", Columns: []string{"name"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `CREATE INDEX "products_by_name" ON "products"("name")`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCreateIndexUnique(t *testing.T) {
	got, err := CreateIndex("products", Index{Name: "by_sku", Columns: []string{"sku"}, Unique: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `CREATE UNIQUE INDEX "products_by_sku" ON "products"("sku")`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCreateIndexMultiColumn(t *testing.T) {
	got, err := CreateIndex("products", Index{Name: "by_cat_name", Columns: []string{"category", "name"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `CREATE INDEX "products_by_cat_name" ON "products"("category", "name")`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCreateIndexNoColumnsIsError(t *testing.T) {
	if _, err := CreateIndex("products", Index{Name: "empty"}); err == nil {
		t.Fatal("expected error for index with no columns")
	}
}

func TestDefaultIndex(t *testing.T) {
	got := DefaultIndex("products", false)
	want := `CREATE INDEX "idx_products_default" ON "products"(created_at DESC)`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultIndexSoftDelete(t *testing.T) {
	got := DefaultIndex("products", true)
	if !strings.HasSuffix(got, "WHERE deleted = FALSE") {
		t.Errorf("got %q", got)
	}
}

func TestDiffAddColumn(t *testing.T) {
	old := []Column{{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}}}
	next := []Column{
		{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}},
		{Name: "price", Type: coltype.NewDecimal(10, 2), Nullable: true},
	}
	stmts, err := Diff("products", old, next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], "ADD COLUMN") {
		t.Errorf("stmts = %v", stmts)
	}
}

func TestDiffDropColumn(t *testing.T) {
	old := []Column{
		{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}},
		{Name: "legacy", Type: coltype.ColumnType{Kind: coltype.String}},
	}
	next := []Column{{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}}}
	stmts, err := Diff("products", old, next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], `DROP COLUMN "legacy"`) {
		t.Errorf("stmts = %v", stmts)
	}
}

func TestDiffTypeChange(t *testing.T) {
	old := []Column{{Name: "price", Type: coltype.ColumnType{Kind: coltype.Integer}}}
	next := []Column{{Name: "price", Type: coltype.NewDecimal(10, 2)}}
	stmts, err := Diff("products", old, next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], "ALTER COLUMN \"price\" TYPE NUMERIC(10,2)") {
		t.Errorf("stmts = %v", stmts)
	}
}

func TestDiffNullableChange(t *testing.T) {
	old := []Column{{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}, Nullable: true}}
	next := []Column{{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}, Nullable: false}}
	stmts, err := Diff("products", old, next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], "SET NOT NULL") {
		t.Errorf("stmts = %v", stmts)
	}
}

func TestDiffDefaultChange(t *testing.T) {
	old := []Column{{Name: "status", Type: coltype.ColumnType{Kind: coltype.String}, Default: "'a'"}}
	next := []Column{{Name: "status", Type: coltype.ColumnType{Kind: coltype.String}, Default: "'b'"}}
	stmts, err := Diff("products", old, next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], "SET DEFAULT 'b'") {
		t.Errorf("stmts = %v", stmts)
	}
}

func TestDiffDefaultDropped(t *testing.T) {
	old := []Column{{Name: "status", Type: coltype.ColumnType{Kind: coltype.String}, Default: "'a'"}}
	next := []Column{{Name: "status", Type: coltype.ColumnType{Kind: coltype.String}}}
	stmts, err := Diff("products", old, next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 || !strings.Contains(stmts[0], "DROP DEFAULT") {
		t.Errorf("stmts = %v", stmts)
	}
}

func TestDiffNoChanges(t *testing.T) {
	cols := []Column{{Name: "name", Type: coltype.ColumnType{Kind: coltype.String}}}
	stmts, err := Diff("products", cols, cols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 0 {
		t.Errorf("stmts = %v, want none", stmts)
	}
}

func TestDiffOrdersAddBeforeDropBeforeAlter(t *testing.T) {
	old := []Column{
		{Name: "legacy", Type: coltype.ColumnType{Kind: coltype.String}},
		{Name: "price", Type: coltype.ColumnType{Kind: coltype.Integer}},
	}
	next := []Column{
		{Name: "price", Type: coltype.NewDecimal(10, 2)},
		{Name: "sku", Type: coltype.ColumnType{Kind: coltype.String}, Nullable: true},
	}
	stmts, err := Diff("products", old, next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 3 {
		t.Fatalf("stmts = %v", stmts)
	}
	if !strings.Contains(stmts[0], "ADD COLUMN") {
		t.Errorf("stmts[0] = %q, want ADD COLUMN first", stmts[0])
	}
	if !strings.Contains(stmts[1], `DROP COLUMN "legacy"`) {
		t.Errorf("stmts[1] = %q, want DROP COLUMN second", stmts[1])
	}
	if !strings.Contains(stmts[2], "ALTER COLUMN \"price\" TYPE") {
		t.Errorf("stmts[2] = %q, want ALTER COLUMN last", stmts[2])
	}
}
