package bulk

import (
	"strings"
	"testing"

	"objectstore/internal/catalog"
	"objectstore/internal/coltype"
)

func testSchema() *catalog.Schema {
	return &catalog.Schema{
		Name:      "products",
		TableName: "products",
		Columns: []catalog.ColumnDefinition{
			{Name: "sku", Type: coltype.ColumnType{Kind: coltype.String}},
			{Name: "price", Type: coltype.NewDecimal(10, 2)},
			{Name: "active", Type: coltype.ColumnType{Kind: coltype.Boolean}, Nullable: true},
		},
	}
}

func TestValidateRowsRejectsMissingRequiredColumn(t *testing.T) {
	schema := testSchema()
	rows := []map[string]any{{"sku": "A1"}}
	if err := validateRows(schema, rows); err == nil {
		t.Fatal("expected error for missing required column price")
	}
}

func TestValidateRowsAcceptsNullableOmitted(t *testing.T) {
	schema := testSchema()
	rows := []map[string]any{{"sku": "A1", "price": 9.99}}
	if err := validateRows(schema, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRowsReportsOffendingIndex(t *testing.T) {
	schema := testSchema()
	rows := []map[string]any{
		{"sku": "A1", "price": 9.99},
		{"sku": "A2", "price": "not-a-number"},
	}
	err := validateRows(schema, rows)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "row 1") {
		t.Errorf("error %q does not identify offending row", err.Error())
	}
}

func TestValidateConflictColsRejectsEmpty(t *testing.T) {
	tr := &Transactor{}
	if err := tr.validateConflictCols(testSchema(), nil); err == nil {
		t.Fatal("expected error for empty conflict columns")
	}
}

func TestValidateConflictColsRejectsUnknownColumn(t *testing.T) {
	tr := &Transactor{}
	if err := tr.validateConflictCols(testSchema(), []string{"nonexistent"}); err == nil {
		t.Fatal("expected error for unknown conflict column")
	}
}

func TestValidateConflictColsAcceptsIDAndDeclaredColumn(t *testing.T) {
	tr := &Transactor{}
	if err := tr.validateConflictCols(testSchema(), []string{"id"}); err != nil {
		t.Fatalf("unexpected error for id: %v", err)
	}
	if err := tr.validateConflictCols(testSchema(), []string{"sku"}); err != nil {
		t.Fatalf("unexpected error for sku: %v", err)
	}
}

func TestBuildConflictClauseDoNothingWhenAllColumnsInConflictSet(t *testing.T) {
	schema := &catalog.Schema{
		Columns: []catalog.ColumnDefinition{{Name: "sku", Type: coltype.ColumnType{Kind: coltype.String}}},
	}
	clause := buildConflictClause(schema, []string{"id", "sku"}, true)
	if !strings.Contains(clause, "DO NOTHING") {
		t.Errorf("expected DO NOTHING clause, got %q", clause)
	}
}

func TestBuildConflictClauseUpdatesNonConflictColumns(t *testing.T) {
	schema := testSchema()
	clause := buildConflictClause(schema, []string{"sku"}, true)
	if !strings.Contains(clause, `"price" = EXCLUDED."price"`) {
		t.Errorf("expected price in SET clause, got %q", clause)
	}
	if strings.Contains(clause, `"sku" = EXCLUDED."sku"`) {
		t.Errorf("conflict column sku must not appear in SET clause: %q", clause)
	}
	if !strings.Contains(clause, `"updated_at" = NOW()`) {
		t.Errorf("expected updated_at touch when autoTimestamps is set: %q", clause)
	}
}

func TestBuildInsertStatementChunkPlaceholders(t *testing.T) {
	schema := testSchema()
	colNames := []string{"id", "sku", "price", "active"}
	chunk := []map[string]any{
		{"sku": "A1", "price": 9.99, "active": true},
		{"sku": "A2", "price": 19.99},
	}
	stmt, args, err := buildInsertStatement(schema, colNames, chunk, nil, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(stmt, `INSERT INTO "products"`) {
		t.Errorf("unexpected statement prefix: %q", stmt)
	}
	if strings.Count(stmt, "VALUES") != 1 {
		t.Errorf("expected a single VALUES clause for the whole chunk: %q", stmt)
	}
	if len(args) != 8 {
		t.Errorf("expected 8 bound args (4 columns x 2 rows), got %d", len(args))
	}
}

func TestRemoveString(t *testing.T) {
	got := removeString([]string{"a", "b", "c"}, "b")
	want := []string{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestJoinStringsEmpty(t *testing.T) {
	if joinStrings(nil, ", ") != "" {
		t.Error("expected empty string for nil input")
	}
}
