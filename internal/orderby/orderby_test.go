package orderby

import "testing"

var testColumns = []string{"name", "price", "quantity"}

func TestBuildDefault(t *testing.T) {
	got, err := Build(nil, nil, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "created_at ASC" {
		t.Errorf("got %q", got)
	}
}

func TestBuildEmptyFieldsIsDefault(t *testing.T) {
	got, err := Build([]string{}, nil, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "created_at ASC" {
		t.Errorf("got %q", got)
	}
}

func TestBuildSingleFieldAsc(t *testing.T) {
	got, err := Build([]string{"name"}, []string{"asc"}, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"name" ASC` {
		t.Errorf("got %q", got)
	}
}

func TestBuildSingleFieldDesc(t *testing.T) {
	got, err := Build([]string{"price"}, []string{"desc"}, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"price" DESC` {
		t.Errorf("got %q", got)
	}
}

func TestBuildMultipleFields(t *testing.T) {
	got, err := Build([]string{"name", "price"}, []string{"asc", "desc"}, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"name" ASC, "price" DESC` {
		t.Errorf("got %q", got)
	}
}

func TestBuildSystemFieldCreatedAt(t *testing.T) {
	got, err := Build([]string{"createdAt"}, nil, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"created_at" ASC` {
		t.Errorf("got %q", got)
	}
}

func TestBuildSystemFieldUpdatedAt(t *testing.T) {
	got, err := Build([]string{"updatedAt"}, []string{"desc"}, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"updated_at" DESC` {
		t.Errorf("got %q", got)
	}
}

func TestBuildSystemFieldID(t *testing.T) {
	got, err := Build([]string{"id"}, nil, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"id" ASC` {
		t.Errorf("got %q", got)
	}
}

func TestBuildDefaultOrderIsAsc(t *testing.T) {
	got, err := Build([]string{"name"}, nil, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"name" ASC` {
		t.Errorf("got %q", got)
	}
}

func TestBuildInvalidField(t *testing.T) {
	_, err := Build([]string{"nonexistent_field"}, nil, testColumns)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !contains(err.Error(), "Invalid sort field") && !contains(err.Error(), "invalid sort field") {
		t.Errorf("error = %v", err)
	}
}

func TestBuildInvalidOrder(t *testing.T) {
	_, err := Build([]string{"name"}, []string{"sideways"}, testColumns)
	if err == nil {
		t.Fatal("expected error for invalid sort order")
	}
}

func TestBuildShorterOrderSliceDefaultsRemaining(t *testing.T) {
	got, err := Build([]string{"name", "price"}, []string{"desc"}, testColumns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `"name" DESC, "price" ASC` {
		t.Errorf("got %q", got)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
