package apperr

import (
	"errors"
	"testing"
)

func TestNewSetsStatusAndCode(t *testing.T) {
	err := New(SchemaNotFound, "schema \"products\" not found", nil)
	if err.Code != "SCHEMA_NOT_FOUND" {
		t.Errorf("Code = %q", err.Code)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d", err.Status)
	}
	if err.Error() != `schema "products" not found` {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNewWithDetails(t *testing.T) {
	cause := errors.New("duplicate key value")
	err := New(Conflict, "schema already exists", cause)
	if err.Details != cause.Error() {
		t.Errorf("Details = %q", err.Details)
	}
	if err.Error() != `schema already exists: duplicate key value` {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Connection, cause)
	if err.Status != 503 {
		t.Errorf("Status = %d", err.Status)
	}
	if err.Message != cause.Error() {
		t.Errorf("Message = %q", err.Message)
	}
}
