package api

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/swarmdeck/core/internal/apierr"
)

func TestWriteJSONSetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 201, map[string]string{"ok": "true"})

	if rec.Code != 201 {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["ok"] != "true" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestWriteJSONNilBodyWritesNoPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 204, nil)
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
}

func TestWriteErrorMapsAPIErrorKindToStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apierr.NotFound("project", "p1"))

	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "project not found: p1" {
		t.Errorf("unexpected error message: %q", body.Error)
	}
}

func TestWriteErrorTreatsUnknownErrorAsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("boom"))

	if rec.Code != 500 {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "internal error" {
		t.Errorf("unexpected error message: %q, want a generic internal error", body.Error)
	}
}

type fakeValidatable struct {
	Name string `json:"name"`
}

func (f *fakeValidatable) Validate() error {
	if f.Name == "" {
		return apierr.Validation("name is required", map[string]string{"name": "required"})
	}
	return nil
}

func TestDecodeAndValidateRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/x", strings.NewReader(`{"name":"a","extra":"nope"}`))
	var dst fakeValidatable
	if err := decodeAndValidate(r, &dst); err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestDecodeAndValidateRunsValidate(t *testing.T) {
	r := httptest.NewRequest("POST", "/x", strings.NewReader(`{"name":""}`))
	var dst fakeValidatable
	if err := decodeAndValidate(r, &dst); err == nil {
		t.Fatal("expected Validate to reject an empty name")
	}
}

func TestDecodeAndValidateSucceeds(t *testing.T) {
	r := httptest.NewRequest("POST", "/x", strings.NewReader(`{"name":"agent-1"}`))
	var dst fakeValidatable
	if err := decodeAndValidate(r, &dst); err != nil {
		t.Fatalf("expected a valid request to pass, got %v", err)
	}
	if dst.Name != "agent-1" {
		t.Errorf("Name = %q, want agent-1", dst.Name)
	}
}

func TestDecodeJSONRejectsNilBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/x", nil)
	r.Body = nil
	var dst fakeValidatable
	if err := decodeJSON(r, &dst); err == nil {
		t.Fatal("expected an error for a nil body")
	}
}
