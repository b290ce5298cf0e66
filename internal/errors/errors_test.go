package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
)

func TestNew(t *testing.T) {
	e := New(400, "bad request")
	if e.Code != 400 {
		t.Errorf("Code = %d, want 400", e.Code)
	}
	if e.Message != "bad request" {
		t.Errorf("Message = %q, want %q", e.Message, "bad request")
	}
	if e.Error() != "bad request" {
		t.Errorf("Error() = %q, want %q", e.Error(), "bad request")
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	e := Wrap(inner, 503, "backend error")

	if e.Code != 503 {
		t.Errorf("Code = %d, want 503", e.Code)
	}

	want := "backend error: connection refused"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestUnwrap(t *testing.T) {
	inner := fmt.Errorf("root cause")
	e := Wrap(inner, 500, "wrapped")

	if e.Unwrap() != inner {
		t.Error("Unwrap should return the underlying error")
	}

	// errors.Is should work through the chain
	if !errors.Is(e, inner) {
		t.Error("errors.Is should find the underlying error")
	}
}

func TestUnwrapNil(t *testing.T) {
	e := New(404, "not found")
	if e.Unwrap() != nil {
		t.Error("Unwrap on a non-wrapped error should return nil")
	}
}

func TestWithDetails(t *testing.T) {
	e := ErrBadRequest.WithDetails("unknown cache category")

	if e.Details != "unknown cache category" {
		t.Errorf("Details = %q", e.Details)
	}
	if e.Code != 400 {
		t.Errorf("Code = %d, want 400", e.Code)
	}
	// The shared sentinel must stay untouched.
	if ErrBadRequest.Details != "" {
		t.Error("WithDetails mutated the sentinel")
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrNotFound.WithDetails("no such category").WriteJSON(rec)

	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Code != 404 || body.Message != "Not Found" || body.Details != "no such category" {
		t.Errorf("unexpected body: %+v", body)
	}
}
