package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondErrorHTML(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorHTML(rec, http.StatusInternalServerError, "boom", "<em>boom</em>")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "boom" || body["html"] != "<em>boom</em>" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestDecodeJSONAllowsEmptyBody(t *testing.T) {
	var payload struct {
		SessionID string `json:"session_id"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	if err := DecodeJSON(httptest.NewRecorder(), req, &payload); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{"))
	if err := DecodeJSON(httptest.NewRecorder(), req, &payload); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestSSEWriterSendsNamedEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := NewSSEWriter(rec)
	if err != nil {
		t.Fatalf("NewSSEWriter: %v", err)
	}
	if err := sse.Send("delta", map[string]string{"content": "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if got := rec.Body.String(); got != "event: delta\ndata: {\"content\":\"hi\"}\n\n" {
		t.Fatalf("unexpected frame %q", got)
	}
}
