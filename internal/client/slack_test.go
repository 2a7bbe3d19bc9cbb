package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSlackClient_Notify_PostsTextPayload(t *testing.T) {
	t.Parallel()

	var (
		gotMethod      string
		gotContentType string
		gotBody        []byte
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewSlackClient(srv.URL)
	if err := c.Notify(context.Background(), "New Contact Verified!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected application/json, got %s", gotContentType)
	}

	var payload map[string]string
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v body=%q", err, string(gotBody))
	}
	if payload["text"] != "New Contact Verified!" {
		t.Fatalf("unexpected text payload: %q", payload["text"])
	}
}

func TestSlackClient_Notify_ErrorsOnNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewSlackClient(srv.URL)
	if err := c.Notify(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestSlackClient_NilClientIsSafe(t *testing.T) {
	t.Parallel()

	c := NewSlackClient("")
	if c != nil {
		t.Fatal("expected nil client for empty URL")
	}
	if err := c.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("nil client must be a no-op, got %v", err)
	}
}
