package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("path = %s, want /healthz", r.URL.Path)
		}
		json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestUpsertSendsAuthAndBody(t *testing.T) {
	var gotAuth, gotDevice, gotPath, gotMethod string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotDevice = r.Header.Get("X-Device-ID")
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key", "device-1")
	err := c.Upsert(context.Background(), "tasks", Row{"id": "t1", "title": "hi"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotDevice != "device-1" {
		t.Errorf("device header = %q", gotDevice)
	}
	if gotMethod != "POST" || gotPath != "/v1/tables/tasks/rows" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotBody["id"] != "t1" || gotBody["title"] != "hi" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			json.NewEncoder(w).Encode(map[string]string{"code": "err", "message": "nope"})
		}))

		c := New(srv.URL, "k", "")
		err := c.Delete(context.Background(), "tasks", "t1")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
		srv.Close()
	}
}

func TestRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_id"); got != "u1" {
			t.Errorf("user_id = %q", got)
		}
		json.NewEncoder(w).Encode([]Row{
			{"id": "a", "title": "one"},
			{"id": "b", "title": "two"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "")
	rows, err := c.Rows(context.Background(), "tasks", "u1")
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 2 || rows[0]["id"] != "a" {
		t.Errorf("rows = %v", rows)
	}
}

func TestContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(srv.URL, "k", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Upsert(ctx, "tasks", Row{"id": "t1"}); err == nil {
		t.Fatal("cancelled context must abort the call")
	}
}
