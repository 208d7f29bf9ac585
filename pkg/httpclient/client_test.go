package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_FollowsRedirectsUpToMax(t *testing.T) {
	hops := 0
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hops < 5 {
			hops++
			http.Redirect(w, r, ts.URL, http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := New(Config{Timeout: 5 * time.Second, MaxRedirects: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	_, err = c.Do(context.Background(), req)
	if err == nil {
		t.Fatal("expected redirect limit error")
	}
}

func TestClient_NoRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusMovedPermanently)
	}))
	defer ts.Close()

	c, err := New(Config{Timeout: 5 * time.Second, MaxRedirects: -1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	resp, err := c.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("expected 301 passthrough, got %d", resp.StatusCode)
	}
}

func TestClient_NilContext(t *testing.T) {
	c, _ := New(Config{})
	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:0", nil)
	//lint:ignore SA1012 verifying the guard
	if _, err := c.Do(nil, req); err == nil {
		t.Fatal("expected error for nil context")
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	c, _ := New(Config{Timeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := c.Do(ctx, req); err == nil {
		t.Fatal("expected context deadline error")
	}
}
