package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prospectops/mailscout/internal/fingerprint"
)

func newRobotsFixture(t *testing.T, robotsBody string, robotsStatus int) (*RobotsAuditor, *httptest.Server, *atomic.Int64) {
	t.Helper()
	var robotsFetches atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsFetches.Add(1)
			w.WriteHeader(robotsStatus)
			_, _ = w.Write([]byte(robotsBody))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)

	fetcher, err := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo})
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return NewRobotsAuditor(fetcher, nil), ts, &robotsFetches
}

func TestRobots_DisallowHonored(t *testing.T) {
	auditor, ts, _ := newRobotsFixture(t, "User-agent: *\nDisallow: /private\n", 200)

	allowed, err := auditor.IsAllowed(context.Background(), ts.URL+"/private/page", "*")
	if err != nil {
		t.Fatalf("IsAllowed: %v", err)
	}
	if allowed {
		t.Error("disallowed path reported as allowed")
	}

	allowed, err = auditor.IsAllowed(context.Background(), ts.URL+"/contact", "*")
	if err != nil {
		t.Fatalf("IsAllowed: %v", err)
	}
	if !allowed {
		t.Error("allowed path reported as disallowed")
	}
}

func TestRobots_MissingFileAllowsAll(t *testing.T) {
	auditor, ts, _ := newRobotsFixture(t, "not found", 404)

	allowed, err := auditor.IsAllowed(context.Background(), ts.URL+"/anything", "*")
	if err != nil {
		t.Fatalf("IsAllowed: %v", err)
	}
	if !allowed {
		t.Error("missing robots.txt must allow crawling")
	}
}

func TestRobots_CachedPerHost(t *testing.T) {
	auditor, ts, fetches := newRobotsFixture(t, "User-agent: *\nDisallow:\n", 200)

	for i := 0; i < 5; i++ {
		if _, err := auditor.IsAllowed(context.Background(), ts.URL+"/page", "*"); err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
	}
	if fetches.Load() != 1 {
		t.Errorf("robots.txt fetched %d times, expected 1", fetches.Load())
	}
}

func TestRobots_SpecificAgentGroup(t *testing.T) {
	body := "User-agent: badbot\nDisallow: /\n\nUser-agent: *\nDisallow:\n"
	auditor, ts, _ := newRobotsFixture(t, body, 200)

	allowed, _ := auditor.IsAllowed(context.Background(), ts.URL+"/page", "badbot")
	if allowed {
		t.Error("badbot should be blocked everywhere")
	}
	allowed, _ = auditor.IsAllowed(context.Background(), ts.URL+"/page", "goodbot")
	if !allowed {
		t.Error("other agents should be allowed")
	}
}
