package bypass

import (
	"net/http"
	"testing"

	"github.com/prospectops/mailscout/internal/storage"
)

func TestAnalyze_Cloudflare(t *testing.T) {
	cases := []struct {
		name string
		res  *storage.FetchResult
	}{
		{
			name: "server header",
			res: &storage.FetchResult{
				StatusCode: http.StatusForbidden,
				Headers:    map[string][]string{"Server": {"cloudflare"}},
			},
		},
		{
			name: "turnstile body",
			res: &storage.FetchResult{
				StatusCode: http.StatusServiceUnavailable,
				Body:       []byte(`<div class="cf-turnstile"></div>`),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !Analyze(tc.res, DefaultDetectors()) {
				t.Fatal("expected detection")
			}
			if tc.res.BlockedBy != "Cloudflare" {
				t.Errorf("expected Cloudflare, got %q", tc.res.BlockedBy)
			}
		})
	}
}

func TestAnalyze_Akamai(t *testing.T) {
	res := &storage.FetchResult{
		StatusCode: http.StatusForbidden,
		Body:       []byte("Access Denied. Reference #18.1234"),
	}
	if !Analyze(res, DefaultDetectors()) || res.BlockedBy != "Akamai" {
		t.Errorf("expected Akamai detection, got %q", res.BlockedBy)
	}
}

func TestAnalyze_DataDomeHeader(t *testing.T) {
	res := &storage.FetchResult{
		StatusCode: http.StatusForbidden,
		Headers:    map[string][]string{"X-DataDome": {"protected"}},
	}
	if !Analyze(res, DefaultDetectors()) || res.BlockedBy != "DataDome" {
		t.Errorf("expected DataDome detection, got %q", res.BlockedBy)
	}
}

func TestAnalyze_CleanPage(t *testing.T) {
	res := &storage.FetchResult{
		StatusCode: http.StatusOK,
		Body:       []byte("<html>contact us at info@acme.com</html>"),
	}
	if Analyze(res, DefaultDetectors()) {
		t.Fatal("clean 200 page must not be flagged")
	}
	if res.Blocked || res.BlockedBy != "" {
		t.Error("result should be reset to unblocked")
	}
}

func TestAnalyze_ForbiddenWithoutVendorSignature(t *testing.T) {
	// A plain 403 (e.g. auth-walled page) is not a bot challenge.
	res := &storage.FetchResult{StatusCode: http.StatusForbidden, Body: []byte("Forbidden")}
	if Analyze(res, DefaultDetectors()) {
		t.Error("plain 403 without signatures should not be flagged")
	}
}

func TestAnalyze_NilResult(t *testing.T) {
	if Analyze(nil, DefaultDetectors()) {
		t.Error("nil result must not be flagged")
	}
}
