package fingerprint

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTransport_KnownProfilesConstruct(t *testing.T) {
	for _, p := range []Profile{ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom} {
		t.Run(string(p), func(t *testing.T) {
			rt, err := Transport(p, nil)
			if err != nil {
				t.Fatalf("unexpected error for %s: %v", p, err)
			}
			if _, ok := rt.(*http.Transport); !ok {
				t.Fatalf("expected *http.Transport, got %T", rt)
			}
		})
	}
}

func TestTransport_GoProfileRoundTrip(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	rt, err := Transport(ProfileGo, nil)
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	// httptest uses a self-signed cert
	rt.(*http.Transport).TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	client := &http.Client{Transport: rt}
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestTransport_EmptyProfileDefaultsToGo(t *testing.T) {
	rt, err := Transport("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := rt.(*http.Transport)
	if tr.DialTLSContext != nil {
		t.Error("empty profile should not install a uTLS dialer")
	}
}

func TestTransport_UnknownProfile(t *testing.T) {
	if _, err := Transport(Profile("netscape"), nil); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}
