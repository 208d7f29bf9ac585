// Package verifier checks whether an address can actually receive mail:
// an MX lookup to see the domain handles mail at all, and an SMTP RCPT probe
// to see the mailbox exists. Probing also detects catch-all servers, whose
// acceptance of any recipient makes a positive answer meaningless.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prospectops/mailscout/internal/metrics"
)

// Outcome is the result of probing one address.
type Outcome struct {
	Address  string `json:"address"`
	Exists   bool   `json:"exists"`
	CatchAll bool   `json:"is_catch_all"`
}

// LookupMXFunc resolves MX records for a domain. Injectable for tests.
type LookupMXFunc func(ctx context.Context, domain string) ([]*net.MX, error)

// Config configures a Verifier. Zero values get defaults.
type Config struct {
	// HeloDomain identifies us in the SMTP HELO.
	HeloDomain string
	// FromAddress is the fixed probe sender identity for MAIL FROM.
	FromAddress string
	// Port is the SMTP port probed on each MX host. Overridden in tests.
	Port int
	// DialTimeout bounds the TCP connect and each SMTP exchange.
	DialTimeout time.Duration
	// LookupTimeout bounds DNS MX resolution.
	LookupTimeout time.Duration
	// MaxMXHosts caps how many MX hosts are tried per probe.
	MaxMXHosts int
	// LookupMX overrides DNS resolution, mainly for tests.
	LookupMX LookupMXFunc
	Logger   *slog.Logger
}

// Verifier performs MX and SMTP-level verification. Safe for concurrent use.
type Verifier struct {
	cfg Config
}

// New creates a Verifier.
func New(cfg Config) *Verifier {
	if cfg.HeloDomain == "" {
		cfg.HeloDomain = "mailscout.local"
	}
	if cfg.FromAddress == "" {
		cfg.FromAddress = "verify@mailscout.local"
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.LookupTimeout == 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	if cfg.MaxMXHosts == 0 {
		cfg.MaxMXHosts = 2
	}
	if cfg.LookupMX == nil {
		resolver := &net.Resolver{}
		cfg.LookupMX = func(ctx context.Context, domain string) ([]*net.MX, error) {
			return resolver.LookupMX(ctx, domain)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Verifier{cfg: cfg}
}

// HasMX reports whether domain has at least one resolvable MX record. Any
// resolution failure counts as no.
func (v *Verifier) HasMX(ctx context.Context, domain string) bool {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.LookupTimeout)
	defer cancel()

	records, err := v.cfg.LookupMX(ctx, domain)
	return err == nil && len(records) > 0
}

// HasMXForAddress is HasMX applied to the domain part of an address.
func (v *Verifier) HasMXForAddress(ctx context.Context, email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return false
	}
	return v.HasMX(ctx, email[at+1:])
}

// Probe checks whether email's mailbox exists via SMTP RCPT, detecting
// catch-all servers along the way. A domain with no MX records is never
// dialed. All socket and protocol errors are absorbed as non-confirmation.
func (v *Verifier) Probe(ctx context.Context, email string) Outcome {
	out := Outcome{Address: email}

	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return out
	}
	domain := email[at+1:]

	lookupCtx, cancel := context.WithTimeout(ctx, v.cfg.LookupTimeout)
	records, err := v.cfg.LookupMX(lookupCtx, domain)
	cancel()
	if err != nil || len(records) == 0 {
		return out
	}

	// A local part no real site would provision; if the server accepts this
	// AND the target, acceptance carries no signal.
	randomAddr := randomLocal() + "@" + domain

	hosts := records
	if len(hosts) > v.cfg.MaxMXHosts {
		hosts = hosts[:v.cfg.MaxMXHosts]
	}

	for _, mx := range hosts {
		if ctx.Err() != nil {
			return out
		}

		randomOK, targetOK, err := v.probeHost(ctx, mx.Host, randomAddr, email)
		if err != nil {
			v.cfg.Logger.Debug("smtp probe failed", "host", mx.Host, "err", err)
			metrics.SMTPProbesTotal.WithLabelValues("error").Inc()
			continue
		}

		if randomOK && targetOK {
			out.CatchAll = true
			metrics.SMTPProbesTotal.WithLabelValues("catch_all").Inc()
			metrics.CatchAllDomains.Inc()
			return out
		}
		if targetOK {
			out.Exists = true
			metrics.SMTPProbesTotal.WithLabelValues("exists").Inc()
			return out
		}
	}

	metrics.SMTPProbesTotal.WithLabelValues("missing").Inc()
	return out
}

// probeHost runs one SMTP session against host, issuing RCPT for the random
// address first and the target second.
func (v *Verifier) probeHost(ctx context.Context, host, randomAddr, target string) (randomOK, targetOK bool, err error) {
	addr := fmt.Sprintf("%s:%d", strings.TrimSuffix(host, "."), v.cfg.Port)

	dialer := &net.Dialer{Timeout: v.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, false, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(v.cfg.DialTimeout))

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return false, false, fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.Hello(v.cfg.HeloDomain); err != nil {
		return false, false, fmt.Errorf("helo: %w", err)
	}
	if err := client.Mail(v.cfg.FromAddress); err != nil {
		return false, false, fmt.Errorf("mail from: %w", err)
	}

	// Rcpt returns nil only on the SMTP accept codes (250/251).
	randomOK = client.Rcpt(randomAddr) == nil
	targetOK = client.Rcpt(target) == nil

	_ = client.Quit()
	return randomOK, targetOK, nil
}

func randomLocal() string {
	return "mx-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:20]
}
