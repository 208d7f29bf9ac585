// Command mailscout resolves a company name to a domain, crawls its likely
// contact pages and prints the discovered email addresses as JSON.
//
// Usage:
//
//	mailscout [flags] COMPANY [COUNTRY]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/prospectops/mailscout/internal/finder"
	"github.com/prospectops/mailscout/internal/fingerprint"
	"github.com/prospectops/mailscout/internal/guesser"
	"github.com/prospectops/mailscout/internal/metrics"
	"github.com/prospectops/mailscout/internal/report"
	"github.com/prospectops/mailscout/internal/resolver"
	"github.com/prospectops/mailscout/internal/scraper"
	"github.com/prospectops/mailscout/internal/serp"
	"github.com/prospectops/mailscout/internal/storage"
	"github.com/prospectops/mailscout/internal/storage/csvbackend"
	"github.com/prospectops/mailscout/internal/storage/jsonbackend"
	"github.com/prospectops/mailscout/internal/storage/sqlite"
	"github.com/prospectops/mailscout/internal/verifier"
	"github.com/prospectops/mailscout/pkg/politeness"
	"github.com/prospectops/mailscout/pkg/proxy"
)

func main() {
	if err := run(); err != nil {
		color.Red("✗ %v", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env next to the binary is a convenience, not a requirement.
	_ = godotenv.Load()

	var (
		verify       = flag.Bool("verify", false, "narrow results to addresses whose domain has MX records")
		timeout      = flag.Duration("timeout", 60*time.Second, "overall lookup deadline")
		fetchTimeout = flag.Duration("fetch-timeout", 10*time.Second, "per-page fetch timeout")
		concurrency  = flag.Int("concurrency", 0, "parallel page fetches (0 = one per contact path)")
		fp           = flag.String("fingerprint", string(fingerprint.ProfileChrome), "TLS fingerprint profile: chrome, firefox, safari, go, random")
		proxyFile    = flag.String("proxies", "", "file with one proxy URL per line")
		auditPath    = flag.String("audit", os.Getenv("MAILSCOUT_AUDIT"), "fetch audit sink, format by extension: .csv, .ndjson/.jsonl, anything else sqlite (empty = off)")
		robots       = flag.Bool("robots", false, "respect robots.txt when crawling")
		sitemap      = flag.Bool("sitemap", false, "mine sitemap.xml for extra contact pages")
		minScore     = flag.Float64("min-score", 0.4, "similarity acceptance threshold for search results")
		reportFormat = flag.String("report", "", "write a crawl summary to stderr: text or json")
		metricsPort  = flag.Int("metrics-port", 0, "expose Prometheus metrics on this port (0 = off)")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: mailscout [flags] COMPANY [COUNTRY]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	company := flag.Arg(0)
	country := ""
	if flag.NArg() > 1 {
		country = strings.Join(flag.Args()[1:], " ")
	}

	logger := newLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	if *metricsPort > 0 {
		srv := metrics.Start(*metricsPort)
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
			defer stop()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	var proxies *proxy.Pool
	if *proxyFile != "" {
		proxies = proxy.NewPool(proxy.Config{})
		if err := proxies.LoadFile(*proxyFile); err != nil {
			return fmt.Errorf("load proxies: %w", err)
		}
	}

	var backend storage.Backend
	if *auditPath != "" {
		b, err := openAuditBackend(*auditPath)
		if err != nil {
			return fmt.Errorf("open audit sink: %w", err)
		}
		defer b.Close()
		backend = b
	} else if *reportFormat != "" {
		// The report reads fetch results back, so it needs a sink even
		// when no audit file was asked for.
		backend = storage.NewMemory()
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:     *fetchTimeout,
		ProxyPool:   proxies,
		Fingerprint: fingerprint.Profile(*fp),
		Delayer:     politeness.NewDelayer(50*time.Millisecond, 300*time.Millisecond),
	})
	if err != nil {
		return fmt.Errorf("setup fetcher: %w", err)
	}

	search, err := serp.NewDuckDuckGo(serp.DuckDuckGoConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("setup search: %w", err)
	}

	crawler := scraper.NewCrawler(scraper.CrawlConfig{
		Concurrency:     *concurrency,
		Backend:         backend,
		RespectRobots:   *robots,
		UserAgent:       "mailscout",
		DiscoverSitemap: *sitemap,
	}, fetcher, logger)

	verif := verifier.New(verifier.Config{Logger: logger})

	f, err := finder.New(finder.Config{
		Resolver: resolver.New(resolver.Config{
			Search:   search,
			Prober:   fetcher,
			MinScore: *minScore,
			Logger:   logger,
		}),
		Crawler:  crawler,
		Guesser:  guesser.New(guesser.Config{Verifier: verif, Logger: logger}),
		Verifier: verif,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	color.Cyan("🔍 Looking up %s", company)
	res, err := f.FindCompanyEmails(ctx, finder.Request{
		Company: company,
		Country: country,
		Verify:  *verify,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))

	switch {
	case !res.Success:
		color.Red("✗ Lookup failed: %s", res.Error)
	case len(res.Emails) == 0:
		color.Yellow("⚠ No addresses found for %s", res.Domain)
	default:
		color.Green("✓ Found %d address(es) at %s", len(res.Emails), res.Domain)
	}

	if *reportFormat != "" && backend != nil {
		if err := writeReport(ctx, *reportFormat, res, backend); err != nil {
			return err
		}
	}
	return nil
}

// openAuditBackend picks the audit sink by file extension.
func openAuditBackend(path string) (storage.Backend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return csvbackend.New(path)
	case ".ndjson", ".jsonl", ".json":
		return jsonbackend.New(path)
	default:
		return sqlite.New(path)
	}
}

func writeReport(ctx context.Context, format string, res finder.Result, backend storage.Backend) error {
	fetches, err := backend.Query(ctx, storage.Filter{})
	if err != nil {
		return fmt.Errorf("query fetch results: %w", err)
	}
	summary := report.Summarize(res, fetches)

	switch format {
	case "json":
		return report.WriteJSON(os.Stderr, summary)
	case "text":
		return report.WriteText(os.Stderr, summary)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("MAILSCOUT_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
