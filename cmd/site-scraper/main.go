package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"site-scraper/pkg/config"
	"site-scraper/pkg/fetch"
	"site-scraper/pkg/logging"
	"site-scraper/pkg/models"
	"site-scraper/pkg/scrape"
	"site-scraper/pkg/sitemap"
	"site-scraper/pkg/storage"
	"site-scraper/pkg/web"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scrape":
		runScrape(os.Args[2:])
	case "sitemaps":
		runSitemaps(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "history":
		runHistory(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("site-scraper %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`site-scraper - Offline website mirroring tool

Usage:
  site-scraper <command> [options]

Commands:
  scrape      Mirror a site into a browsable offline copy
  sitemaps    Discover and expand sitemaps without downloading pages
  serve       Start the web control surface
  history     List or inspect archived crawl sessions
  validate    Validate configuration file
  version     Show version info

Run 'site-scraper <command> -h' for command-specific help.`)
}

// loadValidatedConfig loads the config file (falling back to defaults
// when it does not exist), applies defaults, and prints warnings.
func loadValidatedConfig(path string, stderr io.Writer) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = &config.Config{}
		} else {
			return nil, err
		}
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintf(stderr, "WARN: %s\n", w)
	}
	return cfg, nil
}

// buildCrawler assembles the full pipeline from a validated config.
func buildCrawler(cfg *config.Config, logger *logrus.Logger, sink logging.Sink, withArchive bool) (*scrape.Crawler, *storage.Archive, error) {
	log := logrus.NewEntry(logger)

	client := fetch.NewClient(cfg.HTTPClientSettings, logger)
	fetcher := fetch.NewHTTPFetcher(client, cfg.UserAgent, cfg.FetchTimeout, logger)

	store, err := storage.NewFSStore(cfg.OutputDir, log.WithField("component", "store"))
	if err != nil {
		return nil, nil, err
	}

	var archive *storage.Archive
	if withArchive {
		archive, err = storage.OpenArchive(cfg.StateDir, log.WithField("component", "archive"))
		if err != nil {
			return nil, nil, err
		}
	}

	crawler := scrape.NewCrawler(
		fetcher,
		sitemap.NewDiscoverer(fetcher, log.WithField("component", "discover")),
		sitemap.NewExpander(fetcher, nil, log.WithField("component", "expand")),
		store,
		archive,
		cfg,
		log.WithField("component", "crawler"),
		sink,
	)
	return crawler, archive, nil
}

func runScrape(args []string) {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	seedURL := fs.String("url", "", "Seed URL of the site to mirror (required)")
	maxPages := fs.Int("max-pages", -1, "Page cap for this run (overrides config, 0 = unlimited)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-scraper scrape [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  site-scraper scrape -url https://example.com\n")
		fmt.Fprintf(os.Stderr, "  site-scraper scrape -url https://example.com -max-pages 50\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *seedURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -url is required")
		fs.Usage()
		os.Exit(1)
	}

	logger := logging.New(*logLevel)
	cfg, err := loadValidatedConfig(*configFile, os.Stderr)
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}
	pageCap := cfg.MaxPages
	if *maxPages >= 0 {
		pageCap = *maxPages
	}

	crawler, archive, err := buildCrawler(cfg, logger, logging.NopSink{}, true)
	if err != nil {
		logger.Fatalf("Startup error: %v", err)
	}
	defer func() {
		if archive != nil {
			archive.Close()
		}
	}()

	manager := scrape.NewManager(crawler, logrus.NewEntry(logger).WithField("component", "manager"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := manager.Start(ctx, *seedURL, pageCap)
	if err != nil {
		logger.Fatalf("Could not start session: %v", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("Interrupt received, stopping session...")
		session.Cancel()
		<-session.Done()
	case <-session.Done():
	}

	downloaded, failed := session.Counts()
	logger.WithFields(logrus.Fields{
		"state":      session.State(),
		"downloaded": downloaded,
		"failed":     failed,
		"output":     cfg.OutputDir,
	}).Info("Scrape finished")
	if session.State() == models.SessionStateFailed {
		os.Exit(1)
	}
}

func runSitemaps(args []string) {
	fs := flag.NewFlagSet("sitemaps", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	seedURL := fs.String("url", "", "Domain root to inspect (required)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-scraper sitemaps [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *seedURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -url is required")
		fs.Usage()
		os.Exit(1)
	}

	logger := logging.New(*logLevel)
	cfg, err := loadValidatedConfig(*configFile, os.Stderr)
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}

	log := logrus.NewEntry(logger)
	client := fetch.NewClient(cfg.HTTPClientSettings, logger)
	fetcher := fetch.NewHTTPFetcher(client, cfg.UserAgent, cfg.FetchTimeout, logger)

	rawStore, err := storage.NewFSStore(cfg.SitemapDir, log.WithField("component", "store"))
	if err != nil {
		logger.Fatalf("Startup error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	discoverer := sitemap.NewDiscoverer(fetcher, log.WithField("component", "discover"))
	roots := discoverer.Discover(ctx, *seedURL)
	if len(roots) == 0 {
		logger.Warn("No sitemaps found")
	}

	expander := sitemap.NewExpander(fetcher, rawStore, log.WithField("component", "expand"))
	result := expander.Expand(ctx, roots...)

	rep := sitemap.BuildSitemapReport(result)
	if err := sitemap.WriteSitemapReport(rawStore, rep); err != nil {
		logger.Fatalf("Could not write sitemap report: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"sitemaps": rep.SitemapCount,
		"urls":     len(rep.URLs),
		"failures": len(result.Failures),
		"output":   cfg.SitemapDir,
	}).Info("Sitemap inspection finished")
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	addr := fs.String("addr", "", "Listen address (overrides config)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-scraper serve [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := logging.New(*logLevel)
	cfg, err := loadValidatedConfig(*configFile, os.Stderr)
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	broadcaster := logging.NewBroadcaster()
	crawler, archive, err := buildCrawler(cfg, logger, broadcaster, true)
	if err != nil {
		logger.Fatalf("Startup error: %v", err)
	}
	defer archive.Close()

	log := logrus.NewEntry(logger)
	manager := scrape.NewManager(crawler, log.WithField("component", "manager"))
	handler := web.NewServer(manager, broadcaster, archive, cfg.OutputDir, log.WithField("component", "web"))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.ListenAddr).Info("Control surface listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if active := manager.Active(); active != nil && !active.State().Terminal() {
			active.Cancel()
			select {
			case <-active.Done():
			case <-shutdownCtx.Done():
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	sessionID := fs.String("session", "", "Show the full report for one session")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-scraper history [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := logging.New(*logLevel)
	cfg, err := loadValidatedConfig(*configFile, os.Stderr)
	if err != nil {
		logger.Fatalf("Config error: %v", err)
	}

	archive, err := storage.OpenArchive(cfg.StateDir, logrus.NewEntry(logger).WithField("component", "archive"))
	if err != nil {
		logger.Fatalf("Could not open archive: %v", err)
	}
	defer archive.Close()

	if *sessionID != "" {
		entry, err := archive.Get(*sessionID)
		if err != nil {
			logger.Fatalf("Lookup failed: %v", err)
		}
		fmt.Printf("Session:    %s\nSeed URL:   %s\nState:      %s\nFinished:   %s\n",
			entry.SessionID, entry.SeedURL, entry.State, entry.FinishedAt.Format(time.RFC3339))
		fmt.Printf("Discovered: %d\nDownloaded: %d\nFailed:     %d\n",
			entry.Report.TotalDiscovered, entry.Report.TotalDownloaded, entry.Report.TotalFailed)
		for _, f := range entry.Report.FailedURLs {
			fmt.Printf("  FAILED %s: %s\n", f.URL, f.Error)
		}
		return
	}

	entries, err := archive.List()
	if err != nil {
		logger.Fatalf("Listing failed: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No archived sessions.")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %-10s  %3d ok %3d failed  %s\n",
			e.FinishedAt.Format("2006-01-02 15:04:05"), e.State,
			e.Report.TotalDownloaded, e.Report.TotalFailed, e.SeedURL)
		fmt.Printf("    id: %s\n", e.SessionID)
	}
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: site-scraper validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Printf("WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration valid.")
}
