package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/palisade/adapter"
	redisnotify "github.com/justapithecus/palisade/adapter/redis"
	"github.com/justapithecus/palisade/adapter/webhook"
	"github.com/justapithecus/palisade/config"
	"github.com/justapithecus/palisade/log"
	"github.com/justapithecus/palisade/metrics"
	"github.com/justapithecus/palisade/pipeline"
	"github.com/justapithecus/palisade/store"
)

// Exit codes for run.
const (
	exitSuccess    = 0
	exitBadInvoke  = 1
	exitStoreError = 2
	exitPipeline   = 3
)

// runCommand returns the run command, the only command that executes work.
func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Replay a log file through the ingest-parse-index pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to YAML config file (flags override config values)",
			},
			&cli.StringFlag{
				Name:  "input",
				Usage: "Path to log file to replay (required)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Parser worker count",
				Value: 4,
			},
			&cli.IntFlag{
				Name:  "rate",
				Usage: "Ingestion rate in lines/sec (0 = unlimited)",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "batch",
				Usage: "Indexer batch size",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "run-time",
				Usage: "Run duration in seconds (0 = single pass over the input)",
				Value: 60,
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to SQLite database (required)",
			},
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "Path to metrics CSV output (required)",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Metrics sampling interval",
				Value: metrics.DefaultSampleInterval,
			},
			&cli.DurationFlag{
				Name:  "alert-window",
				Usage: "Sliding alert window",
				Value: 60 * time.Second,
			},
			&cli.IntFlag{
				Name:  "alert-threshold",
				Usage: "Suspicious events per IP within the window that fire an alert",
				Value: 5,
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON run report to this path",
			},
			&cli.StringFlag{
				Name:  "prom-listen",
				Usage: "Serve Prometheus metrics on this address (e.g. :9123)",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the run summary",
			},
		},
		Action: runAction,
	}
}

// runOptions is the flag/config merge result.
type runOptions struct {
	input      string
	workers    int
	rate       int
	batch      int
	runTime    time.Duration
	dbPath     string
	csvPath    string
	interval   time.Duration
	window     time.Duration
	threshold  int
	reportPath string
	promListen string
	notify     config.NotifyConfig
}

// mergeOptions resolves options from the optional config file and flags.
// Flags the user set explicitly always win; config fills the rest.
func mergeOptions(c *cli.Context) (*runOptions, error) {
	opts := &runOptions{
		input:      c.String("input"),
		workers:    c.Int("workers"),
		rate:       c.Int("rate"),
		batch:      c.Int("batch"),
		runTime:    time.Duration(c.Int("run-time")) * time.Second,
		dbPath:     c.String("db"),
		csvPath:    c.String("metrics"),
		interval:   c.Duration("interval"),
		window:     c.Duration("alert-window"),
		threshold:  c.Int("alert-threshold"),
		reportPath: c.String("report"),
		promListen: c.String("prom-listen"),
	}

	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		if !c.IsSet("input") && cfg.Input != "" {
			opts.input = cfg.Input
		}
		if !c.IsSet("workers") && cfg.Workers > 0 {
			opts.workers = cfg.Workers
		}
		if !c.IsSet("rate") && cfg.Rate > 0 {
			opts.rate = cfg.Rate
		}
		if !c.IsSet("batch") && cfg.Batch > 0 {
			opts.batch = cfg.Batch
		}
		if !c.IsSet("run-time") && cfg.RunTime > 0 {
			opts.runTime = time.Duration(cfg.RunTime) * time.Second
		}
		if !c.IsSet("db") && cfg.DB != "" {
			opts.dbPath = cfg.DB
		}
		if !c.IsSet("metrics") && cfg.Metrics != "" {
			opts.csvPath = cfg.Metrics
		}
		if !c.IsSet("interval") && cfg.Interval.Duration > 0 {
			opts.interval = cfg.Interval.Duration
		}
		if !c.IsSet("alert-window") && cfg.Alerts.Window.Duration > 0 {
			opts.window = cfg.Alerts.Window.Duration
		}
		if !c.IsSet("alert-threshold") && cfg.Alerts.Threshold > 0 {
			opts.threshold = cfg.Alerts.Threshold
		}
		if !c.IsSet("report") && cfg.Report != "" {
			opts.reportPath = cfg.Report
		}
		if !c.IsSet("prom-listen") && cfg.PromListen != "" {
			opts.promListen = cfg.PromListen
		}
		opts.notify = cfg.Notify
	}

	return opts, nil
}

func runAction(c *cli.Context) error {
	opts, err := mergeOptions(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), exitBadInvoke)
	}

	if opts.input == "" {
		return cli.Exit("input file is required (--input)", exitBadInvoke)
	}
	if _, err := os.Stat(opts.input); err != nil {
		return cli.Exit(fmt.Sprintf("input file not found: %s", opts.input), exitBadInvoke)
	}
	if opts.dbPath == "" {
		return cli.Exit("database path is required (--db)", exitBadInvoke)
	}
	if opts.csvPath == "" {
		return cli.Exit("metrics path is required (--metrics)", exitBadInvoke)
	}

	runID := uuid.NewString()
	logger := log.NewLogger(runID)

	// Parent directories for every output are created up front so a long run
	// never fails on its first write.
	for _, path := range []string{opts.dbPath, opts.csvPath, opts.reportPath} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return cli.Exit(fmt.Sprintf("cannot create output directory for %s: %v", path, err), exitStoreError)
		}
	}

	st, err := store.Open(opts.dbPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("open database: %v", err), exitStoreError)
	}
	defer func() { _ = st.Close() }()

	csvFile, err := os.Create(opts.csvPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("create metrics file: %v", err), exitStoreError)
	}
	defer func() { _ = csvFile.Close() }()

	notifier, err := buildNotifier(opts.notify)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid notifier config: %v", err), exitBadInvoke)
	}
	if notifier != nil {
		defer func() { _ = notifier.Close() }()
	}

	if opts.promListen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: opts.promListen, Handler: mux}
			logger.Info("prometheus endpoint started", map[string]any{"addr": opts.promListen})
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("prometheus endpoint failed", map[string]any{"error": err.Error()})
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received", nil)
		cancel()
	}()

	collector := metrics.NewCollector(runID)
	p := pipeline.New(pipeline.Config{
		RunID:          runID,
		InputPath:      opts.input,
		Workers:        opts.workers,
		Rate:           opts.rate,
		BatchSize:      opts.batch,
		RunTime:        opts.runTime,
		AlertWindow:    opts.window,
		AlertThreshold: opts.threshold,
		SampleInterval: opts.interval,
		MetricsOut:     csvFile,
		Sink:           st,
		Notifier:       notifier,
	}, collector, logger)

	result, err := p.Run(ctx)
	exitCode := exitSuccess
	if err != nil {
		if pipeline.IsInputError(err) {
			exitCode = exitBadInvoke
		} else {
			exitCode = exitPipeline
		}
	}

	if opts.reportPath != "" && result != nil {
		if err := pipeline.BuildRunReport(result, exitCode).WriteFile(opts.reportPath); err != nil {
			logger.Error("report write failed", map[string]any{"error": err.Error()})
		}
	}

	if !c.Bool("quiet") && result != nil {
		printRunSummary(result, st)
	}

	if err != nil {
		return cli.Exit(fmt.Sprintf("run failed: %v", err), exitCode)
	}
	return cli.Exit("", exitCode)
}

// buildNotifier constructs the optional alert notifier from config.
func buildNotifier(cfg config.NotifyConfig) (adapter.Notifier, error) {
	retries := -1
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}

	switch cfg.Type {
	case "":
		return nil, nil

	case "webhook":
		wc := webhook.Config{URL: cfg.URL, Headers: cfg.Headers, Timeout: cfg.Timeout.Duration}
		if retries >= 0 {
			wc.Retries = retries
		} else {
			wc.Retries = webhook.DefaultRetries
		}
		return webhook.New(wc)

	case "redis":
		rc := redisnotify.Config{URL: cfg.URL, Channel: cfg.Channel, Timeout: cfg.Timeout.Duration}
		if retries >= 0 {
			rc.Retries = retries
		} else {
			rc.Retries = redisnotify.DefaultRetries
		}
		return redisnotify.New(rc)

	default:
		return nil, fmt.Errorf("unknown notifier type %q (want webhook or redis)", cfg.Type)
	}
}

// printRunSummary prints run totals plus a database-backed breakdown.
func printRunSummary(result *pipeline.Result, st *store.Store) {
	snap := result.Metrics

	outcome := "completed"
	if result.Interrupted {
		outcome = "interrupted"
	}
	fmt.Printf("\nrun_id=%s, outcome=%s, duration=%s\n",
		result.RunID, outcome, result.Duration.Round(time.Millisecond))

	fmt.Printf("\n=== Pipeline ===\n")
	fmt.Printf("Lines Ingested:   %d\n", snap.LinesIngested)
	fmt.Printf("Events Parsed:    %d\n", snap.EventsParsed)
	fmt.Printf("Parse Drops:      %d\n", snap.ParseDrops)
	fmt.Printf("Events Indexed:   %d\n", snap.EventsIndexed)
	fmt.Printf("Batches Flushed:  %d\n", snap.BatchesFlushed)
	fmt.Printf("Store Errors:     %d\n", snap.StoreErrors)
	fmt.Printf("Residual Queues:  raw=%d parsed=%d\n", result.ResidualRaw, result.ResidualParsed)

	fmt.Printf("\n=== Alerts ===\n")
	fmt.Printf("Alerts Fired:     %d\n", snap.AlertsFired)
	fmt.Printf("Notify Drops:     %d\n", snap.NotifyDrops)

	sum, err := st.Summarize()
	if err != nil {
		fmt.Printf("\n(summary unavailable: %v)\n", err)
		return
	}

	fmt.Printf("\n=== Database ===\n")
	fmt.Printf("Total Events:     %d\n", sum.TotalEvents)
	fmt.Printf("Suspicious:       %d\n", sum.SuspiciousEvents)
	fmt.Printf("Total Alerts:     %d\n", sum.TotalAlerts)
	fmt.Printf("Latency (s):      avg=%.3f min=%.3f max=%.3f\n",
		sum.AvgLatencySeconds, sum.MinLatencySeconds, sum.MaxLatencySeconds)

	if len(sum.TopIPs) > 0 {
		fmt.Printf("\n=== Top IPs ===\n")
		for _, row := range sum.TopIPs {
			fmt.Printf("  %-18s %d\n", row.IP, row.Count)
		}
	}
}
