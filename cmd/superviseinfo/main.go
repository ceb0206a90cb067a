package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/heshaofu2/superviseInfo/pkg/config"
	"github.com/heshaofu2/superviseInfo/pkg/content"
	"github.com/heshaofu2/superviseInfo/pkg/report"
	"github.com/heshaofu2/superviseInfo/pkg/runner"
	"github.com/heshaofu2/superviseInfo/pkg/scheduler"
	"github.com/heshaofu2/superviseInfo/pkg/store"
	"github.com/heshaofu2/superviseInfo/server"
)

// Opts with all CLI options
type Opts struct {
	Config  string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"configuration file"`
	Mode    string `short:"m" long:"mode" env:"MODE" default:"crawl" choice:"crawl" choice:"status" choice:"export" choice:"server" description:"run mode"`
	DataDir string `long:"data-dir" env:"DATA_DIR" description:"override data directory"`
	Listen  string `short:"l" long:"listen" env:"LISTEN" description:"override listen address (server mode)"`

	Source   string `long:"source" description:"source key to export (export mode)"`
	Output   string `short:"o" long:"output" default:"export.csv" description:"output file (export mode)"`
	NoReport bool   `long:"no-report" description:"skip markdown report generation"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.NoColor)

	log.Printf("[INFO] starting superviseinfo version %s", revision)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Printf("[ERROR] can't load config %s: %v", opts.Config, err)
		os.Exit(1)
	}
	if opts.DataDir != "" {
		cfg.Storage.DataDir = opts.DataDir
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	st, err := store.New(cfg.Storage.DataDir)
	if err != nil {
		log.Printf("[ERROR] can't init store: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	var runErr error
	switch opts.Mode {
	case "crawl":
		runErr = runCrawl(ctx, cfg, st, !opts.NoReport)
	case "status":
		runErr = showStatus(st)
	case "export":
		runErr = exportSource(cfg, st, opts.Source, opts.Output)
	case "server":
		runErr = runServer(ctx, cfg, st, opts.Debug, !opts.NoReport)
	}
	cancel()

	if runErr != nil {
		log.Printf("[ERROR] %s failed: %v", opts.Mode, runErr)
		os.Exit(1)
	}

	log.Print("[INFO] completed")
}

// newRunner wires the runner with an optional preview extractor
func newRunner(cfg *config.Config, st *store.Store) *runner.Runner {
	var previews runner.PreviewExtractor
	if cfg.Extraction.Enabled {
		previews = content.NewExtractor(cfg.Extraction.Timeout, cfg.Crawler.UserAgent,
			cfg.Extraction.MinTextLength, cfg.Extraction.PreviewLength)
	}
	return runner.New(cfg, st, previews)
}

// runCrawl performs a single crawl run and optionally saves the report
func runCrawl(ctx context.Context, cfg *config.Config, st *store.Store, allowReport bool) error {
	res, err := newRunner(cfg, st).Run(ctx)
	if err != nil {
		return err
	}

	if summaries := st.GetAllSummaries(); len(summaries) > 0 {
		log.Print("[INFO] data source status:")
		for _, s := range summaries {
			log.Printf("[INFO]  - [%s] %s: %d items, last updated %s",
				s.SourceKey, s.SourceName, s.TotalItems, s.LastUpdated)
		}
	}

	if allowReport && cfg.ReportEnabled() {
		path, err := report.Save(res, cfg.Report.OutputDir)
		if err != nil {
			return err
		}
		log.Printf("[INFO] report generated: %s", path)
	}
	return nil
}

// showStatus prints a summary of all persisted sources
func showStatus(st *store.Store) error {
	summaries := st.GetAllSummaries()
	if len(summaries) == 0 {
		fmt.Println("no data sources found")
		return nil
	}

	for i, s := range summaries {
		fmt.Printf("%d. [%s] %s\n", i+1, s.SourceKey, s.SourceName)
		fmt.Printf("   url: %s\n", s.URL)
		fmt.Printf("   total: %d items, last updated: %s, latest new: %d\n\n",
			s.TotalItems, s.LastUpdated, s.LatestNewItems)
	}
	return nil
}

// exportSource writes the stored records of one configured source to CSV
func exportSource(cfg *config.Config, st *store.Store, key, output string) error {
	if key == "" {
		return fmt.Errorf("source key required, use --source")
	}

	for _, src := range cfg.Sources {
		if src.Key != key {
			continue
		}
		name := src.Name
		if name == "" {
			name = src.Key
		}
		return st.ExportCSV(src.URL, name, output)
	}
	return fmt.Errorf("source %q not found in config", key)
}

// runServer runs the status API together with the periodic crawl scheduler
func runServer(ctx context.Context, cfg *config.Config, st *store.Store, debug, allowReport bool) error {
	sched := scheduler.New(newRunner(cfg, st),
		time.Duration(cfg.Schedule.UpdateInterval)*time.Minute,
		cfg.Report.OutputDir, allowReport && cfg.ReportEnabled())
	srv := server.New(cfg, st, revision, debug)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	return g.Wait()
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
