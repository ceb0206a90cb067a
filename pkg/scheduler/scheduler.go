// Package scheduler repeats crawl runs at a fixed interval for server mode.
package scheduler

import (
	"context"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
	"github.com/heshaofu2/superviseInfo/pkg/report"
)

// CrawlRunner executes one full crawl run across all configured sources
type CrawlRunner interface {
	Run(ctx context.Context) (*domain.RunResult, error)
}

// Scheduler triggers crawl runs periodically
type Scheduler struct {
	runner        CrawlRunner
	interval      time.Duration
	reportDir     string
	reportEnabled bool
}

// New creates a scheduler running the crawl every interval
func New(runner CrawlRunner, interval time.Duration, reportDir string, reportEnabled bool) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, reportDir: reportDir, reportEnabled: reportEnabled}
}

// Run executes a crawl immediately, then on every tick until the context is
// canceled
func (s *Scheduler) Run(ctx context.Context) error {
	lgr.Printf("[INFO] scheduler started, interval %v", s.interval)
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			lgr.Printf("[INFO] scheduler stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce performs a single crawl run and saves the report when enabled
func (s *Scheduler) runOnce(ctx context.Context) {
	res, err := s.runner.Run(ctx)
	if err != nil {
		lgr.Printf("[ERROR] crawl run failed: %v", err)
		return
	}

	if s.reportEnabled {
		if _, err := report.Save(res, s.reportDir); err != nil {
			lgr.Printf("[ERROR] save report: %v", err)
		}
	}
}
