// Package scraper is the library entry point: it turns search, scrape and
// screenshot requests into programs, runs them on the hosted browser and
// returns normalized results.
package scraper

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"browsekit/browsekit/services/batch"
	"browsekit/browsekit/services/browserless"
	"browsekit/browsekit/services/normalize"
	"browsekit/browsekit/services/program"
	"browsekit/browsekit/utils/apperrors"
	"browsekit/browsekit/utils/metrics"
)

// Executor runs programs and capability calls remotely.
// *browserless.Client satisfies it.
type Executor interface {
	Submit(ctx context.Context, prog program.Program, timeout time.Duration) (json.RawMessage, error)
	Capability(ctx context.Context, call program.Capability, timeout time.Duration) ([]byte, error)
}

var _ Executor = (*browserless.Client)(nil)

// Default per-call budgets for scrape and screenshot. Search falls back to the
// executor's function default.
const (
	DefaultScrapeTimeout     = 30 * time.Second
	DefaultScreenshotTimeout = 30 * time.Second
)

// Timeouts per operation; zero values fall back to the defaults above.
type Timeouts struct {
	Search     time.Duration
	Scrape     time.Duration
	Screenshot time.Duration
}

type SearchOptions struct {
	MaxResults     int
	ExcludeDomains []string
}

type ScrapeOptions struct {
	Timeout time.Duration
}

type ScreenshotOptions struct {
	Format   string
	Quality  int
	FullPage bool
	Timeout  time.Duration
}

type BatchOptions struct {
	MaxResults     int
	ExcludeDomains []string
}

type (
	BatchItem   = batch.Item[[]normalize.SearchResult]
	BatchReport = batch.Report[[]normalize.SearchResult]
)

// Service is safe for concurrent use. Every call builds its own program with
// a freshly seeded synthesizer and shares nothing with other calls.
type Service struct {
	exec     Executor
	engine   *program.Engine
	seq      batch.Sequencer
	timeouts Timeouts
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithEngine(e *program.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithSequencer sets the batch pacing (delay and clock).
func WithSequencer(seq batch.Sequencer) Option {
	return func(s *Service) { s.seq = seq }
}

func WithTimeouts(t Timeouts) Option {
	return func(s *Service) { s.timeouts = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(exec Executor, opts ...Option) *Service {
	s := &Service{
		exec:   exec,
		engine: program.NewEngine(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the humanized search program for query and returns at most
// MaxResults (default 5) cleaned entries.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]normalize.SearchResult, error) {
	intent := program.SearchIntent{Query: query, MaxResults: opts.MaxResults}
	prog, err := s.engine.Build(intent)
	if err != nil {
		return nil, err
	}
	raw, err := s.exec.Submit(ctx, prog, s.timeouts.Search)
	if err != nil {
		return nil, err
	}
	entries, err := normalize.DecodeSearch(raw)
	if err != nil {
		return nil, &apperrors.ExecutionError{Op: "function:search", Err: err, UpstreamBody: clip(raw)}
	}
	return normalize.Search(entries, normalize.Options{
		Limit:          intent.Limit(),
		ExcludeDomains: opts.ExcludeDomains,
	}), nil
}

// Scrape extracts one value per selector key from url. Fields that could not
// be extracted are nil; the call itself only fails when nothing came back.
func (s *Service) Scrape(ctx context.Context, url string, selectors program.SelectorSpec, opts ScrapeOptions) (normalize.Fields, error) {
	intent := program.ScrapeIntent{URL: url, Selectors: selectors, Timeout: opts.Timeout}
	prog, err := s.engine.Build(intent)
	if err != nil {
		return nil, err
	}
	timeout := firstPositive(opts.Timeout, s.timeouts.Scrape, DefaultScrapeTimeout)
	raw, err := s.exec.Submit(ctx, prog, timeout)
	if err != nil {
		return nil, err
	}
	fields, err := normalize.DecodeFields(raw, selectors, s.logger)
	if err != nil {
		return nil, &apperrors.ExecutionError{Op: "function:scrape", Err: err, UpstreamBody: clip(raw)}
	}
	return fields, nil
}

// Screenshot returns the encoded image bytes for url.
func (s *Service) Screenshot(ctx context.Context, url string, opts ScreenshotOptions) ([]byte, error) {
	call, err := s.engine.Capability(program.ScreenshotIntent{
		URL:      url,
		Format:   opts.Format,
		Quality:  opts.Quality,
		FullPage: opts.FullPage,
	})
	if err != nil {
		return nil, err
	}
	timeout := firstPositive(opts.Timeout, s.timeouts.Screenshot, DefaultScreenshotTimeout)
	return s.exec.Capability(ctx, call, timeout)
}

// RunBatch searches every query in order, one at a time, pausing between
// items. The report is index-aligned with queries; onItem may be nil.
func (s *Service) RunBatch(ctx context.Context, queries []string, opts BatchOptions, onItem func(BatchItem)) BatchReport {
	defer s.metrics.BatchStarted()()

	tasks := make([]batch.Task[[]normalize.SearchResult], len(queries))
	for i, q := range queries {
		tasks[i] = batch.Task[[]normalize.SearchResult]{
			Key: q,
			Run: func(ctx context.Context) ([]normalize.SearchResult, error) {
				return s.Search(ctx, q, SearchOptions{MaxResults: opts.MaxResults, ExcludeDomains: opts.ExcludeDomains})
			},
		}
	}

	s.logger.Info("batch started", zap.Int("queries", len(queries)))
	report := batch.Run(ctx, s.seq, tasks, func(item BatchItem) {
		s.metrics.BatchItem(item.OK())
		if !item.OK() {
			s.logger.Warn("batch item failed", zap.Int("index", item.Index), zap.String("query", item.Key), zap.Error(item.Err))
		}
		if onItem != nil {
			onItem(item)
		}
	})
	s.logger.Info("batch finished",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return report
}

func clip(raw []byte) string {
	const limit = 512
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}

func firstPositive(ds ...time.Duration) time.Duration {
	for _, d := range ds {
		if d > 0 {
			return d
		}
	}
	return 0
}
