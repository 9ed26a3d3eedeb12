// browsekit/controllers/scrape.go
package controllers

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"browsekit/browsekit/middlewares"
	"browsekit/browsekit/services/scraper"
	"browsekit/browsekit/sources/psql/models"
	"browsekit/browsekit/utils/apperrors"
	"browsekit/browsekit/utils/jsonutils"
	"browsekit/browsekit/utils/logging"
	"browsekit/browsekit/utils/types"
)

// DefaultMaxQueries caps a single batch request.
const DefaultMaxQueries = 25

// Archive keeps copies of scrape and screenshot results.
type Archive interface {
	UploadScrape(ctx context.Context, url string, data map[string]any) (string, error)
	UploadScreenshot(ctx context.Context, url string, img []byte, contentType, ext string) (string, error)
}

// RunStore records finished batch runs.
type RunStore interface {
	CreateRun(ctx context.Context, run *models.BatchRun) error
	ListRecentRuns(ctx context.Context, limit int) ([]models.BatchRun, error)
}

// ScrapeController adapts HTTP payloads to the scraper service.
type ScrapeController struct {
	svc        *scraper.Service
	archive    Archive
	runs       RunStore
	maxQueries int
	now        func() time.Time
	logger     *zap.Logger
}

type ScrapeOption func(*ScrapeController)

func WithArchive(a Archive) ScrapeOption {
	return func(c *ScrapeController) { c.archive = a }
}

func WithRunStore(s RunStore) ScrapeOption {
	return func(c *ScrapeController) { c.runs = s }
}

func WithMaxQueries(n int) ScrapeOption {
	return func(c *ScrapeController) {
		if n > 0 {
			c.maxQueries = n
		}
	}
}

func WithLogger(l *zap.Logger) ScrapeOption {
	return func(c *ScrapeController) { c.logger = l }
}

func NewScrapeController(svc *scraper.Service, opts ...ScrapeOption) *ScrapeController {
	c := &ScrapeController{
		svc:        svc,
		maxQueries: DefaultMaxQueries,
		now:        time.Now,
		logger:     logging.AppLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ScrapeController) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	defer logging.LogDuration(ctx, "ScrapeController.Search")()
	results, err := c.svc.Search(ctx, req.Query, scraper.SearchOptions{
		MaxResults:     req.MaxResults,
		ExcludeDomains: req.Filters.ExcludeDomains,
	})
	if err != nil {
		return nil, err
	}
	return &types.SearchResponse{
		Success:      true,
		Query:        req.Query,
		ResultsCount: len(results),
		Results:      results,
		Timestamp:    c.now().UTC(),
	}, nil
}

func (c *ScrapeController) Scrape(ctx context.Context, req types.ScrapeRequest) (*types.ScrapeResponse, error) {
	defer logging.LogDuration(ctx, "ScrapeController.Scrape")()
	fields, err := c.svc.Scrape(ctx, req.URL, req.Selectors, scraper.ScrapeOptions{
		Timeout: time.Duration(req.Options.Timeout) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	resp := &types.ScrapeResponse{
		Success:   true,
		URL:       req.URL,
		Data:      fields,
		Timestamp: c.now().UTC(),
	}
	if req.Options.Archive && c.archive != nil {
		key, err := c.archive.UploadScrape(ctx, req.URL, fields)
		if err != nil {
			c.logger.Warn("archive scrape failed", zap.String("url", req.URL), zap.Error(err))
		} else {
			resp.ArchiveKey = key
		}
	}
	return resp, nil
}

// Screenshot is an image ready to be sent as a download.
type Screenshot struct {
	Data        []byte
	ContentType string
	Filename    string
	ArchiveKey  string
}

func (c *ScrapeController) Screenshot(ctx context.Context, req types.ScreenshotRequest) (*Screenshot, error) {
	defer logging.LogDuration(ctx, "ScrapeController.Screenshot")()
	img, err := c.svc.Screenshot(ctx, req.URL, scraper.ScreenshotOptions{
		Format:   req.Options.Type,
		Quality:  req.Options.Quality,
		FullPage: req.Options.FullPage,
	})
	if err != nil {
		return nil, err
	}
	mt := mimetype.Detect(img)
	shot := &Screenshot{
		Data:        img,
		ContentType: mt.String(),
		Filename:    fmt.Sprintf("screenshot-%d%s", c.now().UnixMilli(), mt.Extension()),
	}
	if req.Options.Archive && c.archive != nil {
		key, err := c.archive.UploadScreenshot(ctx, req.URL, img, mt.String(), mt.Extension())
		if err != nil {
			c.logger.Warn("archive screenshot failed", zap.String("url", req.URL), zap.Error(err))
		} else {
			shot.ArchiveKey = key
		}
	}
	return shot, nil
}

// ValidateBatch applies the request-level guards before anything runs.
func (c *ScrapeController) ValidateBatch(req types.BatchSearchRequest) error {
	if len(req.Queries) == 0 {
		return apperrors.Invalid("queries", "Queries array is required")
	}
	if len(req.Queries) > c.maxQueries {
		return apperrors.Invalid("queries", "at most %d queries per batch, got %d", c.maxQueries, len(req.Queries))
	}
	return nil
}

// BatchSearch runs every query in order. onItem, when set, sees each result
// as soon as it finishes. Item failures are part of the response, never an error.
func (c *ScrapeController) BatchSearch(ctx context.Context, req types.BatchSearchRequest, onItem func(runID string, item types.BatchResult)) (*types.BatchSearchResponse, error) {
	defer logging.LogDuration(ctx, "ScrapeController.BatchSearch")()
	if err := c.ValidateBatch(req); err != nil {
		return nil, err
	}

	runID := uuid.New()
	startedAt := c.now().UTC()
	c.logger.Info("batch search", zap.String("run_id", runID.String()), zap.Int("queries", len(req.Queries)))

	report := c.svc.RunBatch(ctx, req.Queries, scraper.BatchOptions{
		MaxResults:     req.MaxResults,
		ExcludeDomains: req.Filters.ExcludeDomains,
	}, func(item scraper.BatchItem) {
		if onItem != nil {
			onItem(runID.String(), batchResult(item))
		}
	})

	resp := &types.BatchSearchResponse{
		Success:      true,
		RunID:        runID.String(),
		TotalQueries: report.Total,
		Succeeded:    report.Succeeded,
		Failed:       report.Failed,
		Results:      make([]types.BatchResult, len(report.Items)),
		Timestamp:    c.now().UTC(),
	}
	for i, item := range report.Items {
		resp.Results[i] = batchResult(item)
	}

	if c.runs != nil {
		c.recordRun(ctx, runID, startedAt, resp)
	}
	return resp, nil
}

func (c *ScrapeController) recordRun(ctx context.Context, runID uuid.UUID, startedAt time.Time, resp *types.BatchSearchResponse) {
	run := &models.BatchRun{
		ID:           runID,
		ClientID:     middlewares.ClientID(ctx),
		TotalQueries: resp.TotalQueries,
		Succeeded:    resp.Succeeded,
		Failed:       resp.Failed,
		StartedAt:    startedAt,
		FinishedAt:   resp.Timestamp,
		Items:        make([]models.BatchRunItem, len(resp.Results)),
	}
	for i, r := range resp.Results {
		run.Items[i] = models.BatchRunItem{
			Position:     r.Index,
			Query:        r.Query,
			Success:      r.Success,
			ResultsCount: len(r.Results),
			Error:        r.Error,
			ElapsedMs:    r.ElapsedMs,
		}
	}
	// Detached so a client hanging up after the batch still gets its run stored.
	if err := c.runs.CreateRun(context.WithoutCancel(ctx), run); err != nil {
		logging.ErrorLogger.Error("record batch run", zap.String("run_id", runID.String()), zap.Error(err))
	}
}

func (c *ScrapeController) ListRuns(ctx context.Context, limit int) ([]types.BatchRun, error) {
	if c.runs == nil {
		return nil, &apperrors.ConfigurationError{Key: "DB_HOST", Err: fmt.Errorf("batch history is not configured")}
	}
	runs, err := c.runs.ListRecentRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.BatchRun, len(runs))
	for i, r := range runs {
		out[i] = types.BatchRun{
			RunID:        r.ID.String(),
			TotalQueries: r.TotalQueries,
			Succeeded:    r.Succeeded,
			Failed:       r.Failed,
			StartedAt:    r.StartedAt,
			FinishedAt:   r.FinishedAt,
		}
	}
	return out, nil
}

// Webhook dispatches an automation-platform action to the matching operation.
func (c *ScrapeController) Webhook(ctx context.Context, req types.WebhookRequest) (*types.WebhookResponse, error) {
	var result any
	switch req.Action {
	case "google_search":
		var data types.WebhookSearchData
		if err := jsonutils.DecodeStrict(req.Data, &data); err != nil {
			return nil, apperrors.Invalid("data", "%v", err)
		}
		results, err := c.svc.Search(ctx, data.Query, scraper.SearchOptions{
			MaxResults:     data.Options.MaxResults,
			ExcludeDomains: data.Options.ExcludeDomains,
		})
		if err != nil {
			return nil, err
		}
		result = results
	case "scrape_url":
		var data types.ScrapeRequest
		if err := jsonutils.DecodeStrict(req.Data, &data); err != nil {
			return nil, apperrors.Invalid("data", "%v", err)
		}
		fields, err := c.svc.Scrape(ctx, data.URL, data.Selectors, scraper.ScrapeOptions{
			Timeout: time.Duration(data.Options.Timeout) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		result = fields
	case "screenshot":
		var data types.ScreenshotRequest
		if err := jsonutils.DecodeStrict(req.Data, &data); err != nil {
			return nil, apperrors.Invalid("data", "%v", err)
		}
		img, err := c.svc.Screenshot(ctx, data.URL, scraper.ScreenshotOptions{
			Format:   data.Options.Type,
			Quality:  data.Options.Quality,
			FullPage: data.Options.FullPage,
		})
		if err != nil {
			return nil, err
		}
		result = base64.StdEncoding.EncodeToString(img)
	default:
		return nil, apperrors.Invalid("action", "Invalid action %q", req.Action)
	}
	return &types.WebhookResponse{
		Success:   true,
		Action:    req.Action,
		Result:    result,
		Timestamp: c.now().UTC(),
	}, nil
}

func batchResult(item scraper.BatchItem) types.BatchResult {
	r := types.BatchResult{
		Index:     item.Index,
		Query:     item.Key,
		Success:   item.OK(),
		ElapsedMs: item.FinishedAt.Sub(item.StartedAt).Milliseconds(),
	}
	if item.OK() {
		r.Results = item.Value
	} else {
		r.Error = item.Err.Error()
	}
	return r
}
