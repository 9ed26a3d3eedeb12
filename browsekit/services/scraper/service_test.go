package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsekit/browsekit/services/batch"
	"browsekit/browsekit/services/browserless"
	"browsekit/browsekit/services/humanize"
	"browsekit/browsekit/services/program"
	"browsekit/browsekit/services/shim"
	"browsekit/browsekit/utils/apperrors"
	"browsekit/browsekit/utils/metrics"
)

// stubExecutor answers every Submit with body and counts calls.
type stubExecutor struct {
	mu       sync.Mutex
	body     string
	err      error
	calls    []program.Program
	timeouts []time.Duration
}

func (s *stubExecutor) Submit(_ context.Context, prog program.Program, timeout time.Duration) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, prog)
	s.timeouts = append(s.timeouts, timeout)
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.body), nil
}

func (s *stubExecutor) Capability(_ context.Context, _ program.Capability, timeout time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeouts = append(s.timeouts, timeout)
	return []byte("img"), s.err
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func seededEngine() *program.Engine {
	return program.NewEngine(program.WithHumanizer(func() *humanize.Synthesizer { return humanize.NewSeeded(7) }))
}

func queryOf(prog program.Program) string {
	for _, st := range prog.Steps {
		if st.Op == program.OpType {
			return st.Text
		}
	}
	return ""
}

const searchPage = `<html><body>
<a href="https://go.dev/doc"><h3> The Go Docs </h3></a>
<a href="https://pkg.go.dev"><h3>Packages</h3></a>
</body></html>`

const mockArticle = `<html><head><title>Mock Article</title></head>
<body><h1 class="headline">Headline</h1>
<ul><li class="tag">t1</li><li class="tag">t2</li><li class="tag">t3</li></ul></body></html>`

func newHostService(t *testing.T, host *shim.Host, opts ...Option) *Service {
	t.Helper()
	srv := httptest.NewServer(host)
	t.Cleanup(srv.Close)
	client, err := browserless.NewClient(browserless.Config{BaseURL: srv.URL, Token: host.Token})
	require.NoError(t, err)
	return NewService(client, append([]Option{WithEngine(seededEngine())}, opts...)...)
}

func TestSearchCapsAtMaxResults(t *testing.T) {
	exec := &stubExecutor{body: `[
		{"title":"one","link":"https://a.example/1"},
		{"title":"two","link":"https://b.example/2"},
		{"title":"three","link":null},
		{"title":"four","link":"https://d.example/4"},
		{"title":"five","link":"https://e.example/5"}
	]`}
	svc := NewService(exec, WithEngine(seededEngine()))

	results, err := svc.Search(context.Background(), "golang", SearchOptions{MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a.example", *results[0].Domain)
	assert.Nil(t, results[2].Link)
	assert.Nil(t, results[2].Domain)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "golang", queryOf(exec.calls[0]))
}

func TestSearchRejectsEmptyQueryWithoutRemoteCall(t *testing.T) {
	exec := &stubExecutor{body: `[]`}
	svc := NewService(exec)

	_, err := svc.Search(context.Background(), "   ", SearchOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, exec.calls)
}

func TestSearchRejectsNonListBody(t *testing.T) {
	svc := NewService(&stubExecutor{body: `{"oops":true}`})
	_, err := svc.Search(context.Background(), "q", SearchOptions{})
	_, ok := apperrors.AsExecution(err)
	assert.True(t, ok)
}

func TestSearchThroughMockHost(t *testing.T) {
	host := &shim.Host{
		Token: "tok",
		Interpreter: &shim.Interpreter{
			Pages:         map[string]string{program.DefaultSearchEngine.URL: `<input name="q">`},
			SearchResults: func(string) (string, error) { return searchPage, nil },
		},
	}
	svc := newHostService(t, host)

	results, err := svc.Search(context.Background(), "go docs", SearchOptions{ExcludeDomains: []string{"pkg.go.dev"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "The Go Docs", results[0].Title)
	assert.Equal(t, "go.dev", *results[0].Domain)
}

func TestScrapeMockDOM(t *testing.T) {
	host := &shim.Host{
		Token:       "tok",
		Interpreter: &shim.Interpreter{Pages: map[string]string{"https://mock.test/article": mockArticle}},
	}
	svc := newHostService(t, host)

	fields, err := svc.Scrape(context.Background(), "https://mock.test/article", program.SelectorSpec{
		"title":  {Selector: ".headline"},
		"tags":   {Selector: ".tag", Multiple: true},
		"author": {Selector: ".author"},
	}, ScrapeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Headline", fields["title"])
	assert.Equal(t, []string{"t1", "t2", "t3"}, fields["tags"])
	v, ok := fields["author"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestDefaultTimeouts(t *testing.T) {
	exec := &stubExecutor{body: `{"t":"x"}`}
	svc := NewService(exec)

	_, err := svc.Scrape(context.Background(), "https://mock.test/a", program.SelectorSpec{"t": {Selector: "title"}}, ScrapeOptions{})
	require.NoError(t, err)
	_, err = svc.Screenshot(context.Background(), "https://mock.test/a", ScreenshotOptions{})
	require.NoError(t, err)
	_, err = svc.Scrape(context.Background(), "https://mock.test/a", program.SelectorSpec{"t": {Selector: "title"}}, ScrapeOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{DefaultScrapeTimeout, DefaultScreenshotTimeout, 5 * time.Second}, exec.timeouts)
}

func TestConfiguredScrapeTimeout(t *testing.T) {
	exec := &stubExecutor{body: `{"t":"x"}`}
	svc := NewService(exec, WithTimeouts(Timeouts{Scrape: 12 * time.Second}))

	_, err := svc.Scrape(context.Background(), "https://mock.test/a", program.SelectorSpec{"t": {Selector: "title"}}, ScrapeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{12 * time.Second}, exec.timeouts)
}

func TestScrapeRejectsMissingURL(t *testing.T) {
	exec := &stubExecutor{}
	_, err := NewService(exec).Scrape(context.Background(), "", program.SelectorSpec{"t": {Selector: "title"}}, ScrapeOptions{})
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, exec.calls)
}

func TestScreenshotThroughMockHost(t *testing.T) {
	host := &shim.Host{Token: "tok", Screenshot: []byte("jpeg-bytes")}
	svc := newHostService(t, host)

	img, err := svc.Screenshot(context.Background(), "https://example.com", ScreenshotOptions{Format: "jpg", Quality: 60})
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), img)

	_, err = svc.Screenshot(context.Background(), "https://example.com", ScreenshotOptions{Format: "gif"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestSearchTimeout(t *testing.T) {
	host := &shim.Host{Token: "tok", Latency: 2 * time.Second}
	svc := newHostService(t, host, WithTimeouts(Timeouts{Search: 30 * time.Millisecond}))

	start := time.Now()
	_, err := svc.Search(context.Background(), "slow", SearchOptions{})
	assert.Less(t, time.Since(start), time.Second)

	exec, ok := apperrors.AsExecution(err)
	require.True(t, ok)
	assert.True(t, exec.Timeout())
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	host := &shim.Host{
		Token: "tok",
		Interpreter: &shim.Interpreter{
			Pages:         map[string]string{program.DefaultSearchEngine.URL: `<input name="q">`},
			SearchResults: func(string) (string, error) { return searchPage, nil },
		},
		Fail: func(prog program.Program) error {
			if queryOf(prog) == "b" {
				return errors.New("Evaluation failed: navigation blocked")
			}
			return nil
		},
	}
	clock := &stepClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	reg := prometheus.NewRegistry()
	svc := newHostService(t, host,
		WithSequencer(batch.Sequencer{Delay: 2 * time.Second, Clock: clock}),
		WithMetrics(metrics.MustNew(reg)),
	)

	var streamed []string
	report := svc.RunBatch(context.Background(), []string{"a", "b", "c"}, BatchOptions{MaxResults: 5}, func(it BatchItem) {
		streamed = append(streamed, it.Key)
	})

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"a", "b", "c"}, streamed)

	assert.True(t, report.Items[0].OK())
	assert.Len(t, report.Items[0].Value, 2)
	require.False(t, report.Items[1].OK())
	exec, ok := apperrors.AsExecution(report.Items[1].Err)
	require.True(t, ok)
	assert.Contains(t, exec.UpstreamBody, "navigation blocked")
	assert.True(t, report.Items[2].OK())

	for i := 1; i < len(report.Items); i++ {
		gap := report.Items[i].StartedAt.Sub(report.Items[i-1].StartedAt)
		assert.GreaterOrEqual(t, gap, 2*time.Second)
	}
	assert.Len(t, host.Calls(), 3)
}

func TestRunBatchInvalidQueryIsPerItem(t *testing.T) {
	exec := &stubExecutor{body: `[]`}
	svc := NewService(exec, WithSequencer(batch.Sequencer{Clock: &stepClock{}}))

	report := svc.RunBatch(context.Background(), []string{"ok", ""}, BatchOptions{}, nil)
	assert.Equal(t, 1, report.Succeeded)
	assert.True(t, apperrors.IsValidation(report.Items[1].Err))
	assert.Len(t, exec.calls, 1)
}
