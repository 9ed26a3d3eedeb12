package shim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsekit/browsekit/services/browserless"
	"browsekit/browsekit/services/humanize"
	"browsekit/browsekit/services/program"
)

const articlePage = `<html><head><title> Hello </title><style>.x{}</style></head>
<body><h1>Headline</h1><span class="tag">go</span><span class="tag"> web </span>
<script>var a = 1;</script></body></html>`

func resultsPage(titles ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i, t := range titles {
		if i%2 == 0 {
			sb.WriteString(`<a href="/r/` + t + `"><h3>` + t + `</h3></a>`)
		} else {
			sb.WriteString(`<div><h3>` + t + `</h3></div>`)
		}
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func newEngine() *program.Engine {
	return program.NewEngine(program.WithHumanizer(func() *humanize.Synthesizer { return humanize.NewSeeded(1) }))
}

func TestInterpreterScrape(t *testing.T) {
	in := &Interpreter{Pages: map[string]string{"https://example.com": articlePage}}
	prog, err := newEngine().Build(program.ScrapeIntent{
		URL: "https://example.com",
		Selectors: program.SelectorSpec{
			"title":   {Selector: "title"},
			"tags":    {Selector: ".tag", Multiple: true},
			"missing": {Selector: ".nope"},
			"broken":  {Selector: "[[["},
		},
	})
	require.NoError(t, err)

	out, err := in.Run(context.Background(), prog)
	require.NoError(t, err)
	fields := out.(map[string]any)
	assert.Equal(t, "Hello", fields["title"])
	assert.Equal(t, []string{"go", "web"}, fields["tags"])
	assert.Nil(t, fields["missing"])
	assert.Nil(t, fields["broken"])
}

func TestInterpreterSearch(t *testing.T) {
	var typed string
	in := &Interpreter{
		Pages: map[string]string{program.DefaultSearchEngine.URL: `<input name="q">`},
		SearchResults: func(q string) (string, error) {
			typed = q
			return resultsPage("one", "two", "three"), nil
		},
	}
	prog, err := newEngine().Build(program.SearchIntent{Query: "golang", MaxResults: 2})
	require.NoError(t, err)

	out, err := in.Run(context.Background(), prog)
	require.NoError(t, err)
	assert.Equal(t, "golang", typed)

	results := out.([]map[string]any)
	require.Len(t, results, 2)
	assert.Equal(t, "one", results[0]["title"])
	assert.Equal(t, "https://www.google.com/r/one", results[0]["link"])
	assert.Nil(t, results[1]["link"])
}

func TestInterpreterWaitForSelectorFails(t *testing.T) {
	in := &Interpreter{
		Pages:         map[string]string{program.DefaultSearchEngine.URL: `<input name="q">`},
		SearchResults: func(string) (string, error) { return "<p>no results</p>", nil },
	}
	prog, err := newEngine().Build(program.SearchIntent{Query: "x"})
	require.NoError(t, err)

	_, err = in.Run(context.Background(), prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waiting for selector")
}

func TestInterpreterUnknownPage(t *testing.T) {
	_, err := (&Interpreter{}).Run(context.Background(), program.Program{Steps: []program.Step{{Op: program.OpNavigate, URL: "https://nowhere.test"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
}

func TestInnerTextSkipsScripts(t *testing.T) {
	in := &Interpreter{Fallback: articlePage}
	out, err := in.Run(context.Background(), program.Program{Steps: []program.Step{
		{Op: program.OpNavigate, URL: "https://any.test"},
		{Op: program.OpExtractFields, Fields: []program.Field{{Name: "body", Selector: "body"}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Headline go web", out.(map[string]any)["body"])
}

func TestHostThroughClient(t *testing.T) {
	host := &Host{
		Token:       "tok",
		Interpreter: &Interpreter{Pages: map[string]string{"https://example.com": articlePage}},
	}
	srv := httptest.NewServer(host)
	t.Cleanup(srv.Close)

	c, err := browserless.NewClient(browserless.Config{BaseURL: srv.URL, Token: "tok"})
	require.NoError(t, err)

	prog, err := newEngine().Build(program.ScrapeIntent{URL: "https://example.com", Selectors: program.SelectorSpec{"h": {Selector: "h1"}}})
	require.NoError(t, err)
	raw, err := c.Submit(context.Background(), prog, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"h":"Headline"}`, string(raw))

	call, err := newEngine().Capability(program.ScreenshotIntent{URL: "https://example.com"})
	require.NoError(t, err)
	img, err := c.Capability(context.Background(), call, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(img), "\x89PNG"))

	calls := host.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/function", calls[0].Path)
	assert.Equal(t, "/screenshot", calls[1].Path)
}

func TestHostRejectsBadToken(t *testing.T) {
	host := &Host{Token: "tok"}
	rec := httptest.NewRecorder()
	host.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/function?token=nope", strings.NewReader("{}")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHostFailHook(t *testing.T) {
	host := &Host{Fail: func(program.Program) error { return errors.New("Evaluation failed: boom") }}
	rec := httptest.NewRecorder()
	host.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/function", strings.NewReader(`{"code":"","context":{"program":{"kind":"search","steps":[]}}}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}
