package program

import (
	"fmt"
	"time"

	"browsekit/browsekit/services/humanize"
)

// Timings of the search and scrape templates.
const (
	thinkPause        = 1500 * time.Millisecond
	scrollSteps       = 5
	scrollDelta       = 200
	navigationTimeout = 30 * time.Second
	settlePause       = 2000 * time.Millisecond
)

var (
	pointerOrigin = humanize.Point{X: 0, Y: 0}
	pointerTarget = humanize.Point{X: 200, Y: 200}
)

// SearchEngine describes the page the search template drives.
type SearchEngine struct {
	URL            string
	InputSelector  string
	ResultSelector string
}

// DefaultSearchEngine is Google's home page with h3 result headings.
var DefaultSearchEngine = SearchEngine{
	URL:            "https://www.google.com",
	InputSelector:  "input[name='q']",
	ResultSelector: "h3",
}

// Engine builds programs from intents. It keeps no state between builds.
type Engine struct {
	search    SearchEngine
	humanizer func() *humanize.Synthesizer
}

type Option func(*Engine)

// WithSearchEngine overrides the search target; empty fields keep the default.
func WithSearchEngine(se SearchEngine) Option {
	return func(e *Engine) {
		if se.URL != "" {
			e.search.URL = se.URL
		}
		if se.InputSelector != "" {
			e.search.InputSelector = se.InputSelector
		}
		if se.ResultSelector != "" {
			e.search.ResultSelector = se.ResultSelector
		}
	}
}

// WithHumanizer sets the synthesizer factory called once per search build.
func WithHumanizer(fn func() *humanize.Synthesizer) Option {
	return func(e *Engine) { e.humanizer = fn }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		search:    DefaultSearchEngine,
		humanizer: humanize.NewRandom,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build returns the program for a search or scrape intent.
func (e *Engine) Build(intent Intent) (Program, error) {
	if err := intent.Validate(); err != nil {
		return Program{}, err
	}
	switch in := intent.(type) {
	case SearchIntent:
		return e.searchProgram(in), nil
	case ScrapeIntent:
		return e.scrapeProgram(in), nil
	default:
		return Program{}, fmt.Errorf("no program template for %s intents", intent.Kind())
	}
}

// Capability returns the built-in host call for a screenshot intent.
func (e *Engine) Capability(intent Intent) (Capability, error) {
	if err := intent.Validate(); err != nil {
		return Capability{}, err
	}
	in, ok := intent.(ScreenshotIntent)
	if !ok {
		return Capability{}, fmt.Errorf("no capability for %s intents", intent.Kind())
	}
	opts := ScreenshotOptions{
		FullPage: in.FullPage,
		Type:     in.format(),
	}
	// The screenshot endpoint rejects quality for png.
	if opts.Type != "png" {
		q := in.quality()
		opts.Quality = &q
	}
	return Capability{
		Name:   string(KindScreenshot),
		Params: ScreenshotParams{URL: in.URL, Options: opts},
	}, nil
}

func (e *Engine) searchProgram(in SearchIntent) Program {
	h := e.humanizer()
	steps := []Step{
		{Op: OpNavigate, URL: e.search.URL, WaitUntil: WaitUntilDOMContentLoaded, TimeoutMs: ms(navigationTimeout)},
		{Op: OpPointerPath, Path: h.PointerPath(pointerOrigin, pointerTarget)},
		{Op: OpType, Selector: e.search.InputSelector, Text: in.Query, DelaysMs: h.TypingDelays(in.Query)},
		{Op: OpWait, DurationMs: ms(thinkPause)},
		{Op: OpPress, Key: "Enter"},
	}
	for i := 0; i < scrollSteps; i++ {
		steps = append(steps,
			Step{Op: OpScroll, DeltaY: scrollDelta},
			Step{Op: OpWait, DurationMs: ms(h.ScrollPause())},
		)
	}
	steps = append(steps,
		Step{Op: OpWaitForSelector, Selector: e.search.ResultSelector, TimeoutMs: ms(navigationTimeout)},
		Step{Op: OpExtractResults, Selector: e.search.ResultSelector, Limit: in.Limit()},
	)
	return Program{Kind: KindSearch, Steps: steps}
}

func (e *Engine) scrapeProgram(in ScrapeIntent) Program {
	fields := make([]Field, 0, len(in.Selectors))
	for _, name := range in.Selectors.Keys() {
		sel := in.Selectors[name]
		fields = append(fields, Field{Name: name, Selector: sel.Selector, Multiple: sel.Multiple})
	}
	return Program{
		Kind: KindScrape,
		Steps: []Step{
			{Op: OpNavigate, URL: in.URL, WaitUntil: WaitUntilDOMContentLoaded, TimeoutMs: ms(navigationTimeout)},
			{Op: OpWait, DurationMs: ms(settlePause)},
			{Op: OpExtractFields, Fields: fields},
		},
	}
}

func ms(d time.Duration) int {
	return int(d / time.Millisecond)
}
