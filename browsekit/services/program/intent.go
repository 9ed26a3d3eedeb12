package program

import (
	"net/url"
	"strings"
	"time"

	"browsekit/browsekit/utils/apperrors"
)

// Kind tags the Intent variants.
type Kind string

const (
	KindSearch     Kind = "search"
	KindScrape     Kind = "scrape"
	KindScreenshot Kind = "screenshot"
)

const (
	DefaultMaxResults        = 5
	DefaultScreenshotFormat  = "png"
	DefaultScreenshotQuality = 80
)

// Intent is one browser-automation task. The concrete types are
// SearchIntent, ScrapeIntent and ScreenshotIntent.
type Intent interface {
	Kind() Kind
	Validate() error
}

// SearchIntent asks for the first MaxResults organic results for Query.
type SearchIntent struct {
	Query      string
	MaxResults int
}

func (SearchIntent) Kind() Kind { return KindSearch }

func (i SearchIntent) Validate() error {
	if strings.TrimSpace(i.Query) == "" {
		return apperrors.Invalid("query", "query parameter is required")
	}
	if i.MaxResults < 0 {
		return apperrors.Invalid("maxResults", "must not be negative, got %d", i.MaxResults)
	}
	return nil
}

// Limit is MaxResults with the default applied.
func (i SearchIntent) Limit() int {
	if i.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return i.MaxResults
}

// ScrapeIntent extracts one value per SelectorSpec key from URL.
type ScrapeIntent struct {
	URL       string
	Selectors SelectorSpec
	Timeout   time.Duration
}

func (ScrapeIntent) Kind() Kind { return KindScrape }

func (i ScrapeIntent) Validate() error {
	return validateURL(i.URL)
}

// ScreenshotIntent captures URL through the host's screenshot capability.
type ScreenshotIntent struct {
	URL      string
	Format   string
	Quality  int
	FullPage bool
}

func (ScreenshotIntent) Kind() Kind { return KindScreenshot }

func (i ScreenshotIntent) Validate() error {
	if err := validateURL(i.URL); err != nil {
		return err
	}
	switch i.format() {
	case "png", "jpeg", "webp":
	default:
		return apperrors.Invalid("type", "unsupported screenshot type %q", i.Format)
	}
	if i.Quality < 0 || i.Quality > 100 {
		return apperrors.Invalid("quality", "must be within 0..100, got %d", i.Quality)
	}
	return nil
}

func (i ScreenshotIntent) format() string {
	f := strings.ToLower(strings.TrimSpace(i.Format))
	switch f {
	case "":
		return DefaultScreenshotFormat
	case "jpg":
		return "jpeg"
	}
	return f
}

func (i ScreenshotIntent) quality() int {
	if i.Quality == 0 {
		return DefaultScreenshotQuality
	}
	return i.Quality
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperrors.Invalid("url", "URL parameter is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return apperrors.Invalid("url", "%v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.Invalid("url", "scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return apperrors.Invalid("url", "missing host in %q", raw)
	}
	return nil
}
