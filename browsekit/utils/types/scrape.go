// browsekit/utils/types/scrape.go
package types

import (
	"time"

	"browsekit/browsekit/services/normalize"
	"browsekit/browsekit/services/program"
)

type SearchFilters struct {
	ExcludeDomains []string `json:"excludeDomains,omitempty"`
}

type SearchRequest struct {
	Query      string        `json:"query"`
	MaxResults int           `json:"maxResults,omitempty"`
	Filters    SearchFilters `json:"filters"`
}

type SearchResponse struct {
	Success      bool                     `json:"success"`
	Query        string                   `json:"query"`
	ResultsCount int                      `json:"resultsCount"`
	Results      []normalize.SearchResult `json:"results"`
	Timestamp    time.Time                `json:"timestamp"`
}

type ScrapeOptions struct {
	// Timeout in milliseconds; 0 uses the server default.
	Timeout int  `json:"timeout,omitempty"`
	Archive bool `json:"archive,omitempty"`
}

type ScrapeRequest struct {
	URL       string               `json:"url"`
	Selectors program.SelectorSpec `json:"selectors"`
	Options   ScrapeOptions        `json:"options"`
}

type ScrapeResponse struct {
	Success    bool             `json:"success"`
	URL        string           `json:"url"`
	Data       normalize.Fields `json:"data"`
	ArchiveKey string           `json:"archiveKey,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

type ScreenshotOptions struct {
	Type     string `json:"type,omitempty"`
	Quality  int    `json:"quality,omitempty"`
	FullPage bool   `json:"fullPage,omitempty"`
	Archive  bool   `json:"archive,omitempty"`
}

type ScreenshotRequest struct {
	URL     string            `json:"url"`
	Options ScreenshotOptions `json:"options"`
}

// WebhookSearchData is the data of a google_search webhook action.
type WebhookSearchData struct {
	Query   string `json:"query"`
	Options struct {
		MaxResults     int      `json:"maxResults,omitempty"`
		ExcludeDomains []string `json:"excludeDomains,omitempty"`
	} `json:"options"`
}
