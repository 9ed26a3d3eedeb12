// Package normalize cleans raw extraction output from the hosted browser.
// Nothing in here fails on bad data from a single entry or field; such data
// is dropped or becomes null.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"browsekit/browsekit/services/program"
	"browsekit/browsekit/utils/apperrors"
)

// RawEntry is one search result as the extraction step produced it.
type RawEntry struct {
	Title string  `json:"title"`
	Link  *string `json:"link"`
}

// SearchResult is a cleaned search entry. Link and Domain are null when unknown.
type SearchResult struct {
	Title  string  `json:"title"`
	Link   *string `json:"link"`
	Domain *string `json:"domain"`
}

// Options controls search normalization.
type Options struct {
	// Limit caps the raw entries considered; 0 means no cap.
	Limit          int
	ExcludeDomains []string
}

// DecodeSearch reads the function endpoint's return value for a search
// program. null decodes to no entries; entries that are not objects are skipped.
func DecodeSearch(raw json.RawMessage) ([]RawEntry, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("search result is not a list: %w", err)
	}
	entries := make([]RawEntry, 0, len(items))
	for _, item := range items {
		var e RawEntry
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Search trims titles, drops title-less entries, derives domains and applies
// the exclusion filter.
func Search(raw []RawEntry, opts Options) []SearchResult {
	if opts.Limit > 0 && len(raw) > opts.Limit {
		raw = raw[:opts.Limit]
	}
	excluded := make(map[string]struct{}, len(opts.ExcludeDomains))
	for _, d := range opts.ExcludeDomains {
		excluded[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}

	results := make([]SearchResult, 0, len(raw))
	for _, e := range raw {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			continue
		}
		var link *string
		if e.Link != nil {
			if l := strings.TrimSpace(*e.Link); l != "" {
				link = &l
			}
		}
		domain := Domain(link)
		if domain != nil {
			if _, skip := excluded[strings.ToLower(*domain)]; skip {
				continue
			}
		}
		results = append(results, SearchResult{Title: title, Link: link, Domain: domain})
	}
	return results
}

// Domain is the authority component of link, or nil when link is absent,
// unparsable or relative.
func Domain(link *string) *string {
	if link == nil || *link == "" {
		return nil
	}
	u, err := url.Parse(*link)
	if err != nil || u.Host == "" {
		return nil
	}
	host := u.Host
	return &host
}

// Fields holds one value per declared selector key: string, []string or nil.
type Fields map[string]any

// DecodeFields maps the scrape program's return value onto spec. Every key of
// spec is present in the result. A field with an unexpected shape becomes nil
// and is logged; only a body that is not an object at all is an error.
func DecodeFields(raw json.RawMessage, spec program.SelectorSpec, logger *zap.Logger) (Fields, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	values := map[string]json.RawMessage{}
	if !isNull(raw) {
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("scrape result is not an object: %w", err)
		}
	}

	fields := make(Fields, len(spec))
	for _, key := range spec.Keys() {
		v, err := fieldValue(values[key])
		if err != nil {
			logger.Debug("field extraction degraded to null",
				zap.Error(&apperrors.ExtractionError{Field: key, Selector: spec[key].Selector, Err: err}))
		}
		fields[key] = v
	}
	return fields, nil
}

func fieldValue(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var items []*string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unexpected value %s", truncate(raw, 64))
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, strings.TrimSpace(*item))
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
