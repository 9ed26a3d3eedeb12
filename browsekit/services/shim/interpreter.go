// Package shim is a local stand-in for the hosted browser. It interprets
// programs against static HTML with goquery, so templates, normalization and
// batching can be exercised without a remote host. Timing steps are recorded
// but not slept, and no JavaScript runs.
package shim

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"browsekit/browsekit/services/program"
)

// Interpreter runs programs over fixture pages.
type Interpreter struct {
	// Pages maps an absolute URL to its HTML.
	Pages map[string]string
	// Fallback is served for URLs missing from Pages; empty means navigation fails.
	Fallback string
	// SearchResults renders the page shown after Enter is pressed with a typed query.
	SearchResults func(query string) (string, error)
}

type session struct {
	url   string
	doc   *goquery.Document
	typed string
}

// Run executes prog and returns what its last extract step produced.
func (in *Interpreter) Run(ctx context.Context, prog program.Program) (any, error) {
	s := &session{}
	var result any
	for i, step := range prog.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch step.Op {
		case program.OpNavigate:
			if err := in.navigate(s, step.URL); err != nil {
				return nil, err
			}
		case program.OpType:
			if err := s.requireDoc(step.Op); err != nil {
				return nil, err
			}
			s.typed += step.Text
		case program.OpPress:
			if step.Key == "Enter" && s.typed != "" && in.SearchResults != nil {
				page, err := in.SearchResults(s.typed)
				if err != nil {
					return nil, err
				}
				if err := s.load(s.url, page); err != nil {
					return nil, err
				}
			}
		case program.OpPointerPath, program.OpWait, program.OpScroll:
		case program.OpWaitForSelector:
			if err := s.requireDoc(step.Op); err != nil {
				return nil, err
			}
			if s.find(step.Selector).Length() == 0 {
				return nil, fmt.Errorf("TimeoutError: waiting for selector `%s` failed", step.Selector)
			}
		case program.OpExtractResults:
			if err := s.requireDoc(step.Op); err != nil {
				return nil, err
			}
			result = s.extractResults(step.Selector, step.Limit)
		case program.OpExtractFields:
			if err := s.requireDoc(step.Op); err != nil {
				return nil, err
			}
			result = s.extractFields(step.Fields)
		default:
			return nil, fmt.Errorf("unknown op: %s (step %d)", step.Op, i)
		}
	}
	return result, nil
}

func (in *Interpreter) navigate(s *session, target string) error {
	page, ok := in.Pages[target]
	if !ok {
		if in.Fallback == "" {
			return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", target)
		}
		page = in.Fallback
	}
	s.typed = ""
	return s.load(target, page)
}

func (s *session) load(pageURL, page string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("parse %s: %w", pageURL, err)
	}
	s.url = pageURL
	s.doc = doc
	return nil
}

func (s *session) requireDoc(op program.Op) error {
	if s.doc == nil {
		return fmt.Errorf("%s before navigate", op)
	}
	return nil
}

// find returns an empty selection for selectors that do not compile.
func (s *session) find(selector string) *goquery.Selection {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return s.doc.Selection.Slice(0, 0)
	}
	return s.doc.FindMatcher(m)
}

func (s *session) extractResults(selector string, limit int) []map[string]any {
	if limit <= 0 {
		limit = program.DefaultMaxResults
	}
	results := []map[string]any{}
	s.find(selector).EachWithBreak(func(i int, el *goquery.Selection) bool {
		if i >= limit {
			return false
		}
		var link any
		if href, ok := el.Closest("a").Attr("href"); ok {
			link = s.resolve(href)
		}
		results = append(results, map[string]any{"title": InnerText(el), "link": link})
		return true
	})
	return results
}

func (s *session) extractFields(fields []program.Field) map[string]any {
	data := make(map[string]any, len(fields))
	for _, f := range fields {
		m, err := cascadia.Compile(f.Selector)
		if err != nil {
			data[f.Name] = nil
			continue
		}
		matches := s.doc.FindMatcher(m)
		switch {
		case matches.Length() == 0:
			data[f.Name] = nil
		case f.Multiple:
			texts := make([]string, 0, matches.Length())
			matches.Each(func(_ int, el *goquery.Selection) {
				texts = append(texts, InnerText(el))
			})
			data[f.Name] = texts
		default:
			data[f.Name] = InnerText(matches.First())
		}
	}
	return data
}

func (s *session) resolve(href string) string {
	base, err := url.Parse(s.url)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// InnerText approximates the rendered text of sel: text nodes outside
// script, style and noscript, with whitespace runs collapsed.
func InnerText(sel *goquery.Selection) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
