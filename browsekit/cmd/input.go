package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"browsekit/browsekit/services/program"
)

// batchFile is either a bare YAML list of queries or this mapping.
type batchFile struct {
	Queries        []string `yaml:"queries"`
	MaxResults     int      `yaml:"maxResults"`
	ExcludeDomains []string `yaml:"excludeDomains"`
}

func loadBatchFile(path string) (batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return batchFile{}, err
	}
	var bf batchFile
	if err := yaml.Unmarshal(data, &bf); err == nil && len(bf.Queries) > 0 {
		return bf, nil
	}
	var list []string
	if err := yaml.Unmarshal(data, &list); err != nil {
		return batchFile{}, fmt.Errorf("%s: expected a list of queries or a mapping with queries: %w", path, err)
	}
	return batchFile{Queries: list}, nil
}

// loadSelectors reads a name -> selector mapping; values are a CSS selector
// or {selector, multiple}.
func loadSelectors(path string) (program.SelectorSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec program.SelectorSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// parseSelectorFlags turns name=css (or name[]=css for all matches) into a spec.
func parseSelectorFlags(flags []string, into program.SelectorSpec) error {
	for _, f := range flags {
		name, css, ok := strings.Cut(f, "=")
		if !ok || name == "" || css == "" {
			return fmt.Errorf("selector %q: want name=css or name[]=css", f)
		}
		multiple := strings.HasSuffix(name, "[]")
		name = strings.TrimSuffix(name, "[]")
		into[name] = program.Selector{Selector: css, Multiple: multiple}
	}
	return nil
}

// fixtures configures the mock host. File paths are relative to the
// fixtures file.
type fixtures struct {
	Token    string            `yaml:"token"`
	Pages    map[string]string `yaml:"pages"`
	Fallback string            `yaml:"fallback"`
	Results  string            `yaml:"results"`
}

type loadedFixtures struct {
	token    string
	pages    map[string]string
	fallback string
	results  string
}

func loadFixtures(path string) (loadedFixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return loadedFixtures{}, err
	}
	var fx fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return loadedFixtures{}, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	read := func(p string) (string, error) {
		if p == "" {
			return "", nil
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		b, err := os.ReadFile(p)
		return string(b), err
	}

	out := loadedFixtures{token: fx.Token, pages: make(map[string]string, len(fx.Pages))}
	for url, file := range fx.Pages {
		html, err := read(file)
		if err != nil {
			return loadedFixtures{}, fmt.Errorf("page %s: %w", url, err)
		}
		out.pages[url] = html
	}
	if out.fallback, err = read(fx.Fallback); err != nil {
		return loadedFixtures{}, fmt.Errorf("fallback: %w", err)
	}
	if out.results, err = read(fx.Results); err != nil {
		return loadedFixtures{}, fmt.Errorf("results: %w", err)
	}
	return out, nil
}
