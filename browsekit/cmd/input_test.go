package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsekit/browsekit/services/program"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadBatchFile(t *testing.T) {
	dir := t.TempDir()

	bf, err := loadBatchFile(writeFile(t, dir, "list.yaml", "- golang\n- rust\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "rust"}, bf.Queries)

	bf, err = loadBatchFile(writeFile(t, dir, "map.yaml", "queries: [a, b]\nmaxResults: 3\nexcludeDomains: [x.com]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, bf.Queries)
	assert.Equal(t, 3, bf.MaxResults)
	assert.Equal(t, []string{"x.com"}, bf.ExcludeDomains)

	_, err = loadBatchFile(writeFile(t, dir, "bad.yaml", "just a string"))
	assert.Error(t, err)
}

func TestLoadSelectors(t *testing.T) {
	dir := t.TempDir()
	spec, err := loadSelectors(writeFile(t, dir, "sel.yaml", "title: h1\ntags:\n  selector: .tag\n  multiple: true\n"))
	require.NoError(t, err)
	assert.Equal(t, program.Selector{Selector: "h1"}, spec["title"])
	assert.Equal(t, program.Selector{Selector: ".tag", Multiple: true}, spec["tags"])
}

func TestParseSelectorFlags(t *testing.T) {
	spec := program.SelectorSpec{}
	require.NoError(t, parseSelectorFlags([]string{"title=h1", "tags[]=.tag a"}, spec))
	assert.Equal(t, program.Selector{Selector: "h1"}, spec["title"])
	assert.Equal(t, program.Selector{Selector: ".tag a", Multiple: true}, spec["tags"])

	assert.Error(t, parseSelectorFlags([]string{"nope"}, spec))
	assert.Error(t, parseSelectorFlags([]string{"=h1"}, spec))
}

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "home.html", "<input name=q>")
	writeFile(t, dir, "results.html", "<h3>hit</h3>")
	path := writeFile(t, dir, "fixtures.yaml", "token: tok\npages:\n  https://www.google.com: home.html\nresults: results.html\n")

	fx, err := loadFixtures(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", fx.token)
	assert.Equal(t, "<input name=q>", fx.pages["https://www.google.com"])
	assert.Equal(t, "<h3>hit</h3>", fx.results)
	assert.Empty(t, fx.fallback)

	_, err = loadFixtures(writeFile(t, dir, "broken.yaml", "pages:\n  https://x.test: missing.html\n"))
	assert.Error(t, err)
}
