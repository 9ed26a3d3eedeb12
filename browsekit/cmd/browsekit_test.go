package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsekit/browsekit/services/normalize"
	"browsekit/browsekit/services/program"
	"browsekit/browsekit/utils/color"
)

func TestFlagOverridesLeaveEnvironmentAlone(t *testing.T) {
	t.Setenv("BROWSERLESS_API_KEY", "env-token")
	t.Setenv("BROWSERLESS_URL", "https://env.example")

	_, cfg, err := newService(&rootOptions{token: "flag-token", baseURL: "http://127.0.0.1:9222"})
	require.NoError(t, err)
	assert.Equal(t, "flag-token", cfg.BrowserlessAPIKey)
	assert.Equal(t, "http://127.0.0.1:9222", cfg.BrowserlessURL)
	assert.Equal(t, "env-token", os.Getenv("BROWSERLESS_API_KEY"))
	assert.Equal(t, "https://env.example", os.Getenv("BROWSERLESS_URL"))
}

func TestTokenFlagSatisfiesMissingEnvironment(t *testing.T) {
	t.Setenv("BROWSERLESS_API_KEY", "")

	_, cfg, err := newService(&rootOptions{token: "flag-token"})
	require.NoError(t, err)
	assert.Equal(t, "flag-token", cfg.Browserless().Token)
}

func TestReportNullFields(t *testing.T) {
	color.Disable()
	spec := program.SelectorSpec{
		"title":  {Selector: "h1"},
		"author": {Selector: ".author"},
		"tags":   {Selector: ".tag", Multiple: true},
	}
	fields := normalize.Fields{"title": "Hello", "author": nil, "tags": nil}

	var buf bytes.Buffer
	reportNullFields(&buf, spec, fields)
	assert.Equal(t, "author: null\ntags: null\n", buf.String())
}
