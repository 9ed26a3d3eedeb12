// Package program turns intents into automation programs for the hosted browser.
//
// A Program is a flat list of instructions that the execution shim (shim.js)
// interprets inside the remote browser. Caller input only ever appears as
// instruction data, never as code.
package program

import (
	_ "embed"

	"browsekit/browsekit/services/humanize"
)

// Op names one instruction understood by the execution shim.
type Op string

const (
	OpNavigate        Op = "navigate"
	OpPointerPath     Op = "pointer_path"
	OpType            Op = "type"
	OpWait            Op = "wait"
	OpPress           Op = "press"
	OpScroll          Op = "scroll"
	OpWaitForSelector Op = "wait_for_selector"
	OpExtractResults  Op = "extract_results"
	OpExtractFields   Op = "extract_fields"
)

// WaitUntilDOMContentLoaded is the navigation condition used by every program.
const WaitUntilDOMContentLoaded = "domcontentloaded"

// Step is one instruction. Only the fields relevant to Op are set.
type Step struct {
	Op         Op                  `json:"op"`
	URL        string              `json:"url,omitempty"`
	WaitUntil  string              `json:"wait_until,omitempty"`
	TimeoutMs  int                 `json:"timeout_ms,omitempty"`
	Selector   string              `json:"selector,omitempty"`
	Text       string              `json:"text,omitempty"`
	DelaysMs   []int               `json:"delays_ms,omitempty"`
	Path       []humanize.PathStep `json:"path,omitempty"`
	Key        string              `json:"key,omitempty"`
	DeltaY     int                 `json:"delta_y,omitempty"`
	DurationMs int                 `json:"duration_ms,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
	Fields     []Field             `json:"fields,omitempty"`
}

// Field is one named extraction inside an extract_fields step.
type Field struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
	Multiple bool   `json:"multiple,omitempty"`
}

// Program is an ordered instruction list. The shim returns the value produced
// by its last extract step.
type Program struct {
	Kind  Kind   `json:"kind"`
	Steps []Step `json:"steps"`
}

// Capability is a direct call to one of the host's built-in endpoints.
type Capability struct {
	Name   string `json:"-"`
	Params any    `json:"params"`
}

// ScreenshotParams is the body of the host's /screenshot endpoint.
type ScreenshotParams struct {
	URL     string            `json:"url"`
	Options ScreenshotOptions `json:"options"`
}

type ScreenshotOptions struct {
	FullPage bool   `json:"fullPage"`
	Type     string `json:"type"`
	Quality  *int   `json:"quality,omitempty"`
}

// Shim is the constant program text posted as "code" to the function endpoint.
//
//go:embed shim.js
var Shim string
