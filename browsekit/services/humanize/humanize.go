// Package humanize generates the randomized timing and pointer movement that
// make an automated search session look like a person at a keyboard.
//
// Every draw comes from the Rand handed to New, so a fixed seed reproduces the
// same timings and paths.
package humanize

import (
	"math/rand/v2"
	"time"
)

// Ranges are empirical mimicry constants; keep them as they are.
const (
	minTypingDelay = 100 * time.Millisecond
	typingSpread   = 200 * time.Millisecond

	minPathSteps  = 20
	pathStepRange = 10
	maxJitter     = 2.0

	minMoveDelay = 10 * time.Millisecond
	moveSpread   = 30 * time.Millisecond

	minScrollPause = 800 * time.Millisecond
	scrollSpread   = 1000 * time.Millisecond
)

// Rand is the subset of *rand.Rand the synthesizer needs.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Point is a pointer position in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PathStep is one pointer move followed by a pause.
type PathStep struct {
	Point
	DelayMs int `json:"delay_ms"`
}

// Synthesizer is not safe for concurrent use; build one per program.
type Synthesizer struct {
	rng Rand
}

// New returns a Synthesizer drawing from rng.
func New(rng Rand) *Synthesizer {
	return &Synthesizer{rng: rng}
}

// NewSeeded returns a Synthesizer over a PCG source with the given seed.
func NewSeeded(seed uint64) *Synthesizer {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewRandom returns a Synthesizer seeded from the runtime's global source.
func NewRandom() *Synthesizer {
	return NewSeeded(rand.Uint64())
}

// TypingDelay is the pause after a single keystroke, in [100ms, 300ms).
func (s *Synthesizer) TypingDelay() time.Duration {
	return minTypingDelay + time.Duration(s.rng.Float64()*float64(typingSpread))
}

// TypingDelays returns one TypingDelay per rune of text, in milliseconds.
func (s *Synthesizer) TypingDelays(text string) []int {
	runes := []rune(text)
	delays := make([]int, len(runes))
	for i := range runes {
		delays[i] = int(s.TypingDelay() / time.Millisecond)
	}
	return delays
}

// PointerPath interpolates from -> to in 20..29 steps. Each coordinate gets
// independent jitter in [0, 2) and each step a pause in [10ms, 40ms).
// The target itself is not part of the path.
func (s *Synthesizer) PointerPath(from, to Point) []PathStep {
	steps := minPathSteps + s.rng.IntN(pathStepRange)
	path := make([]PathStep, steps)
	for i := 0; i < steps; i++ {
		frac := float64(i) / float64(steps)
		x := from.X + (to.X-from.X)*frac + s.rng.Float64()*maxJitter
		y := from.Y + (to.Y-from.Y)*frac + s.rng.Float64()*maxJitter
		delay := minMoveDelay + time.Duration(s.rng.Float64()*float64(moveSpread))
		path[i] = PathStep{
			Point:   Point{X: x, Y: y},
			DelayMs: int(delay / time.Millisecond),
		}
	}
	return path
}

// ScrollPause is the reading pause after a scroll step, in [800ms, 1800ms).
func (s *Synthesizer) ScrollPause() time.Duration {
	return minScrollPause + time.Duration(s.rng.Float64()*float64(scrollSpread))
}
