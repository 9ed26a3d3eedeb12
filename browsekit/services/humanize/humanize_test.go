package humanize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRand returns the same draw every time.
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(int) int     { return r.n }

func TestTypingDelayBounds(t *testing.T) {
	s := NewSeeded(42)
	for i := 0; i < 1000; i++ {
		d := s.TypingDelay()
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		require.Less(t, d, 300*time.Millisecond)
	}
}

func TestTypingDelaysOnePerRune(t *testing.T) {
	s := NewSeeded(1)
	delays := s.TypingDelays("héllo wörld")
	assert.Len(t, delays, 11)
	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 100)
		assert.Less(t, d, 300)
	}
}

func TestPointerPathDeterministicWithSeed(t *testing.T) {
	from, to := Point{}, Point{X: 200, Y: 200}

	a := NewSeeded(7).PointerPath(from, to)
	b := NewSeeded(7).PointerPath(from, to)

	require.Equal(t, a, b)
	require.GreaterOrEqual(t, len(a), 20)
	require.Less(t, len(a), 30)
}

func TestPointerPathBounds(t *testing.T) {
	from, to := Point{X: 10, Y: 500}, Point{X: 210, Y: 100}
	for seed := uint64(0); seed < 50; seed++ {
		path := NewSeeded(seed).PointerPath(from, to)
		steps := len(path)
		require.GreaterOrEqual(t, steps, 20)
		require.Less(t, steps, 30)

		for i, p := range path {
			frac := float64(i) / float64(steps)
			baseX := from.X + (to.X-from.X)*frac
			baseY := from.Y + (to.Y-from.Y)*frac
			assert.GreaterOrEqual(t, p.X, baseX)
			assert.Less(t, p.X, baseX+2)
			assert.GreaterOrEqual(t, p.Y, baseY)
			assert.Less(t, p.Y, baseY+2)
			assert.GreaterOrEqual(t, p.DelayMs, 10)
			assert.Less(t, p.DelayMs, 40)
		}
	}
}

func TestPointerPathLinearWithoutJitter(t *testing.T) {
	s := New(fixedRand{f: 0, n: 0})
	path := s.PointerPath(Point{}, Point{X: 200, Y: 100})

	require.Len(t, path, 20)
	assert.Equal(t, Point{X: 0, Y: 0}, path[0].Point)
	assert.Equal(t, Point{X: 100, Y: 50}, path[10].Point)
	assert.Equal(t, 10, path[0].DelayMs)
}

func TestUpperBoundDraws(t *testing.T) {
	s := New(fixedRand{f: 0.999999, n: 9})

	assert.Len(t, s.PointerPath(Point{}, Point{X: 1, Y: 1}), 29)
	assert.Less(t, s.TypingDelay(), 300*time.Millisecond)
	assert.Less(t, s.ScrollPause(), 1800*time.Millisecond)
}

func TestScrollPauseBounds(t *testing.T) {
	s := NewSeeded(99)
	for i := 0; i < 1000; i++ {
		d := s.ScrollPause()
		require.GreaterOrEqual(t, d, 800*time.Millisecond)
		require.Less(t, d, 1800*time.Millisecond)
	}
}
