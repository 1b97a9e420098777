package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurve_XPFor(t *testing.T) {
	c := NewCurve(DefaultCurveConfig())

	// Level 1 and below are free.
	assert.Equal(t, XP(0), c.XPFor(1))
	assert.Equal(t, XP(0), c.XPFor(0))
	assert.Equal(t, XP(0), c.XPFor(-3))

	// ceil(50 * 2^1.7) = ceil(162.45) = 163
	assert.Equal(t, XP(163), c.XPFor(2))
	// ceil(50 * 10^1.7) = ceil(2505.94) = 2506
	assert.Equal(t, XP(2506), c.XPFor(10))
}

func TestCurve_XPFor_Monotonic(t *testing.T) {
	c := NewCurve(DefaultCurveConfig())

	prev := c.XPFor(1)
	for l := Level(2); l <= 100; l++ {
		cur := c.XPFor(l)
		assert.Greater(t, cur, prev, "XPFor must strictly increase at level %d", l)
		prev = cur
	}
}

func TestCurve_LevelFor_BoundaryExact(t *testing.T) {
	c := NewCurve(DefaultCurveConfig())

	for l := Level(2); l <= 50; l++ {
		threshold := c.XPFor(l)
		assert.Equal(t, l, c.LevelFor(threshold), "xp exactly at the threshold is the new level")
		assert.Equal(t, l-1, c.LevelFor(threshold-1), "one XP short stays at the previous level")
	}
}

func TestCurve_LevelFor_Extremes(t *testing.T) {
	c := NewCurve(DefaultCurveConfig())

	assert.Equal(t, Level(1), c.LevelFor(0))
	assert.Equal(t, Level(1), c.LevelFor(30))

	// XP past the cap still resolves to the cap.
	huge := c.XPFor(100) + 1_000_000
	assert.Equal(t, Level(100), c.LevelFor(huge))
}

func TestCurve_XPToNextLevel(t *testing.T) {
	c := NewCurve(DefaultCurveConfig())

	assert.Equal(t, XP(163), c.XPToNextLevel(0))
	assert.Equal(t, XP(133), c.XPToNextLevel(30))

	// At the cap there is no next level.
	assert.Equal(t, XP(0), c.XPToNextLevel(c.XPFor(100)))
}

func TestCurve_Progress(t *testing.T) {
	c := NewCurve(DefaultCurveConfig())

	p := c.Progress(30)
	assert.Equal(t, Level(1), p.Level)
	assert.Equal(t, XP(30), p.XPIntoLevel)
	assert.Equal(t, XP(133), p.XPToNext)
	assert.InDelta(t, 30.0/163.0, p.Fraction, 1e-9)

	// Exactly on a boundary: fresh level, zero progress into it.
	p = c.Progress(c.XPFor(2))
	assert.Equal(t, Level(2), p.Level)
	assert.Equal(t, XP(0), p.XPIntoLevel)
	assert.Equal(t, 0.0, p.Fraction)
}

func TestCurve_InvalidConfigFallsBack(t *testing.T) {
	c := NewCurve(CurveConfig{Base: -1})
	assert.Equal(t, XP(163), c.XPFor(2))
}

func TestNewXP(t *testing.T) {
	xp, err := NewXP(10)
	assert.NoError(t, err)
	assert.Equal(t, 10, xp.Int())

	_, err = NewXP(-1)
	assert.Error(t, err)
}

func TestXP_Add_FloorsAtZero(t *testing.T) {
	assert.Equal(t, XP(5), XP(10).Add(-5))
	assert.Equal(t, XP(0), XP(10).Add(-25))
}
