// Package progression contains the pure XP and level calculators: the
// closed-form level curve and the per-activity XP award computation.
// All functions here are stateless; tunables are injected via config
// structs so environments and tests can pin them deterministically.
package progression

import (
	"math"

	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

// XP represents accumulated experience points.
type XP int

// Int returns the underlying int value.
func (x XP) Int() int { return int(x) }

// Add adds an amount and returns the result, floored at zero.
func (x XP) Add(amount int) XP {
	result := XP(int(x) + amount)
	if result < 0 {
		return 0
	}
	return result
}

// NewXP creates an XP value with validation. Negative input is a validation
// failure, never silently clamped.
func NewXP(amount int) (XP, error) {
	if amount < 0 {
		return 0, shared.ErrNegativeXP
	}
	return XP(amount), nil
}

// Level represents a user's level tier.
type Level int

// Int returns the underlying int value.
func (l Level) Int() int { return int(l) }

// CurveConfig holds the level-curve tunables.
type CurveConfig struct {
	// Base is the curve coefficient.
	Base float64

	// Exponent is the curve growth exponent.
	Exponent float64

	// MaxLevel is a sanity cap on the level search. XP keeps accumulating
	// past it; the cap only bounds LevelFor.
	MaxLevel Level
}

// DefaultCurveConfig returns the production curve: ceil(50 * L^1.7).
func DefaultCurveConfig() CurveConfig {
	return CurveConfig{
		Base:     50,
		Exponent: 1.7,
		MaxLevel: 100,
	}
}

// Curve converts between cumulative XP and level tiers.
type Curve struct {
	cfg CurveConfig
}

// NewCurve creates a Curve with the given config.
func NewCurve(cfg CurveConfig) *Curve {
	if cfg.Base <= 0 || cfg.Exponent <= 0 || cfg.MaxLevel < 1 {
		cfg = DefaultCurveConfig()
	}
	return &Curve{cfg: cfg}
}

// XPFor returns the total XP required to reach level l.
// Level 1 (and below) requires 0 XP.
func (c *Curve) XPFor(l Level) XP {
	if l <= 1 {
		return 0
	}
	return XP(math.Ceil(c.cfg.Base * math.Pow(float64(l), c.cfg.Exponent)))
}

// LevelFor returns the largest level whose XP requirement is satisfied by xp.
// Boundary-exact: if xp == XPFor(L) the result is L, not L-1.
func (c *Curve) LevelFor(xp XP) Level {
	level := Level(1)
	for level < c.cfg.MaxLevel && c.XPFor(level+1) <= xp {
		level++
	}
	return level
}

// XPToNextLevel returns how much XP is missing until the next level.
// Returns 0 at the sanity cap, where no next level exists.
func (c *Curve) XPToNextLevel(xp XP) XP {
	level := c.LevelFor(xp)
	if level >= c.cfg.MaxLevel {
		return 0
	}
	return c.XPFor(level+1) - xp
}

// ProgressFractionInLevel returns progress through the current level in [0,1).
func (c *Curve) ProgressFractionInLevel(xp XP) float64 {
	level := c.LevelFor(xp)
	if level >= c.cfg.MaxLevel {
		return 0
	}
	floor := c.XPFor(level)
	ceil := c.XPFor(level + 1)
	if ceil <= floor {
		return 0
	}
	return float64(xp-floor) / float64(ceil-floor)
}

// LevelProgress describes a user's position on the curve, for UI display.
type LevelProgress struct {
	Level       Level   `json:"level"`
	XPIntoLevel XP      `json:"xp_into_level"`
	XPToNext    XP      `json:"xp_to_next"`
	Fraction    float64 `json:"fraction"`
}

// Progress computes the full level-progress snapshot for xp.
func (c *Curve) Progress(xp XP) LevelProgress {
	level := c.LevelFor(xp)
	return LevelProgress{
		Level:       level,
		XPIntoLevel: xp - c.XPFor(level),
		XPToNext:    c.XPToNextLevel(xp),
		Fraction:    c.ProgressFractionInLevel(xp),
	}
}
