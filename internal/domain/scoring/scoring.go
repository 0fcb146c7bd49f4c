// Package scoring computes score deltas and streak bonuses from task
// resolutions.
package scoring

import "wardline/internal/domain/catalog"

// Default streak bonus configuration constants.
const (
	defaultBonusEvery = 3  // every third consecutive correct resolution
	defaultBonusStep  = 5  // bonus grows by this much per completed step
	defaultBonusCap   = 20 // bonus never exceeds this
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithBonusEvery sets how many consecutive correct resolutions earn a bonus.
func WithBonusEvery(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bonusEvery = n
		}
	}
}

// WithBonusStep sets the bonus increment per completed streak step.
func WithBonusStep(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bonusStep = n
		}
	}
}

// WithBonusCap caps the streak bonus.
func WithBonusCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bonusCap = n
		}
	}
}

// Engine computes resolution outcomes. It is pure: all state it needs is
// passed in per call.
type Engine struct {
	bonusEvery int
	bonusStep  int
	bonusCap   int
}

// New creates a scoring engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{
		bonusEvery: defaultBonusEvery,
		bonusStep:  defaultBonusStep,
		bonusCap:   defaultBonusCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result describes the outcome of one resolution for the acting player.
type Result struct {
	Correct bool
	Delta   int // applied to both the player's and the team's score
	Bonus   int // streak bonus included in Delta
	Streak  int // player's streak after the resolution
}

// Correct computes the outcome of a correct resolution given the player's
// streak before it.
func (e *Engine) Correct(tier catalog.Tier, streak int) Result {
	next := streak + 1
	bonus := e.Bonus(next)
	return Result{
		Correct: true,
		Delta:   tier.ScoreCorrect + bonus,
		Bonus:   bonus,
		Streak:  next,
	}
}

// Wrong computes the outcome of an incorrect resolution. The streak resets.
func (e *Engine) Wrong(tier catalog.Tier) Result {
	return Result{Delta: -tier.ScoreWrong}
}

// Bonus returns the stepped streak bonus: min(cap, step × (streak/every)),
// granted exactly when the streak is a multiple of every.
func (e *Engine) Bonus(streak int) int {
	if streak <= 0 || streak%e.bonusEvery != 0 {
		return 0
	}
	b := e.bonusStep * (streak / e.bonusEvery)
	if b > e.bonusCap {
		b = e.bonusCap
	}
	return b
}
