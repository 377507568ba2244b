package services

import "math/rand"

// Roller draws one die face. The engine takes it as a dependency so tests and
// demos can pin the outcome.
type Roller interface {
	Roll() int
}

type RandomRoller struct {
	rng *rand.Rand
}

func NewRandomRoller(src rand.Source) *RandomRoller {
	return &RandomRoller{rng: rand.New(src)}
}

func (r *RandomRoller) Roll() int {
	return r.rng.Intn(6) + 1
}

// FixedRoller always lands on Outcome.
type FixedRoller struct {
	Outcome int
}

func (r FixedRoller) Roll() int {
	return r.Outcome
}

func IsWin(outcome, guess int) bool {
	return outcome == guess
}
