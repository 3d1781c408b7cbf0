// Package chaos deliberately corrupts intents for comedic effect.
package chaos

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"chaos-car/internal/domain"
)

// Source is the random generator behind a Transformer. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

type Transformer struct {
	rng Source
}

// New returns a Transformer drawing from rng. A nil rng gets a time-seeded PCG.
func New(rng Source) *Transformer {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Transformer{rng: rng}
}

// NewSeeded returns a Transformer whose behavior is reproducible for a seed.
func NewSeeded(seed uint64) *Transformer {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Apply rolls once in [0, 100). A navigate intent with a recognizable
// direction is flipped when the roll is below pct. An unknown intent is always
// replaced by one of the alternates, whatever pct is. The input is not modified.
func (t *Transformer) Apply(in domain.Intent, pct float64) domain.Intent {
	roll := t.rng.Float64() * 100

	switch in.Action {
	case domain.ActionNavigate:
		if in.Target == nil {
			return in
		}
		dir, ok := NormalizeDirection(*in.Target)
		if !ok || roll >= pct {
			return in
		}
		flipped := InvertDirection(dir)
		return domain.Intent{
			Action: domain.ActionNavigate,
			Target: domain.StringPtr(string(flipped)),
			Extra:  domain.StringPtr(fmt.Sprintf("Chaos inverted: %s → %s", *in.Target, flipped)),
		}

	case domain.ActionUnknown:
		return alternates[t.rng.IntN(len(alternates))].Clone()
	}

	return in
}

var (
	leftSpellings  = []string{"left", "lft", "lift", "laft", "lefft", "lef"}
	rightSpellings = []string{"right", "rite", "rt", "wright", "rght", "rightt"}
)

// NormalizeDirection maps a direction word, including common misspellings,
// to left or right.
func NormalizeDirection(word string) (domain.Direction, bool) {
	lower := strings.ToLower(word)
	for _, s := range leftSpellings {
		if lower == s {
			return domain.DirectionLeft, true
		}
	}
	for _, s := range rightSpellings {
		if lower == s {
			return domain.DirectionRight, true
		}
	}
	return "", false
}

func InvertDirection(dir domain.Direction) domain.Direction {
	if dir == domain.DirectionLeft {
		return domain.DirectionRight
	}
	return domain.DirectionLeft
}
