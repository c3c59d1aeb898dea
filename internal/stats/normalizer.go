// Package stats maps prop categories to the numbers they measure, both on a player's
// box score and on what a defense allows to a position.
package stats

import (
	"fmt"
	"sort"

	"github.com/fortuna/propscout/internal/store"
)

// Category is a prop category label as posted by the projections feed
type Category string

const (
	Points         Category = "Points"
	Rebounds       Category = "Rebounds"
	Assists        Category = "Assists"
	PtsRebsAsts    Category = "Pts+Rebs+Asts"
	ThreesMade     Category = "3-PT Made"
	FantasyScore   Category = "Fantasy Score"
	BlocksSteals   Category = "Blks+Stls"
	FreeThrowsMade Category = "Free Throws Made"
)

// Weights of the fantasy-score proxy computed on DVP rows
const (
	FantasyReboundWeight  = 1.2
	FantasyAssistWeight   = 1.5
	FantasyBlockWeight    = 3.0
	FantasyStealWeight    = 3.0
	FantasyTurnoverWeight = 1.0
)

// Stat pairs the two accessors for one category
type Stat struct {
	Category Category
	// Player extracts the produced value from one game
	Player func(store.GameLogEntry) float64
	// Defense extracts the allowed value from one DVP row
	Defense func(store.DvpAggregate) float64
}

var registry = map[Category]Stat{
	Points: {
		Category: Points,
		Player:   func(g store.GameLogEntry) float64 { return g.Points },
		Defense:  func(d store.DvpAggregate) float64 { return d.Points },
	},
	Rebounds: {
		Category: Rebounds,
		Player:   func(g store.GameLogEntry) float64 { return g.Rebounds },
		Defense:  func(d store.DvpAggregate) float64 { return d.Rebounds },
	},
	Assists: {
		Category: Assists,
		Player:   func(g store.GameLogEntry) float64 { return g.Assists },
		Defense:  func(d store.DvpAggregate) float64 { return d.Assists },
	},
	PtsRebsAsts: {
		Category: PtsRebsAsts,
		Player:   func(g store.GameLogEntry) float64 { return g.Points + g.Rebounds + g.Assists },
		Defense:  PRA,
	},
	ThreesMade: {
		Category: ThreesMade,
		Player:   func(g store.GameLogEntry) float64 { return g.ThreesMade },
		Defense:  func(d store.DvpAggregate) float64 { return d.ThreesMade },
	},
	FantasyScore: {
		Category: FantasyScore,
		Player:   func(g store.GameLogEntry) float64 { return g.FantasyPoints },
		Defense:  FantasyProxy,
	},
	BlocksSteals: {
		Category: BlocksSteals,
		Player:   func(g store.GameLogEntry) float64 { return g.Blocks + g.Steals },
		Defense:  BlocksPlusSteals,
	},
	// The DVP table has no made-free-throws column; free-throw percentage allowed stands in.
	FreeThrowsMade: {
		Category: FreeThrowsMade,
		Player:   func(g store.GameLogEntry) float64 { return g.FreeThrowsMade },
		Defense:  func(d store.DvpAggregate) float64 { return d.FTPct },
	},
}

// Lookup returns the accessors for a category label. Labels are case-sensitive.
func Lookup(label string) (Stat, bool) {
	s, ok := registry[Category(label)]
	return s, ok
}

// Categories lists every known category, sorted
func Categories() []Category {
	out := make([]Category, 0, len(registry))
	for c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Series returns the per-game values a category measures, one per game, in log order
func Series(label string, games []store.GameLogEntry) ([]float64, error) {
	s, ok := Lookup(label)
	if !ok {
		return nil, fmt.Errorf("category %q: %w", label, store.ErrUnrecognizedCategory)
	}
	out := make([]float64, len(games))
	for i, g := range games {
		out[i] = s.Player(g)
	}
	return out, nil
}

// PRA is points + rebounds + assists allowed
func PRA(d store.DvpAggregate) float64 {
	return d.Points + d.Rebounds + d.Assists
}

// FantasyProxy approximates fantasy points allowed from the per-stat averages
func FantasyProxy(d store.DvpAggregate) float64 {
	return d.Points +
		FantasyReboundWeight*d.Rebounds +
		FantasyAssistWeight*d.Assists +
		FantasyBlockWeight*d.Blocks +
		FantasyStealWeight*d.Steals -
		FantasyTurnoverWeight*d.Turnovers
}

// BlocksPlusSteals is blocks + steals allowed
func BlocksPlusSteals(d store.DvpAggregate) float64 {
	return d.Blocks + d.Steals
}
