package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/fortuna/propscout/internal/stats"
	"github.com/fortuna/propscout/internal/store"
)

// MatchupInput is everything the DVP matchup score needs for one projection
type MatchupInput struct {
	Opponent        string
	RecentOpponents []string // may repeat, order irrelevant
	Position        string
	Category        string
}

// MatchupScore measures how many standard deviations the opponent's allowance to the
// player's position sits above the teams the player faced recently.
//
// The score is always a finite number. When it cannot be computed it is 0 and the error
// says why: ErrUnrecognizedCategory, ErrMissingData (opponent not in the DVP table) or
// ErrDegenerateStatistics (fewer than two baseline rows, or zero spread).
func MatchupScore(dvp []store.DvpAggregate, in MatchupInput) (float64, error) {
	st, ok := stats.Lookup(in.Category)
	if !ok {
		return 0, fmt.Errorf("matchup %q: %w", in.Category, store.ErrUnrecognizedCategory)
	}

	opponent := NormalizeTeam(in.Opponent)
	faced := make(map[string]struct{}, len(in.RecentOpponents))
	for _, team := range in.RecentOpponents {
		faced[NormalizeTeam(team)] = struct{}{}
	}

	subset := positionSubset(dvp, PositionGroup(in.Position))

	var (
		result   *store.DvpAggregate
		baseline []float64
	)
	for i := range subset {
		team := NormalizeTeam(subset[i].Team)
		if result == nil && team == opponent {
			result = &subset[i]
		}
		if _, ok := faced[team]; ok {
			baseline = append(baseline, st.Defense(subset[i]))
		}
	}

	if result == nil {
		return 0, fmt.Errorf("matchup vs %s at %s: no DVP row: %w", opponent, in.Position, store.ErrMissingData)
	}
	if len(baseline) < 2 {
		return 0, fmt.Errorf("matchup vs %s: %d baseline rows: %w", opponent, len(baseline), store.ErrDegenerateStatistics)
	}

	mean, sd := stat.MeanStdDev(baseline, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0, fmt.Errorf("matchup vs %s: zero spread in baseline: %w", opponent, store.ErrDegenerateStatistics)
	}

	return (st.Defense(*result) - mean) / sd, nil
}

// positionSubset keeps table order
func positionSubset(dvp []store.DvpAggregate, group []string) []store.DvpAggregate {
	var out []store.DvpAggregate
	for _, row := range dvp {
		for _, pos := range group {
			if row.Position == pos {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
