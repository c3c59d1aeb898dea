package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/fortuna/propscout/internal/stats"
	"github.com/fortuna/propscout/internal/store"
)

// StrikeThreshold converts a posted line into the smallest count that clears it.
// Over 24.5 means at least 25; over 25 means at least 26.
func StrikeThreshold(line float64) int {
	return int(math.Floor(line + 1))
}

// PoissonOver returns P(X >= floor(line+1)) for X ~ Poisson(mean of the category over games).
// games must be non-empty; the caller drops players without a log before scoring.
func PoissonOver(games []store.GameLogEntry, category string, line float64) (float64, error) {
	if len(games) == 0 {
		return 0, fmt.Errorf("poisson over %s: empty game log: %w", category, store.ErrMissingData)
	}

	series, err := stats.Series(category, games)
	if err != nil {
		return 0, err
	}

	return OverProbability(stat.Mean(series, nil), line), nil
}

// OverProbability is the upper tail P(X >= floor(line+1)) of a Poisson with rate mu
func OverProbability(mu, line float64) float64 {
	k := StrikeThreshold(line)
	if k <= 0 {
		return 1
	}
	if mu <= 0 {
		// all mass at zero
		return 0
	}

	p := 1 - distuv.Poisson{Lambda: mu}.CDF(float64(k-1))
	return clamp01(p)
}

func clamp01(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
