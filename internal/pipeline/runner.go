// Package pipeline acquires the day's input tables from their sources and hands a
// snapshot to the scorer.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/scoring"
	"github.com/fortuna/propscout/internal/store"
)

// ProjectionSource supplies the day's projection board
type ProjectionSource interface {
	FetchProjections(ctx context.Context) ([]store.Projection, error)
}

// DvpSource supplies the defense-vs-position table
type DvpSource interface {
	FetchDvp(ctx context.Context) ([]store.DvpAggregate, error)
}

// PositionSource supplies the player position table
type PositionSource interface {
	FetchPositions(ctx context.Context) (store.PositionTable, error)
}

// GameLogSource supplies a player's most recent games
type GameLogSource interface {
	RecentGames(ctx context.Context, name string, n int) ([]store.GameLogEntry, error)
}

// RunScoped is implemented by sources that hold state for a single run.
// StartRun is called at the start of every Acquire.
type RunScoped interface {
	StartRun()
}

// Sources groups the collaborators of one run
type Sources struct {
	Projections ProjectionSource
	Dvp         DvpSource
	Positions   PositionSource
	GameLogs    GameLogSource
}

// Runner acquires a snapshot and scores it
type Runner struct {
	sources Sources
	scorer  *scoring.Scorer
	window  int
	logger  *zap.Logger
}

// NewRunner creates a runner
func NewRunner(sources Sources, config scoring.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		sources: sources,
		scorer:  scoring.NewScorer(config, logger.Named("scorer")),
		window:  config.SampleWindow,
		logger:  logger.Named("pipeline"),
	}
}

// Run acquires today's tables and scores them. The only errors returned are whole-run
// failures: no projections, or no DVP table.
func (r *Runner) Run(ctx context.Context) (*scoring.Report, error) {
	snap, err := r.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return r.scorer.Score(snap), nil
}

// Acquire fetches every input table. Game logs are fetched once per distinct
// non-promo player name; a failed fetch is recorded for that player only.
func (r *Runner) Acquire(ctx context.Context) (scoring.Snapshot, error) {
	if rs, ok := r.sources.GameLogs.(RunScoped); ok {
		rs.StartRun()
	}

	projections, err := r.sources.Projections.FetchProjections(ctx)
	if err != nil {
		return scoring.Snapshot{}, fmt.Errorf("projections: %w", err)
	}
	if len(projections) == 0 {
		return scoring.Snapshot{}, fmt.Errorf("projections: %w", store.ErrUpstreamUnavailable)
	}

	snap := scoring.Snapshot{
		Projections: projections,
		GameLogs:    make(map[string][]store.GameLogEntry),
		LogErrors:   make(map[string]error),
		Positions:   store.PositionTable{},
	}

	players := distinctPlayers(projections)
	if len(players) == 0 {
		r.logger.Info("board has only promotional projections", zap.Int("projections", len(projections)))
		return snap, nil
	}

	snap.Dvp, err = r.sources.Dvp.FetchDvp(ctx)
	if err != nil {
		return scoring.Snapshot{}, fmt.Errorf("dvp table: %w", err)
	}

	positions, err := r.sources.Positions.FetchPositions(ctx)
	if err != nil {
		// the scorer falls back to the feed's own positions
		r.logger.Warn("position table unavailable", zap.Error(err))
	} else {
		snap.Positions = positions
	}

	for _, name := range players {
		if err := ctx.Err(); err != nil {
			return scoring.Snapshot{}, err
		}

		games, err := r.sources.GameLogs.RecentGames(ctx, name, r.window)
		if err != nil {
			r.logger.Info("game log unavailable", zap.String("player", name), zap.Error(err))
			snap.LogErrors[name] = err
			continue
		}
		snap.GameLogs[name] = newest(games, r.window)
	}

	r.logger.Info("snapshot acquired",
		zap.Int("projections", len(projections)),
		zap.Int("players", len(players)),
		zap.Int("with_logs", len(snap.GameLogs)),
		zap.Int("dvp_rows", len(snap.Dvp)),
		zap.Int("positions", len(snap.Positions)))

	return snap, nil
}

// distinctPlayers returns non-promo player names in first-seen order
func distinctPlayers(projections []store.Projection) []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range projections {
		if p.IsPromo || p.Name == "" || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		names = append(names, p.Name)
	}
	return names
}

// newest sorts games newest first and keeps at most window of them
func newest(games []store.GameLogEntry, window int) []store.GameLogEntry {
	out := make([]store.GameLogEntry, len(games))
	copy(out, games)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].GameDate > out[j].GameDate
	})
	if window > 0 && len(out) > window {
		out = out[:window]
	}
	return out
}
