// Package scoring turns a snapshot of projections, game logs and defensive tables into a
// ranked board. Everything here is a pure function of its inputs.
package scoring

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/stats"
	"github.com/fortuna/propscout/internal/store"
)

// Config holds the tuning constants of the blend
type Config struct {
	SampleWindow    int     // most recent games kept per player
	DvpScaleDivisor float64 // dvp_metric_scaled = dvp_metric / DvpScaleDivisor
	DvpBlendDivisor float64 // model_score = poisson_odds + dvp_metric_scaled / DvpBlendDivisor
}

// DefaultConfig returns the tuned constants
func DefaultConfig() Config {
	return Config{
		SampleWindow:    10,
		DvpScaleDivisor: 4,
		DvpBlendDivisor: 2.5,
	}
}

// Snapshot is one run's read-only input tables
type Snapshot struct {
	Projections []store.Projection
	GameLogs    map[string][]store.GameLogEntry // by player name, newest first
	Dvp         []store.DvpAggregate
	Positions   store.PositionTable
	LogErrors   map[string]error // game-log fetch failures by player name
}

// Note records a projection or player that was skipped or scored with a fallback
type Note struct {
	ProjectionID string `json:"projection_id,omitempty"`
	Name         string `json:"name"`
	StatType     string `json:"stat_type,omitempty"`
	Reason       string `json:"reason"`
	err          error
}

// Err returns the underlying error, for errors.Is checks
func (n Note) Err() error { return n.err }

// NewNote builds a note from an error
func NewNote(p store.Projection, err error) Note {
	return Note{ProjectionID: p.ID, Name: p.Name, StatType: p.StatType, Reason: err.Error(), err: err}
}

// Report is the scored board plus everything that did not make it onto the board cleanly
type Report struct {
	Rows     []store.ScoredProjection `json:"rows"`
	Excluded []Note                   `json:"excluded"`
	Warnings []Note                   `json:"warnings"`
}

// ErrPromo marks promotional projections, which are never scored
var ErrPromo = errors.New("promotional projection")

// Scorer scores snapshots
type Scorer struct {
	config Config
	logger *zap.Logger
}

// NewScorer creates a scorer. A nil logger discards output.
func NewScorer(config Config, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{config: config, logger: logger}
}

// Score runs both scorers over every eligible projection and blends them
func (s *Scorer) Score(snap Snapshot) *Report {
	report := &Report{
		Rows:     []store.ScoredProjection{},
		Excluded: []Note{},
		Warnings: []Note{},
	}

	for _, p := range snap.Projections {
		out, err := s.scoreOne(snap, p)
		if errors.Is(err, ErrPromo) {
			s.logger.Debug("promo projection skipped", zap.String("player", p.Name), zap.String("stat_type", p.StatType))
			report.Excluded = append(report.Excluded, NewNote(p, err))
			continue
		}
		if err != nil {
			s.logger.Info("projection excluded",
				zap.String("player", p.Name),
				zap.String("stat_type", p.StatType),
				zap.Error(err))
			report.Excluded = append(report.Excluded, NewNote(p, err))
			continue
		}
		if out.warning != nil {
			s.logger.Warn("dvp metric fell back to zero",
				zap.String("player", p.Name),
				zap.String("stat_type", p.StatType),
				zap.String("opponent", p.Opponent),
				zap.Error(out.warning))
			report.Warnings = append(report.Warnings, NewNote(p, out.warning))
		}
		report.Rows = append(report.Rows, out.row)
	}

	for i := range report.Rows {
		s.blend(&report.Rows[i])
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].Name < report.Rows[j].Name
	})

	s.logger.Info("scoring complete",
		zap.Int("scored", len(report.Rows)),
		zap.Int("excluded", len(report.Excluded)),
		zap.Int("warnings", len(report.Warnings)))

	return report
}

// scored is an unblended row plus the non-fatal reason its DVP metric fell back, if any
type scored struct {
	row     store.ScoredProjection
	warning error
}

// scoreOne returns the scored row or the reason to skip the projection
func (s *Scorer) scoreOne(snap Snapshot, p store.Projection) (scored, error) {
	if p.IsPromo {
		return scored{}, ErrPromo
	}

	games := snap.GameLogs[p.Name]
	if len(games) == 0 {
		cause, ok := snap.LogErrors[p.Name]
		switch {
		case !ok:
			return scored{}, fmt.Errorf("no game log for %s: %w", p.Name, store.ErrMissingData)
		case errors.Is(cause, store.ErrMissingData):
			return scored{}, fmt.Errorf("no game log for %s: %w", p.Name, cause)
		default:
			// a failed fetch for one player is still missing data for the run
			return scored{}, fmt.Errorf("no game log for %s: %w: %w", p.Name, store.ErrMissingData, cause)
		}
	}
	if s.config.SampleWindow > 0 && len(games) > s.config.SampleWindow {
		games = games[:s.config.SampleWindow]
	}

	if _, ok := stats.Lookup(p.StatType); !ok {
		return scored{}, fmt.Errorf("stat type %q: %w", p.StatType, store.ErrUnrecognizedCategory)
	}

	position, err := s.position(snap.Positions, p)
	if err != nil {
		return scored{}, err
	}

	odds, err := PoissonOver(games, p.StatType, float64(p.Line))
	if err != nil {
		return scored{}, err
	}

	opponents := make([]string, len(games))
	for i, g := range games {
		opponents[i] = g.Opponent()
	}

	dvp, warn := MatchupScore(snap.Dvp, MatchupInput{
		Opponent:        p.Opponent,
		RecentOpponents: opponents,
		Position:        position,
		Category:        p.StatType,
	})

	return scored{
		row: store.ScoredProjection{
			PlayerID:       games[0].PlayerID,
			Opponent:       p.Opponent,
			Position:       position,
			Name:           p.Name,
			SetLine:        float64(p.Line),
			ProjectionType: p.StatType,
			PoissonOdds:    odds,
			DvpMetric:      dvp,
		},
		warning: warn,
	}, nil
}

// position prefers the reference table and falls back to the feed's own position
func (s *Scorer) position(table store.PositionTable, p store.Projection) (string, error) {
	if pos, ok := table[PositionTableName(p.Name)]; ok && pos != "" {
		return pos, nil
	}
	if p.Position != "" {
		return p.Position, nil
	}
	return "", fmt.Errorf("no position for %s: %w", p.Name, store.ErrMissingData)
}

func (s *Scorer) blend(row *store.ScoredProjection) {
	row.DvpMetricScaled = row.DvpMetric / s.config.DvpScaleDivisor
	row.ModelScore = row.PoissonOdds + row.DvpMetricScaled/s.config.DvpBlendDivisor
}
