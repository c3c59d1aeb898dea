package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Projection is one prop line for one player from the daily projections feed
type Projection struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Line      LineScore `json:"line_score"`
	StatType  string    `json:"stat_type"`
	Opponent  string    `json:"opponent"`
	IsPromo   bool      `json:"is_promo"`
	Position  string    `json:"position,omitempty"`
	Team      string    `json:"team,omitempty"`
	TeamName  string    `json:"team_name,omitempty"`
	Market    string    `json:"market,omitempty"`
	UpdatedAt string    `json:"updated_at,omitempty"`
	StartTime string    `json:"start_time,omitempty"`
}

// LineScore is a posted line. The feed sends it either as a JSON number or a numeric string.
type LineScore float64

// UnmarshalJSON accepts 24.5 and "24.5". Non-finite values such as "NaN" are rejected.
func (l *LineScore) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*l = 0
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parsing line score %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("line score %q is not finite", raw)
	}
	*l = LineScore(v)
	return nil
}

// GameLogEntry is one completed game's box score for one player
type GameLogEntry struct {
	PlayerID       string  `json:"player_id"`
	PlayerName     string  `json:"player_name"`
	GameDate       string  `json:"game_date"` // YYYY-MM-DD
	Matchup        string  `json:"matchup"`   // e.g. "LAL vs. GSW", "LAL @ GSW"
	Points         float64 `json:"pts"`
	Rebounds       float64 `json:"reb"`
	Assists        float64 `json:"ast"`
	ThreesMade     float64 `json:"fg3m"`
	FreeThrowsMade float64 `json:"ftm"`
	Blocks         float64 `json:"blk"`
	Steals         float64 `json:"stl"`
	Turnovers      float64 `json:"tov"`
	FantasyPoints  float64 `json:"nba_fantasy_pts"`
}

// Opponent returns the opponent team code embedded in the matchup string (its last 3 characters)
func (g GameLogEntry) Opponent() string {
	m := strings.TrimSpace(g.Matchup)
	if len(m) < 3 {
		return m
	}
	return m[len(m)-3:]
}

// DvpAggregate is what one team allowed to one position over the trailing window
type DvpAggregate struct {
	Team       string  `json:"team"`
	Position   string  `json:"position"`
	Points     float64 `json:"pts"`
	FGPct      float64 `json:"fg_pct"`
	FTPct      float64 `json:"ft_pct"`
	ThreesMade float64 `json:"3pm"`
	Rebounds   float64 `json:"reb"`
	Assists    float64 `json:"ast"`
	Steals     float64 `json:"stl"`
	Blocks     float64 `json:"blk"`
	Turnovers  float64 `json:"to"`
}

// PositionTable maps a player name to a position code ("PG", "SF", "PF-C", ...)
type PositionTable map[string]string

// ScoredProjection is one row of the scoring output
type ScoredProjection struct {
	PlayerID        string  `json:"player_id"`
	Opponent        string  `json:"opponent"`
	Position        string  `json:"position"`
	Name            string  `json:"name"`
	SetLine         float64 `json:"set_line"`
	ProjectionType  string  `json:"projection_type"`
	PoissonOdds     float64 `json:"poisson_odds"`
	DvpMetric       float64 `json:"dvp_metric"`
	DvpMetricScaled float64 `json:"dvp_metric_scaled"`
	ModelScore      float64 `json:"model_score"`
}

// TeamGame is one league game-log row for a team, used for rest situations
type TeamGame struct {
	Team     string `json:"team"`
	GameDate string `json:"game_date"` // YYYY-MM-DD
}
