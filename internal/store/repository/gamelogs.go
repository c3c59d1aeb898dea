package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/propscout/internal/store"
)

// GameLogRepository reads per-player recent box scores from Atlas
type GameLogRepository struct {
	db *store.Database
}

// NewGameLogRepository creates a new game log repository
func NewGameLogRepository(db *store.Database) *GameLogRepository {
	return &GameLogRepository{db: db}
}

// RecentGames returns a player's last n final games, newest first.
// The fantasy column uses the NBA fantasy formula so rows match the stats API's NBA_FANTASY_PTS.
func (r *GameLogRepository) RecentGames(ctx context.Context, name string, n int) ([]store.GameLogEntry, error) {
	query := `
		SELECT
			COALESCE(p.external_id, p.player_id::text) AS player_id,
			p.full_name,
			to_char(g.game_date, 'YYYY-MM-DD') AS game_date,
			own.abbreviation || CASE WHEN pgs.team_id = g.home_team_id THEN ' vs. ' ELSE ' @ ' END || opp.abbreviation AS matchup,
			pgs.points, pgs.rebounds, pgs.assists, pgs.three_pointers_made, pgs.free_throws_made,
			pgs.blocks, pgs.steals, pgs.turnovers,
			pgs.points + 1.2 * pgs.rebounds + 1.5 * pgs.assists + 3 * pgs.steals + 3 * pgs.blocks - pgs.turnovers AS fantasy_pts
		FROM player_game_stats pgs
		JOIN players p ON p.player_id = pgs.player_id
		JOIN games g ON pgs.game_id = g.game_id
		JOIN teams own ON own.team_id = pgs.team_id
		JOIN teams opp ON opp.team_id = CASE WHEN pgs.team_id = g.home_team_id THEN g.away_team_id ELSE g.home_team_id END
		WHERE lower(p.full_name) = lower($1) AND g.status = 'final'
		ORDER BY g.game_date DESC
		LIMIT $2
	`

	rows, err := r.db.DB().QueryContext(ctx, query, name, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent games: %w", err)
	}
	defer rows.Close()

	var games []store.GameLogEntry
	for rows.Next() {
		var (
			g                                       store.GameLogEntry
			pts, reb, ast, fg3m, ftm, blk, stl, tov int
		)
		if err := rows.Scan(
			&g.PlayerID, &g.PlayerName, &g.GameDate, &g.Matchup,
			&pts, &reb, &ast, &fg3m, &ftm, &blk, &stl, &tov,
			&g.FantasyPoints,
		); err != nil {
			return nil, fmt.Errorf("scanning game log: %w", err)
		}
		g.Points = float64(pts)
		g.Rebounds = float64(reb)
		g.Assists = float64(ast)
		g.ThreesMade = float64(fg3m)
		g.FreeThrowsMade = float64(ftm)
		g.Blocks = float64(blk)
		g.Steals = float64(stl)
		g.Turnovers = float64(tov)
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game logs: %w", err)
	}

	if len(games) == 0 {
		return nil, fmt.Errorf("no final games for %q: %w", name, store.ErrMissingData)
	}

	return games, nil
}
