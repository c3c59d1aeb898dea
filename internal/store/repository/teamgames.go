package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/fortuna/propscout/internal/store"
)

// TeamGameRepository reads a team's schedule from Atlas
type TeamGameRepository struct {
	db     *store.Database
	season string
}

// NewTeamGameRepository creates a schedule repository scoped to a season ("2021-22")
func NewTeamGameRepository(db *store.Database, season string) *TeamGameRepository {
	return &TeamGameRepository{db: db, season: season}
}

// TeamGames returns a team's final games for the season, oldest first
func (r *TeamGameRepository) TeamGames(ctx context.Context, team string) ([]store.TeamGame, error) {
	query := `
		SELECT t.abbreviation, to_char(g.game_date, 'YYYY-MM-DD')
		FROM games g
		JOIN seasons s ON s.season_id = g.season_id
		JOIN teams t ON t.team_id IN (g.home_team_id, g.away_team_id)
		WHERE t.abbreviation = $1 AND s.season_year = $2 AND g.status = 'final'
		ORDER BY g.game_date ASC
	`

	team = strings.ToUpper(strings.TrimSpace(team))
	rows, err := r.db.DB().QueryContext(ctx, query, team, r.season)
	if err != nil {
		return nil, fmt.Errorf("querying team games: %w", err)
	}
	defer rows.Close()

	var games []store.TeamGame
	for rows.Next() {
		var g store.TeamGame
		if err := rows.Scan(&g.Team, &g.GameDate); err != nil {
			return nil, fmt.Errorf("scanning team game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team games: %w", err)
	}

	if len(games) == 0 {
		return nil, fmt.Errorf("no final games for team %s: %w", team, store.ErrMissingData)
	}
	return games, nil
}
