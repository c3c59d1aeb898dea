// Package nbastats reads player directories and game logs from the league stats API.
package nbastats

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fortuna/propscout/internal/names"
	"github.com/fortuna/propscout/internal/store"
)

const (
	// BaseURL of the stats API
	BaseURL = "https://stats.nba.com/stats"

	// UserAgent for requests; the API drops connections without browser-like headers
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	seasonTypeRegular = "Regular Season"
	leagueNBA         = "00"
)

// Options configures a Client
type Options struct {
	BaseURL        string
	Season         string // "2021-22"
	DateFrom       string // MM/DD/YYYY
	GameLogDelay   time.Duration
	LeagueLogDelay time.Duration
	Timeout        time.Duration
}

// Player is one directory entry
type Player struct {
	ID       string
	FullName string
	Team     string
	IsActive bool
}

// Client talks to the stats API with a minimum spacing between requests.
// The player directory lives for one scoring run; StartRun drops it.
type Client struct {
	opts       Options
	httpClient *http.Client
	logger     *zap.Logger

	gameLogLimiter   *rate.Limiter
	leagueLogLimiter *rate.Limiter

	mu        sync.Mutex
	directory []Player
}

// NewClient creates a stats API client
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		opts:             opts,
		httpClient:       &http.Client{Timeout: opts.Timeout},
		logger:           logger.Named("nbastats"),
		gameLogLimiter:   newLimiter(opts.GameLogDelay),
		leagueLogLimiter: newLimiter(opts.LeagueLogDelay),
	}
}

// newLimiter allows one request per interval; a non-positive interval is unlimited
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// StartRun drops the player directory so the next lookup refetches it
func (c *Client) StartRun() {
	c.mu.Lock()
	c.directory = nil
	c.mu.Unlock()
}

// FindPlayer looks a player up by full name, ignoring case and diacritics.
// The first match wins.
func (c *Client) FindPlayer(ctx context.Context, name string) (Player, error) {
	directory, err := c.players(ctx)
	if err != nil {
		return Player{}, err
	}

	want := strings.ToLower(names.Fold(name))
	for _, p := range directory {
		if strings.ToLower(names.Fold(p.FullName)) == want {
			return p, nil
		}
	}
	return Player{}, fmt.Errorf("player %q not in directory: %w", name, store.ErrMissingData)
}

// RecentGames returns up to n of a player's most recent games this season.
// Inactive and unknown players are ErrMissingData.
func (c *Client) RecentGames(ctx context.Context, name string, n int) ([]store.GameLogEntry, error) {
	player, err := c.FindPlayer(ctx, name)
	if err != nil {
		return nil, err
	}
	if !player.IsActive {
		return nil, fmt.Errorf("player %q is inactive: %w", name, store.ErrMissingData)
	}

	games, err := c.PlayerGameLogs(ctx, player.ID, n)
	if err != nil {
		return nil, fmt.Errorf("game logs for %s: %w", name, err)
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("no games for %s: %w", name, store.ErrMissingData)
	}
	return games, nil
}

// PlayerGameLogs returns the last n regular-season games for a player id
func (c *Client) PlayerGameLogs(ctx context.Context, playerID string, n int) ([]store.GameLogEntry, error) {
	q := url.Values{}
	q.Set("PlayerID", playerID)
	q.Set("Season", c.opts.Season)
	q.Set("SeasonType", seasonTypeRegular)
	q.Set("LeagueID", leagueNBA)
	if c.opts.DateFrom != "" {
		q.Set("DateFrom", c.opts.DateFrom)
	}
	if n > 0 {
		q.Set("LastNGames", strconv.Itoa(n))
	}

	body, err := c.get(ctx, "playergamelogs", q, c.gameLogLimiter)
	if err != nil {
		return nil, err
	}

	t, err := decodeTable(body, "PlayerGameLogs")
	if err != nil {
		return nil, err
	}
	if err := t.require("PLAYER_ID", "GAME_DATE", "MATCHUP", "PTS", "REB", "AST", "FG3M", "FTM", "BLK", "STL", "TOV"); err != nil {
		return nil, err
	}

	games := make([]store.GameLogEntry, 0, len(t.rows))
	for _, row := range t.rows {
		games = append(games, store.GameLogEntry{
			PlayerID:       t.str(row, "PLAYER_ID"),
			PlayerName:     t.str(row, "PLAYER_NAME"),
			GameDate:       truncateDate(t.str(row, "GAME_DATE")),
			Matchup:        t.str(row, "MATCHUP"),
			Points:         t.num(row, "PTS"),
			Rebounds:       t.num(row, "REB"),
			Assists:        t.num(row, "AST"),
			ThreesMade:     t.num(row, "FG3M"),
			FreeThrowsMade: t.num(row, "FTM"),
			Blocks:         t.num(row, "BLK"),
			Steals:         t.num(row, "STL"),
			Turnovers:      t.num(row, "TOV"),
			FantasyPoints:  t.num(row, "NBA_FANTASY_PTS"),
		})
	}
	return games, nil
}

// TeamGames returns every regular-season game date for a team, oldest first
func (c *Client) TeamGames(ctx context.Context, team string) ([]store.TeamGame, error) {
	q := url.Values{}
	q.Set("LeagueID", leagueNBA)
	q.Set("PlayerOrTeam", "T")
	q.Set("Season", c.opts.Season)
	q.Set("SeasonType", seasonTypeRegular)
	q.Set("Sorter", "DATE")
	q.Set("Direction", "ASC")
	q.Set("Counter", "0")

	body, err := c.get(ctx, "leaguegamelog", q, c.leagueLogLimiter)
	if err != nil {
		return nil, err
	}

	t, err := decodeTable(body, "LeagueGameLog")
	if err != nil {
		return nil, err
	}
	if err := t.require("TEAM_ABBREVIATION", "GAME_DATE"); err != nil {
		return nil, err
	}

	team = strings.ToUpper(strings.TrimSpace(team))
	var games []store.TeamGame
	for _, row := range t.rows {
		if t.str(row, "TEAM_ABBREVIATION") != team {
			continue
		}
		games = append(games, store.TeamGame{Team: team, GameDate: truncateDate(t.str(row, "GAME_DATE"))})
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("no games for team %s: %w", team, store.ErrMissingData)
	}
	return games, nil
}

// players returns the current run's directory, fetching it on first use
func (c *Client) players(ctx context.Context) ([]Player, error) {
	c.mu.Lock()
	directory := c.directory
	c.mu.Unlock()
	if directory != nil {
		return directory, nil
	}

	q := url.Values{}
	q.Set("LeagueID", leagueNBA)
	q.Set("Season", c.opts.Season)
	q.Set("IsOnlyCurrentSeason", "0")

	body, err := c.get(ctx, "commonallplayers", q, c.gameLogLimiter)
	if err != nil {
		return nil, err
	}

	t, err := decodeTable(body, "CommonAllPlayers")
	if err != nil {
		return nil, err
	}
	if err := t.require("PERSON_ID", "DISPLAY_FIRST_LAST", "ROSTERSTATUS"); err != nil {
		return nil, err
	}

	directory = make([]Player, 0, len(t.rows))
	for _, row := range t.rows {
		directory = append(directory, Player{
			ID:       t.str(row, "PERSON_ID"),
			FullName: t.str(row, "DISPLAY_FIRST_LAST"),
			Team:     t.str(row, "TEAM_ABBREVIATION"),
			IsActive: t.num(row, "ROSTERSTATUS") == 1,
		})
	}

	c.mu.Lock()
	c.directory = directory
	c.mu.Unlock()

	c.logger.Info("player directory fetched", zap.Int("players", len(directory)))
	return directory, nil
}

// get performs one request once the endpoint's limiter allows it
func (c *Client) get(ctx context.Context, endpoint string, q url.Values, limiter *rate.Limiter) ([]byte, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting to call %s: %w", endpoint, err)
	}

	u := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.opts.BaseURL, "/"), endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", "https://www.nba.com/")
	req.Header.Set("Origin", "https://www.nba.com")
	req.Header.Set("x-nba-stats-origin", "stats")
	req.Header.Set("x-nba-stats-token", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %d: %w", endpoint, resp.StatusCode, store.ErrUpstreamUnavailable)
	}

	c.logger.Debug("stats request", zap.String("endpoint", endpoint), zap.Int("bytes", len(body)))
	return body, nil
}

// truncateDate keeps the YYYY-MM-DD prefix of "2022-03-05T00:00:00"
func truncateDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
