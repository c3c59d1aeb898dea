package nbastats

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/propscout/internal/store"
)

const playersJSON = `{"resultSets":[{"name":"CommonAllPlayers",
 "headers":["PERSON_ID","DISPLAY_LAST_COMMA_FIRST","DISPLAY_FIRST_LAST","ROSTERSTATUS","TEAM_ABBREVIATION"],
 "rowSet":[
  [2544,"James, LeBron","LeBron James",1,"LAL"],
  [203999,"Jokic, Nikola","Nikola Jokić",1,"DEN"],
  [2546,"Anthony, Carmelo","Carmelo Anthony",0,""]
 ]}]}`

const gameLogsJSON = `{"resultSets":[{"name":"PlayerGameLogs",
 "headers":["SEASON_YEAR","PLAYER_ID","PLAYER_NAME","GAME_DATE","MATCHUP","PTS","REB","AST","FG3M","FTM","BLK","STL","TOV","NBA_FANTASY_PTS"],
 "rowSet":[
  ["2021-22",2544,"LeBron James","2022-03-05T00:00:00","LAL @ GSW",31,7,5,3,6,1,2,4,51.4],
  ["2021-22",2544,"LeBron James","2022-03-03T00:00:00","LAL vs. LAC",26,9,8,2,4,0,1,3,48.7]
 ]}]}`

const leagueLogJSON = `{"resultSets":[{"name":"LeagueGameLog",
 "headers":["SEASON_ID","TEAM_ID","TEAM_ABBREVIATION","GAME_DATE","MATCHUP"],
 "rowSet":[
  ["22021",1610612747,"LAL","2022-03-01","LAL vs. NOP"],
  ["22021",1610612744,"GSW","2022-03-01","GSW @ MIA"],
  ["22021",1610612747,"LAL","2022-03-03","LAL vs. LAC"],
  ["22021",1610612747,"LAL","2022-03-05","LAL @ GSW"]
 ]}]}`

func newMockedClient(t *testing.T) *Client {
	t.Helper()
	c := NewClient(Options{Season: "2021-22", DateFrom: "10/31/2021", Timeout: 5 * time.Second}, nil)
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestRecentGames(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/commonallplayers",
		httpmock.NewStringResponder(http.StatusOK, playersJSON))
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/playergamelogs",
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			assert.Equal(t, "2544", q.Get("PlayerID"))
			assert.Equal(t, "2021-22", q.Get("Season"))
			assert.Equal(t, "10/31/2021", q.Get("DateFrom"))
			assert.Equal(t, "10", q.Get("LastNGames"))
			assert.Equal(t, "stats", req.Header.Get("x-nba-stats-origin"))
			return httpmock.NewStringResponse(http.StatusOK, gameLogsJSON), nil
		})

	games, err := c.RecentGames(context.Background(), "LeBron James", 10)
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Equal(t, store.GameLogEntry{
		PlayerID:       "2544",
		PlayerName:     "LeBron James",
		GameDate:       "2022-03-05",
		Matchup:        "LAL @ GSW",
		Points:         31,
		Rebounds:       7,
		Assists:        5,
		ThreesMade:     3,
		FreeThrowsMade: 6,
		Blocks:         1,
		Steals:         2,
		Turnovers:      4,
		FantasyPoints:  51.4,
	}, games[0])
	assert.Equal(t, "GSW", games[0].Opponent())

	// the directory is reused for the second lookup
	_, err = c.RecentGames(context.Background(), "LeBron James", 10)
	require.NoError(t, err)
	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["GET "+BaseURL+"/commonallplayers"])
}

func TestFindPlayerFoldsAccents(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/commonallplayers",
		httpmock.NewStringResponder(http.StatusOK, playersJSON))

	p, err := c.FindPlayer(context.Background(), "nikola jokic")
	require.NoError(t, err)
	assert.Equal(t, "203999", p.ID)
	assert.True(t, p.IsActive)
}

func TestRecentGamesMissingPlayers(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/commonallplayers",
		httpmock.NewStringResponder(http.StatusOK, playersJSON))

	_, err := c.RecentGames(context.Background(), "Carmelo Anthony", 10)
	assert.True(t, errors.Is(err, store.ErrMissingData), "inactive player")

	_, err = c.RecentGames(context.Background(), "Nobody Atall", 10)
	assert.True(t, errors.Is(err, store.ErrMissingData), "unknown player")

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestRecentGamesUpstreamError(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/commonallplayers",
		httpmock.NewStringResponder(http.StatusOK, playersJSON))
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/playergamelogs",
		httpmock.NewStringResponder(http.StatusBadGateway, ""))

	_, err := c.RecentGames(context.Background(), "LeBron James", 10)
	assert.True(t, errors.Is(err, store.ErrUpstreamUnavailable))
}

func TestTeamGames(t *testing.T) {
	c := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/leaguegamelog",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "T", req.URL.Query().Get("PlayerOrTeam"))
			return httpmock.NewStringResponse(http.StatusOK, leagueLogJSON), nil
		})

	games, err := c.TeamGames(context.Background(), "lal")
	require.NoError(t, err)
	assert.Equal(t, []store.TeamGame{
		{Team: "LAL", GameDate: "2022-03-01"},
		{Team: "LAL", GameDate: "2022-03-03"},
		{Team: "LAL", GameDate: "2022-03-05"},
	}, games)

	_, err = c.TeamGames(context.Background(), "XYZ")
	assert.True(t, errors.Is(err, store.ErrMissingData))
}

func TestLimiterHonorsContext(t *testing.T) {
	l := newLimiter(time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestRequestsWaitForLimiter(t *testing.T) {
	c := NewClient(Options{GameLogDelay: time.Hour, Timeout: 5 * time.Second}, nil)
	httpmock.ActivateNonDefault(c.httpClient)
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/commonallplayers",
		httpmock.NewStringResponder(http.StatusOK, playersJSON))

	_, err := c.FindPlayer(context.Background(), "LeBron James")
	require.NoError(t, err)

	// the second game-log request would have to wait an hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.PlayerGameLogs(ctx, "2544", 10)
	assert.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestStartRunRefetchesDirectory(t *testing.T) {
	c := newMockedClient(t)
	inactive := `{"resultSets":[{"name":"CommonAllPlayers",
 "headers":["PERSON_ID","DISPLAY_FIRST_LAST","ROSTERSTATUS"],
 "rowSet":[[2544,"LeBron James",0]]}]}`
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/commonallplayers",
		httpmock.NewStringResponder(http.StatusOK, playersJSON).
			Then(httpmock.NewStringResponder(http.StatusOK, inactive)))
	httpmock.RegisterResponder(http.MethodGet, BaseURL+"/playergamelogs",
		httpmock.NewStringResponder(http.StatusOK, gameLogsJSON))

	c.StartRun()
	_, err := c.RecentGames(context.Background(), "LeBron James", 10)
	require.NoError(t, err)

	c.StartRun()
	_, err = c.RecentGames(context.Background(), "LeBron James", 10)
	assert.True(t, errors.Is(err, store.ErrMissingData), "inactive in the second run's directory")

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 2, info["GET "+BaseURL+"/commonallplayers"])
}

func TestDecodeTableMissingSet(t *testing.T) {
	_, err := decodeTable([]byte(`{"resultSets":[]}`), "PlayerGameLogs")
	assert.Error(t, err)
}
