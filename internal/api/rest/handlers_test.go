package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/scoring"
	"github.com/fortuna/propscout/internal/store"
)

type fakeBoards struct {
	report *scoring.Report
}

func (f fakeBoards) Latest() *scoring.Report { return f.report }

func (f fakeBoards) GetStatus() map[string]interface{} {
	return map[string]interface{}{"has_board": f.report != nil}
}

type fakeTeams map[string][]store.TeamGame

func (f fakeTeams) TeamGames(_ context.Context, team string) ([]store.TeamGame, error) {
	games, ok := f[team]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", team, store.ErrMissingData)
	}
	return games, nil
}

func testBoard() *scoring.Report {
	return &scoring.Report{
		Rows: []store.ScoredProjection{
			{Name: "Chris Paul", ProjectionType: "Assists", ModelScore: 0.41},
			{Name: "Chris Paul", ProjectionType: "Points", ModelScore: 0.93},
			{Name: "Devin Booker", ProjectionType: "Points", ModelScore: 0.62},
		},
		Excluded: []scoring.Note{{ProjectionID: "9", Name: "Ghost Player", Reason: "no game log"}},
		Warnings: []scoring.Note{},
	}
}

func newTestRouter(report *scoring.Report) http.Handler {
	h := NewHandler(fakeBoards{report: report}, fakeTeams{
		"PHX": {
			{Team: "PHX", GameDate: "2022-03-01"},
			{Team: "PHX", GameDate: "2022-03-03"},
			{Team: "PHX", GameDate: "2022-03-05"},
		},
	})
	h.now = func() time.Time { return time.Date(2022, 3, 6, 12, 0, 0, 0, time.UTC) }
	return NewRouter(h, nil)
}

func get(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthCheck(t *testing.T) {
	rec, body := get(t, newTestRouter(testBoard()), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetBoard(t *testing.T) {
	router := newTestRouter(testBoard())

	rec, body := get(t, router, "/api/v1/board")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])

	_, body = get(t, router, "/api/v1/board?stat_type=Points&sort=model_score")
	rows := body["rows"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, 0.93, rows[0].(map[string]interface{})["model_score"])
	assert.Equal(t, "Devin Booker", rows[1].(map[string]interface{})["name"])

	rec, _ = get(t, router, "/api/v1/board?sort=random")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBoardBeforeFirstRun(t *testing.T) {
	rec, body := get(t, newTestRouter(nil), "/api/v1/board")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "No board scored yet", body["error"])
}

func TestGetExcluded(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(testBoard()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/board/excluded", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var notes []scoring.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "Ghost Player", notes[0].Name)
}

func TestGetPlayerRows(t *testing.T) {
	router := newTestRouter(testBoard())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/board/players/chris%20paul", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []store.ScoredProjection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)

	rec, _ = get(t, router, "/api/v1/board/players/Nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTeamRest(t *testing.T) {
	router := newTestRouter(testBoard())

	rec, body := get(t, router, "/api/v1/teams/phx/rest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PHX played yesterday", body["description"])
	rest := body["rest"].(map[string]interface{})
	assert.Equal(t, "played_yesterday", rest["situation"])

	rec, _ = get(t, router, "/api/v1/teams/XYZ/rest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, router, "/api/v1/teams/PHOENIX/rest")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
