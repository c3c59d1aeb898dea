package bbref

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

const perGameHTML = `<html><body>
<table id="per_game_stats">
<thead><tr><th data-stat="ranker">Rk</th><th data-stat="player">Player</th><th data-stat="pos">Pos</th><th data-stat="age">Age</th></tr></thead>
<tbody>
<tr class="full_table"><th data-stat="ranker">1</th><td data-stat="player"><a href="#">Precious Achiuwa</a></td><td data-stat="pos">C</td><td data-stat="age">22</td></tr>
<tr class="full_table"><th data-stat="ranker">2</th><td data-stat="player"><a href="#">Nikola Jokić</a></td><td data-stat="pos">C</td><td data-stat="age">26</td></tr>
<tr class="full_table"><th data-stat="ranker">3</th><td data-stat="player"><a href="#">James Harden</a></td><td data-stat="pos">SG-PG</td><td data-stat="age">32</td></tr>
<tr class="partial_table"><th data-stat="ranker">3</th><td data-stat="player"><a href="#">James Harden</a></td><td data-stat="pos">SG</td><td data-stat="age">32</td></tr>
<tr class="full_table"><th data-stat="ranker">4</th><td data-stat="player"><a href="#">Robert Williams</a></td><td data-stat="pos">C</td><td data-stat="age">24</td></tr>
<tr class="full_table"><th data-stat="ranker">5</th><td data-stat="player"><a href="#">Carmelo Anthony*</a></td><td data-stat="pos">pf</td><td data-stat="age">37</td></tr>
<tr class="thead"><th>Rk</th><th>Player</th><th>Pos</th><th>Age</th></tr>
</tbody>
</table>
</body></html>`

func TestParsePositions(t *testing.T) {
	table, err := ParsePositions(perGameHTML)
	require.NoError(t, err)

	assert.Equal(t, store.PositionTable{
		"Precious Achiuwa": "C",
		"Nikola Jokic":     "C",
		"James Harden":     "SG-PG",
		"Robert Williams":  "C",
		"Carmelo Anthony":  "PF",
	}, table)
}

func TestParsePositionsEmpty(t *testing.T) {
	_, err := ParsePositions(`<table><tr class="thead"><th>Player</th></tr></table>`)
	assert.True(t, errors.Is(err, store.ErrMissingData))
}

func TestFetchPositions(t *testing.T) {
	c := NewClient("", 5*time.Second, nil)
	httpmock.ActivateNonDefault(c.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, BaseURL,
		func(req *http.Request) (*http.Response, error) {
			assert.NotEmpty(t, req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(http.StatusOK, perGameHTML), nil
		})

	table, err := c.FetchPositions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SG-PG", table["James Harden"])
}

func TestFetchPositionsRateLimited(t *testing.T) {
	c := NewClient("", 5*time.Second, nil)
	httpmock.ActivateNonDefault(c.httpClient)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, BaseURL,
		httpmock.NewStringResponder(http.StatusTooManyRequests, "slow down"))

	_, err := c.FetchPositions(context.Background())
	assert.True(t, errors.Is(err, store.ErrUpstreamUnavailable))
}
