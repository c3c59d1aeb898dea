package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/propscout/internal/scoring"
	"github.com/fortuna/propscout/internal/store"
)

type fakeStreams struct {
	adds []*redis.XAddArgs
	err  error
}

func (f *fakeStreams) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.adds = append(f.adds, a)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	return redis.NewStringResult("1646580000000-0", nil)
}

func testReport() *scoring.Report {
	return &scoring.Report{
		Rows: []store.ScoredProjection{
			{PlayerID: "101108", Name: "Chris Paul", ProjectionType: "Points", SetLine: 14.5, PoissonOdds: 0.4, ModelScore: 0.7},
			{PlayerID: "1626164", Name: "Devin Booker", ProjectionType: "Points", SetLine: 26.5, PoissonOdds: 0.5, ModelScore: 0.6},
		},
		Excluded: []scoring.Note{{Name: "Ghost Player", Reason: "no game log"}},
		Warnings: []scoring.Note{},
	}
}

func TestPublishBoard(t *testing.T) {
	streams := &fakeStreams{}
	p := NewRedisStreamPublisher(streams, nil)
	p.now = func() time.Time { return time.Unix(1646580000, 0) }

	id, err := p.PublishBoard(context.Background(), testReport())
	require.NoError(t, err)
	assert.Equal(t, "1646580000000-0", id)

	require.Len(t, streams.adds, 3)
	board := streams.adds[0]
	assert.Equal(t, BoardStream, board.Stream)
	assert.True(t, board.Approx)
	assert.EqualValues(t, defaultMaxLen, board.MaxLen)

	values := board.Values.(map[string]interface{})
	assert.Equal(t, 2, values["rows"])
	assert.Equal(t, 1, values["excluded"])
	assert.EqualValues(t, 1646580000, values["timestamp"])

	var decoded scoring.Report
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &decoded))
	assert.Equal(t, "Chris Paul", decoded.Rows[0].Name)

	for _, row := range streams.adds[1:] {
		assert.Equal(t, RowStream, row.Stream)
		assert.Equal(t, id, row.Values.(map[string]interface{})["board"])
	}
}

func TestPublishBoardError(t *testing.T) {
	streams := &fakeStreams{err: errors.New("READONLY")}
	p := NewRedisStreamPublisher(streams, nil)

	_, err := p.PublishBoard(context.Background(), testReport())
	assert.ErrorContains(t, err, "publishing board")
	assert.Len(t, streams.adds, 1)
}
