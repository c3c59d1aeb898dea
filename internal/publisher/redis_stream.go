package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/scoring"
)

const (
	// BoardStream receives one entry per scored board
	BoardStream = "props.scored.basketball_nba"

	// RowStream receives one entry per scored projection
	RowStream = "props.rows.basketball_nba"

	// defaultMaxLen caps each stream; consumers read new entries, nothing reads history
	defaultMaxLen = 1000
)

// streamClient is the part of *redis.Client the publisher uses
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamPublisher publishes scored boards to Redis streams
type RedisStreamPublisher struct {
	client streamClient
	maxLen int64
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisStreamPublisher creates a publisher from an existing client
func NewRedisStreamPublisher(client streamClient, logger *zap.Logger) *RedisStreamPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStreamPublisher{
		client: client,
		maxLen: defaultMaxLen,
		logger: logger.Named("publisher"),
		now:    time.Now,
	}
}

// NewRedisClient parses a redis:// URL and checks the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return client, nil
}

// PublishBoard appends the whole report to BoardStream and each row to RowStream.
// It returns the board entry id.
func (p *RedisStreamPublisher) PublishBoard(ctx context.Context, report *scoring.Report) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding board: %w", err)
	}

	ts := p.now().Unix()
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: BoardStream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"rows":      len(report.Rows),
			"excluded":  len(report.Excluded),
			"timestamp": ts,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publishing board: %w", err)
	}

	for _, row := range report.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return id, fmt.Errorf("encoding row for %s: %w", row.Name, err)
		}
		err = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: RowStream,
			MaxLen: p.maxLen * 50,
			Approx: true,
			Values: map[string]interface{}{
				"board":     id,
				"data":      string(data),
				"timestamp": ts,
			},
		}).Err()
		if err != nil {
			return id, fmt.Errorf("publishing row for %s: %w", row.Name, err)
		}
	}

	p.logger.Info("board published", zap.String("id", id), zap.Int("rows", len(report.Rows)))
	return id, nil
}
