// Package bbref loads the player position table from the league per-game stats page.
package bbref

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/store"
)

const (
	// BaseURL is the 2021-22 per-game page
	BaseURL = "https://www.basketball-reference.com/leagues/NBA_2022_per_game.html"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client fetches the position table
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a position-table client. An empty url uses BaseURL.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if url == "" {
		url = BaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("positions"),
	}
}

// FetchPositions downloads and parses the per-game page
func (c *Client) FetchPositions(ctx context.Context) (store.PositionTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("positions page returned %d: %w", resp.StatusCode, store.ErrUpstreamUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading positions page: %w", err)
	}

	table, err := ParsePositions(string(body))
	if err != nil {
		return nil, err
	}

	c.logger.Info("position table fetched", zap.Int("players", len(table)))
	return table, nil
}
