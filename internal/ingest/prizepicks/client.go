package prizepicks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/store"
)

const (
	BaseURL   = "https://partner-api.prizepicks.com/projections"
	LeagueNBA = 7
	perPage   = 1000
)

// Client fetches the day's projection board
type Client struct {
	baseURL    string
	leagueID   int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a projections client. An empty baseURL uses BaseURL.
func NewClient(baseURL string, leagueID int, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		leagueID:   leagueID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("prizepicks"),
	}
}

// FetchProjections returns today's single-stat projections.
// An empty board is ErrUpstreamUnavailable: there is nothing to score.
func (c *Client) FetchProjections(ctx context.Context) ([]store.Projection, error) {
	q := url.Values{}
	q.Set("single_stat", "True")
	q.Set("league_id", strconv.Itoa(c.leagueID))
	q.Set("per_page", strconv.Itoa(perPage))
	endpoint := c.baseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching projections: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading projections: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("projections returned %d: %w", resp.StatusCode, store.ErrUpstreamUnavailable)
	}

	projections, dropped, err := ParseProjections(body)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		c.logger.Warn("projections dropped without player record", zap.Int("dropped", dropped))
	}
	if len(projections) == 0 {
		return nil, fmt.Errorf("no NBA lines available: %w", store.ErrUpstreamUnavailable)
	}

	c.logger.Info("projections fetched", zap.Int("count", len(projections)))
	return projections, nil
}
