package hashtag

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/fortuna/propscout/internal/store"
)

const (
	// BaseURL of the defense-vs-position page
	BaseURL = "https://hashtagbasketball.com/nba-defense-vs-position"

	// UserAgent for the headless browser
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	durationSelect = `select[name="ctl00$ContentPlaceHolder1$DDDURATION"]`
)

// Client scrapes the DVP grid with a headless browser; the duration dropdown posts back
// through ASP.NET, so a plain HTTP GET only ever sees the season-long table.
type Client struct {
	url        string
	windowDays int
	logger     *zap.Logger

	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewClient creates a DVP scraper for a trailing window (in days) offered by the page
func NewClient(url string, windowDays int, logger *zap.Logger) *Client {
	if url == "" {
		url = BaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(UserAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Client{
		url:        url,
		windowDays: windowDays,
		logger:     logger.Named("dvp"),
		allocCtx:   allocCtx,
		cancel:     cancel,
	}
}

// Close releases the browser allocator
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// FetchDvp selects the trailing window and parses the resulting grid
func (c *Client) FetchDvp(ctx context.Context) ([]store.DvpAggregate, error) {
	html, err := c.fetchGrid(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := ParseDvpTable(html)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dvp grid is empty: %w", store.ErrUpstreamUnavailable)
	}

	c.logger.Info("dvp table fetched", zap.Int("rows", len(rows)), zap.Int("window_days", c.windowDays))
	return rows, nil
}

func (c *Client) fetchGrid(ctx context.Context) (string, error) {
	browserCtx, cancel := chromedp.NewContext(c.allocCtx)
	defer cancel()

	// browser contexts do not inherit ctx; bound them by the caller's deadline or 60s
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(60 * time.Second)
	}
	browserCtx, cancel = context.WithDeadline(browserCtx, deadline)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(c.url),
		chromedp.WaitVisible(durationSelect, chromedp.ByQuery),
		chromedp.SetValue(durationSelect, strconv.Itoa(c.windowDays), chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(
			`document.querySelector(%q).dispatchEvent(new Event('change', {bubbles: true}))`, durationSelect), nil),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.WaitVisible("#"+GridID, chromedp.ByQuery),
		chromedp.OuterHTML("#"+GridID, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp error: %w", err)
	}
	if html == "" {
		return "", fmt.Errorf("empty dvp grid returned")
	}

	return html, nil
}
