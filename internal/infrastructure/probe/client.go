package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds HTTP prober settings
type Config struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	UserAgent     string
}

// Client issues header-only requests against image hosts
type Client struct {
	httpClient  *http.Client
	userAgent   string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new prober. Redirects are not followed so a moved image reports its 3xx status.
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = 10
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.UserAgent == "" {
		config.UserAgent = "stanslist-imagesync/1.0"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:   config.UserAgent,
		rateLimiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		logger:      logger.Named("probe"),
	}
}

// Head returns the status code of a HEAD request to url. There is no retry:
// a transport failure is returned as is and callers treat it as unreachable.
func (c *Client) Head(ctx context.Context, url string) (int, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("probe failed", zap.String("url", url), zap.Error(err))
		return 0, err
	}
	resp.Body.Close()

	return resp.StatusCode, nil
}
