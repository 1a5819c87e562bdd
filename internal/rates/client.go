// Package rates fetches daily exchange rates over HTTP.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/logging"
)

const (
	defaultTimeout = 10 * time.Second
	dateLayout     = "2006-01-02"
	maxBodyBytes   = 1 << 20
)

// Client looks up rates at {baseURL}/{YYYY-MM-DD}/{currency} and reads the
// JSON field named by the upper-cased currency. Rates for a past day do
// not change, so successful lookups are cached for the process lifetime.
type Client struct {
	httpClient *http.Client
	baseURL    string

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]decimal.Decimal
}

var _ core.RateSource = (*Client)(nil)

// NewClient creates a rate client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		cache:      make(map[string]decimal.Decimal),
	}
}

// Rate returns the rate for currency on date. Every failure wraps
// core.ErrRateUnavailable.
func (c *Client) Rate(ctx context.Context, date time.Time, currency string) (decimal.Decimal, error) {
	code := strings.ToLower(strings.TrimSpace(currency))
	if code == "" {
		return decimal.Zero, fmt.Errorf("%w: empty currency", core.ErrRateUnavailable)
	}
	key := date.Format(dateLayout) + "/" + code

	c.mu.RLock()
	rate, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return rate, nil
	}

	// Shared by every caller waiting on key; bounded by the client timeout
	// rather than the first caller's context.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		rate, err := c.fetch(fetchCtx, key, code)
		if err != nil {
			return decimal.Zero, err
		}
		c.mu.Lock()
		c.cache[key] = rate
		c.mu.Unlock()
		return rate, nil
	})

	select {
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("%w: %v", core.ErrRateUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			logging.FromContext(ctx).Warn("exchange rate lookup failed", "key", key, "error", res.Err)
			return decimal.Zero, fmt.Errorf("%w: %v", core.ErrRateUnavailable, res.Err)
		}
		return res.Val.(decimal.Decimal), nil
	}
}

func (c *Client) fetch(ctx context.Context, path, code string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("status %d", resp.StatusCode)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return decimal.Zero, fmt.Errorf("decode response: %w", err)
	}
	raw, ok := fields[strings.ToUpper(code)]
	if !ok {
		return decimal.Zero, fmt.Errorf("field %s missing", strings.ToUpper(code))
	}

	var rate decimal.Decimal
	if err := rate.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate: %w", err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive rate %s", rate)
	}
	return rate, nil
}
