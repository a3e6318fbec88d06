// Package friends reads the opaque friend count from the external social
// graph service. The graph itself is owned by another system; profile reads
// only ever display a count, so failures here must never fail the profile.
package friends

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"wayfarer/pkg/platform/circuit"
)

const (
	defaultRequestTimeout = 2 * time.Second
	defaultCooldown       = 15 * time.Second
)

// Client calls the friend-graph HTTP API behind a circuit breaker. While the
// breaker is open every lookup short-circuits to an error, which the profile
// service treats as "count unavailable"; after a cooldown one request is let
// through to probe.
type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *circuit.Breaker
	logger   *slog.Logger
	cooldown time.Duration

	mu        sync.Mutex
	nextProbe time.Time
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: defaultRequestTimeout},
		breaker:  circuit.New("friend-graph"),
		logger:   logger,
		cooldown: defaultCooldown,
	}
}

type countResponse struct {
	Count int `json:"count"`
}

// CountFriends returns the friend count for a user, or an error when the
// graph is unreachable or the circuit is open.
func (c *Client) CountFriends(ctx context.Context, userID string) (int, error) {
	if c.breaker.IsOpen() && !c.probeDue() {
		return 0, fmt.Errorf("friend graph circuit open")
	}

	endpoint := fmt.Sprintf("%s/users/%s/friends/count", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build friend count request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(ctx, err)
		return 0, fmt.Errorf("friend count request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("friend graph returned %d", resp.StatusCode)
		c.recordFailure(ctx, err)
		return 0, err
	}

	var body countResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.recordFailure(ctx, err)
		return 0, fmt.Errorf("decode friend count: %w", err)
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "friend graph circuit closed")
	}
	return body.Count, nil
}

// probeDue lets one request through per cooldown window while the circuit is
// open.
func (c *Client) probeDue() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Before(c.nextProbe) {
		return false
	}
	c.nextProbe = now.Add(c.cooldown)
	return true
}

func (c *Client) recordFailure(ctx context.Context, err error) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "friend graph circuit opened", "error", err)
	}
}
