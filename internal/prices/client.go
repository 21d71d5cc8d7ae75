package prices

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"trade-tracker-go/internal/config"
	"trade-tracker-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client fetches item exchange prices and item metadata from a wiki-style
// price API and serves them from an in-memory cache. Lookups never touch the
// network; the cache is refreshed by Run on a background goroutine, so the
// tracker loop can read prices without blocking.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	refresh time.Duration

	mu     sync.RWMutex
	prices map[int]int
	names  map[int]string
	noted  map[int]int // noted id -> canonical id
}

// NewClient creates a price client from config.
func NewClient(cfg *config.Prices, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", cfg.UserAgent)

	return &Client{
		client:  client,
		logger:  logger.Named("prices"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		refresh: time.Duration(cfg.RefreshInterval) * time.Second,
		prices:  make(map[int]int),
		names:   make(map[int]string),
		noted:   make(map[int]int),
	}
}

// Run loads the item mapping once, then refreshes the price map on a ticker
// until the context is cancelled.
func (c *Client) Run(ctx context.Context) {
	if err := c.RefreshMapping(ctx); err != nil {
		c.logger.Error("Failed to load item mapping", zap.Error(err))
	}
	if err := c.RefreshPrices(ctx); err != nil {
		c.logger.Error("Failed to load item prices", zap.Error(err))
	}

	ticker := time.NewTicker(c.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.RefreshPrices(ctx); err != nil {
				c.logger.Error("Price refresh failed", zap.Error(err))
			}
		}
	}
}

// Price returns an item's exchange value in coins, or zero when unknown.
// Coins are always worth themselves and platinum tokens 1000 coins.
func (c *Client) Price(id int) int {
	switch id {
	case models.ItemIDCoins:
		return 1
	case models.ItemIDPlatinum:
		return 1000
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prices[id]
}

// ItemName returns the item's display name, if the mapping knows it.
func (c *Client) ItemName(id int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[id]
	return name, ok
}

// UnnotedID returns the canonical id for a noted item id, or zero when the
// id is not a noted form.
func (c *Client) UnnotedID(id int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.noted[id]
}

// latestEntry is one item's price quote in the /latest response.
type latestEntry struct {
	High int `json:"high"`
	Low  int `json:"low"`
}

type latestResponse struct {
	Data map[string]latestEntry `json:"data"`
}

// RefreshPrices replaces the cached price map from the /latest endpoint.
func (c *Client) RefreshPrices(ctx context.Context) error {
	var latest latestResponse
	req := c.client.R().
		SetContext(ctx).
		SetResult(&latest)

	if _, err := c.doRequest(ctx, http.MethodGet, "/latest", req); err != nil {
		return fmt.Errorf("failed to get latest prices: %w", err)
	}

	prices := make(map[int]int, len(latest.Data))
	for key, entry := range latest.Data {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		price := entry.High
		if entry.Low > 0 {
			if price > 0 {
				price = (entry.High + entry.Low) / 2
			} else {
				price = entry.Low
			}
		}
		if price > 0 {
			prices[id] = price
		}
	}

	c.mu.Lock()
	c.prices = prices
	c.mu.Unlock()
	c.logger.Debug("Refreshed item prices", zap.Int("count", len(prices)))
	return nil
}

// mappingEntry is one item's metadata in the /mapping response.
type mappingEntry struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Value   int    `json:"value"`
	NotedID int    `json:"noted_id,omitempty"`
}

// RefreshMapping replaces the cached item names and noted-item links.
func (c *Client) RefreshMapping(ctx context.Context) error {
	var mapping []mappingEntry
	req := c.client.R().
		SetContext(ctx).
		SetResult(&mapping)

	if _, err := c.doRequest(ctx, http.MethodGet, "/mapping", req); err != nil {
		return fmt.Errorf("failed to get item mapping: %w", err)
	}

	names := make(map[int]string, len(mapping))
	noted := make(map[int]int)
	for _, entry := range mapping {
		names[entry.ID] = entry.Name
		if entry.NotedID > 0 {
			// The mapping lists canonical items with their noted variant;
			// invert it so lookups go noted -> canonical.
			noted[entry.NotedID] = entry.ID
			names[entry.NotedID] = entry.Name
		}
	}

	c.mu.Lock()
	c.names = names
	c.noted = noted
	c.mu.Unlock()
	c.logger.Debug("Refreshed item mapping", zap.Int("count", len(names)))
	return nil
}

// doRequest executes the request under the rate limiter. Rate-limit
// responses, server errors and transport failures are retried with doubling
// backoff; anything else fails straight away.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	const maxRetries = 3
	var resp *resty.Response
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		var wait time.Duration
		switch {
		case resp == nil || resp.StatusCode() == 0:
			// Transport failure, worth another attempt.
		case resp.StatusCode() == http.StatusTooManyRequests:
			if seconds, parseErr := strconv.Atoi(resp.Header().Get("Retry-After")); parseErr == nil {
				wait = time.Duration(seconds) * time.Second
			}
		case resp.StatusCode() >= 500:
		default:
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		if wait == 0 {
			wait = time.Duration(1<<attempt) * time.Second
		}
		c.logger.Warn("Request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
