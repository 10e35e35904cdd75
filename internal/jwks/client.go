package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"marketplace-iam/internal/security"
)

const fetchTimeout = 5 * time.Second

// Client fetches and caches the authority's published key set. A background
// loop refreshes it periodically; an unknown-kid verification failure should
// call Refresh for an immediate out-of-band fetch. When the authority is
// unreachable the last snapshot keeps serving until maxStale has passed.
type Client struct {
	url             string
	httpClient      *http.Client
	refreshInterval time.Duration
	maxStale        time.Duration

	mu        sync.RWMutex
	set       security.StaticKeySet
	fetchedAt time.Time
}

// NewClient returns a key-set client for the document published at url.
func NewClient(url string, refreshInterval, maxStale time.Duration) *Client {
	return &Client{
		url:             url,
		httpClient:      &http.Client{Timeout: fetchTimeout},
		refreshInterval: refreshInterval,
		maxStale:        maxStale,
	}
}

// Start fetches the initial snapshot and launches the periodic refresh loop.
// The loop stops when ctx is cancelled. Startup fails if the first fetch
// fails: a validator without keys cannot admit anything.
func (c *Client) Start(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("initial key set fetch: %w", err)
	}
	go c.loop(ctx)
	return nil
}

func (c *Client) loop(ctx context.Context) {
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				log.Printf("jwks: refresh failed, serving cached key set: %v", err)
			}
		}
	}
}

// Refresh fetches the document and replaces the cached snapshot.
func (c *Client) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("key set endpoint returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode key set: %w", err)
	}
	set, err := doc.KeySet()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.set = set
	c.fetchedAt = time.Now().UTC()
	c.mu.Unlock()
	return nil
}

// KeySet returns the cached snapshot. It fails only when the snapshot is
// older than maxStale, at which point serving stale keys is worse than
// refusing requests.
func (c *Client) KeySet(ctx context.Context) (security.StaticKeySet, error) {
	c.mu.RLock()
	set, fetchedAt := c.set, c.fetchedAt
	c.mu.RUnlock()
	if set == nil {
		return nil, fmt.Errorf("key set not loaded")
	}
	if time.Since(fetchedAt) > c.maxStale {
		return nil, fmt.Errorf("key set stale since %s", fetchedAt.Format(time.RFC3339))
	}
	return set, nil
}
