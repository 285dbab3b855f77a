package farmapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
)

const (
	// Well under any reasonable endpoint limit; the orchestrator reads a
	// handful of snapshots per session.
	snapshotRatePerSec = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client implements ports.SnapshotProvider against the HTTP snapshot
// endpoint. Responses are tagged SourceCache: ledger-derived and fresh
// enough to authorize a purchase, but one hop removed from the RPC read.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// NewClient creates a snapshot client for the given base URL.
func NewClient(base string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    base,
		limiter: rate.NewLimiter(snapshotRatePerSec, 5),
	}
}

// FarmSnapshot fetches GET {base}/farm?id=N with retries and backoff.
func (c *Client) FarmSnapshot(ctx context.Context, farmID uint64) (domain.FarmSnapshot, error) {
	url := fmt.Sprintf("%s/farm?id=%d", c.base, farmID)

	var body farmJSON
	if err := c.get(ctx, url, &body); err != nil {
		return domain.FarmSnapshot{}, fmt.Errorf("farmapi.FarmSnapshot(%d): %w", farmID, err)
	}
	return body.toSnapshot(domain.SourceCache), nil
}

// get performs a GET with rate limiting, retries on 429/5xx, and a no-cache
// request header so no intermediary serves a stale body.
func (c *Client) get(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("farmapi: retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
