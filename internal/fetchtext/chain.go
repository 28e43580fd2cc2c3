package fetchtext

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Chain tries fetchers in priority order until one returns non-empty
// content. Its contract is deliberately soft: the caller always receives a
// string, possibly empty, never an error. Evidence gathering must degrade,
// not fail, when a source is unreachable.
type Chain struct {
	fetchers []Fetcher
	timeout  time.Duration
}

// NewChain creates a Chain. Fetchers are tried in the order given; each call
// is bounded by the per-fetch timeout.
func NewChain(timeout time.Duration, fetchers ...Fetcher) *Chain {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Chain{fetchers: fetchers, timeout: timeout}
}

// FetchText returns the first non-empty body produced by the chain, or ""
// when every strategy failed or timed out.
func (c *Chain) FetchText(ctx context.Context, targetURL string) string {
	for _, f := range c.fetchers {
		fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
		body, err := f.FetchText(fetchCtx, targetURL)
		cancel()

		if err != nil {
			zap.L().Debug("fetchtext: strategy failed, trying next",
				zap.String("fetcher", f.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			continue
		}
		if body != "" {
			return body
		}
	}
	return ""
}
