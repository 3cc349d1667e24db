package advisor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/opensource-finance/finsight/internal/cache"
	"github.com/opensource-finance/finsight/internal/domain"
)

const (
	cacheScope = "advisor"
	quotaKey   = "generations"
)

// Cached memoises generated lines by prompt and caps generations per hour.
type Cached struct {
	next  domain.TextGenerator
	cache domain.Cache
	ttl   time.Duration
	quota int64
}

// NewCached wraps next. A quota of zero disables the hourly limit.
func NewCached(next domain.TextGenerator, c domain.Cache, cfg domain.AdvisorConfig) *Cached {
	ttl := time.Duration(cfg.CacheTTLSecs) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cached{
		next:  next,
		cache: c,
		ttl:   ttl,
		quota: cfg.QuotaPerHour,
	}
}

// Available reports whether the wrapped generator is available.
func (c *Cached) Available() bool {
	return c.next.Available()
}

// Generate returns memoised lines for prompt or generates new ones within
// the hourly quota. Cache failures never block generation.
func (c *Cached) Generate(ctx context.Context, prompt string, maxLines int) ([]string, error) {
	key := promptKey(prompt, maxLines)

	lines, ok, err := cache.GetJSON[[]string](ctx, c.cache, cacheScope, key)
	if err != nil {
		slog.Warn("advisor cache read failed", "error", err)
	}
	if ok {
		return lines, nil
	}

	if c.quota > 0 {
		n, err := c.cache.IncrementCounter(ctx, cacheScope, quotaKey, time.Hour)
		if err != nil {
			slog.Warn("advisor quota check failed", "error", err)
		} else if n > c.quota {
			return nil, fmt.Errorf("%w: hourly quota of %d reached", domain.ErrTextGenUnavailable, c.quota)
		}
	}

	lines, err = c.next.Generate(ctx, prompt, maxLines)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, c.cache, cacheScope, key, lines, c.ttl); err != nil {
		slog.Warn("advisor cache write failed", "error", err)
	}
	return lines, nil
}

func promptKey(prompt string, maxLines int) string {
	sum := sha256.Sum256([]byte(strconv.Itoa(maxLines) + "\n" + prompt))
	return hex.EncodeToString(sum[:])
}

var _ domain.TextGenerator = (*Cached)(nil)
