package advisor

import (
	"context"
	"fmt"

	"github.com/opensource-finance/finsight/internal/domain"
)

// New builds the configured text generator. It returns nil for the "none"
// provider. When c is not nil responses are cached and rate limited.
func New(ctx context.Context, cfg domain.AdvisorConfig, c domain.Cache) (domain.TextGenerator, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil

	case "gemini":
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return g, nil
		}
		return NewCached(g, c, cfg), nil

	default:
		return nil, fmt.Errorf("%w: unsupported advisor provider: %s", domain.ErrInvalidInput, cfg.Provider)
	}
}
