package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/sprite-ai/codeq/internal/config"
)

// NewFromConfig picks the client named by cfg. A backend that cannot be
// constructed degrades to the stub with a warning.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		client Client
		err    error
	)
	switch provider := cfg.ResolvedProvider(); provider {
	case config.ProviderGemini:
		client, err = NewGemini(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model)
	case config.ProviderOpenAI:
		client, err = NewOpenAI(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.BaseURL, cfg.AI.OpenAI.Model)
	default:
		return NewStub()
	}
	if err != nil {
		logger.Warn("ai backend unavailable, falling back to stub", zap.Error(err))
		return NewStub()
	}

	logger.Debug("ai backend ready", zap.String("backend", client.Name()))
	return client
}

// NewGuardFromConfig builds a Guard with the timeout and rate limit from cfg.
func NewGuardFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger, observer Observer) *Guard {
	return NewGuard(NewFromConfig(ctx, cfg, logger),
		WithTimeout(cfg.AI.Timeout),
		WithRateLimit(cfg.AI.RequestsPerMinute, cfg.AI.Burst),
		WithLogger(logger),
		WithObserver(observer),
	)
}
