package service

import (
	"context"
	"fmt"

	"github.com/okian/rehabchat/internal/adapters/fallback"
	"github.com/okian/rehabchat/internal/adapters/llm"
	"github.com/okian/rehabchat/internal/config"
	"github.com/okian/rehabchat/internal/domain/query"
	"github.com/okian/rehabchat/pkg/logger"
)

// FromConfig builds an unstarted Service with the parser and fallback the
// configuration selects.
func FromConfig(ctx context.Context, cfg *config.Config, l logger.Logger) (*Service, error) {
	parser, err := NewParser(ctx, cfg, l)
	if err != nil {
		return nil, err
	}
	dispatcher, err := NewFallback(cfg, l)
	if err != nil {
		return nil, err
	}
	return New(
		WithCSVPath(cfg.CSVPath),
		WithMetrics(cfg.MetricColumns()),
		WithParser(parser),
		WithFallback(dispatcher),
		WithLogger(l),
	), nil
}

// NewParser builds the configured question parser, wrapped in the parse
// cache when parse_cache_size is positive.
func NewParser(ctx context.Context, cfg *config.Config, l logger.Logger) (llm.Parser, error) {
	metricCols := cfg.MetricColumns()
	if len(metricCols) == 0 {
		metricCols = query.DefaultMetrics
	}
	opts := []llm.Option{
		llm.WithMetrics(metricCols),
		llm.WithTimeout(cfg.RequestTimeout()),
		llm.WithLogger(l.Named("parser")),
	}
	switch cfg.ParserBackend {
	case config.BackendLMStudio:
		opts = append(opts, llm.WithBaseURL(cfg.LMStudioURL), llm.WithModel(cfg.LMStudioModel))
	case config.BackendOpenAI:
		opts = append(opts, llm.WithBaseURL(cfg.OpenAIBaseURL), llm.WithAPIKey(cfg.OpenAIAPIKey),
			llm.WithModel(cfg.OpenAIModel))
	case config.BackendGemini:
		opts = append(opts, llm.WithAPIKey(cfg.GeminiAPIKey), llm.WithModel(cfg.GeminiModel))
	}

	p, err := llm.New(ctx, cfg.ParserBackend, opts...)
	if err != nil {
		return nil, fmt.Errorf("parser %s: %w", cfg.ParserBackend, err)
	}
	if cfg.ParseCacheSize <= 0 || cfg.ParserBackend == config.BackendRules {
		return p, nil
	}
	return llm.NewCached(p, cfg.ParseCacheSize)
}

// NewFallback builds the code-execution fallback. It is disabled unless
// fallback_enabled is set.
func NewFallback(cfg *config.Config, l logger.Logger) (*fallback.Dispatcher, error) {
	if !cfg.FallbackEnabled {
		return fallback.NewDispatcher(nil), nil
	}
	exec, err := fallback.NewOpenAI(
		fallback.WithBaseURL(cfg.OpenAIBaseURL),
		fallback.WithAPIKey(cfg.OpenAIAPIKey),
		fallback.WithModel(cfg.FallbackModel),
		fallback.WithMemoryLimit(cfg.FallbackContainerMemory),
		fallback.WithTimeout(2*cfg.RequestTimeout()),
		fallback.WithExecutorLogger(l.Named("fallback")),
	)
	if err != nil {
		return nil, fmt.Errorf("code fallback: %w", err)
	}
	return fallback.NewDispatcher(exec, fallback.WithLogger(l.Named("fallback"))), nil
}
