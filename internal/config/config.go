// Package config defines the process configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parser backends.
const (
	BackendLMStudio = "lmstudio"
	BackendOpenAI   = "openai"
	BackendGemini   = "gemini"
	BackendRules    = "rules"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CSVPath is the metrics table loaded at startup.
	CSVPath string `koanf:"csv_path"`

	// Metrics is a comma separated list of answerable metric columns.
	// Empty means the default set.
	Metrics string `koanf:"metrics"`

	// ParserBackend selects the question parser: lmstudio, openai, gemini or rules.
	ParserBackend string `koanf:"parser_backend"`

	LMStudioURL   string `koanf:"lmstudio_url"`
	LMStudioModel string `koanf:"lmstudio_model"`

	OpenAIBaseURL string `koanf:"openai_base_url"`
	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIModel   string `koanf:"openai_model"`

	GeminiAPIKey string `koanf:"gemini_api_key"`
	GeminiModel  string `koanf:"gemini_model"`

	// ParseCacheSize bounds the parsed-question LRU. Zero disables it.
	ParseCacheSize int `koanf:"parse_cache_size"`

	// RequestTimeoutMS bounds each outbound model call.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// FallbackEnabled turns on the code-interpreter fallback. It needs
	// OpenAIAPIKey.
	FallbackEnabled         bool   `koanf:"fallback_enabled"`
	FallbackModel           string `koanf:"fallback_model"`
	FallbackContainerMemory string `koanf:"fallback_container_memory"`

	// CORSOrigin is the browser origin allowed to call the API. Empty
	// disables CORS headers.
	CORSOrigin string `koanf:"cors_origin"`

	// Prometheus naming. MetricsLabels is a comma separated list of
	// key=value constant labels; MetricsBucketsMS a comma separated list of
	// latency bucket bounds in milliseconds. Empty keeps the defaults.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	MetricsPrefix    string `koanf:"metrics_prefix"`
	MetricsLabels    string `koanf:"metrics_labels"`
	MetricsBucketsMS string `koanf:"metrics_buckets_ms"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "json",
		Addr:                    ":9080",
		CSVPath:                 "Combined_AllMetrics.csv",
		ParserBackend:           BackendLMStudio,
		LMStudioURL:             "http://127.0.0.1:1234/v1",
		LMStudioModel:           "qwen2.5-7b-instruct",
		OpenAIBaseURL:           "https://api.openai.com/v1",
		OpenAIModel:             "gpt-4.1",
		GeminiModel:             "gemini-2.5-flash",
		ParseCacheSize:          256,
		RequestTimeoutMS:        60_000,
		FallbackModel:           "gpt-4.1",
		FallbackContainerMemory: "1g",
		CORSOrigin:              "http://localhost:5173",
		MetricsNamespace:        "rehab",
		MetricsSubsystem:        "chat",
	}
}

// MetricColumns splits Metrics into column names.
func (c *Config) MetricColumns() []string {
	var out []string
	for _, m := range strings.Split(c.Metrics, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// MetricLabels parses MetricsLabels.
func (c *Config) MetricLabels() (map[string]string, error) {
	labels := make(map[string]string)
	for _, pair := range strings.Split(c.MetricsLabels, ",") {
		if pair = strings.TrimSpace(pair); pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("%w: metrics_labels entry %q is not key=value", ErrInvalidConfig, pair)
		}
		labels[k] = v
	}
	return labels, nil
}

// MetricBuckets parses MetricsBucketsMS. Bounds must be positive and
// strictly increasing.
func (c *Config) MetricBuckets() ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(c.MetricsBucketsMS, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("%w: metrics_buckets_ms entry %q is not a positive number", ErrInvalidConfig, f)
		}
		if n := len(out); n > 0 && v <= out[n-1] {
			return nil, fmt.Errorf("%w: metrics_buckets_ms must be increasing", ErrInvalidConfig)
		}
		out = append(out, v)
	}
	return out, nil
}

var containerMemory = map[string]struct{}{"1g": {}, "4g": {}, "16g": {}, "64g": {}}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.CSVPath == "" {
		return fmt.Errorf("%w: csv_path must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: log_format must be json or text, got %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.ParserBackend {
	case BackendLMStudio, BackendRules:
	case BackendOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: parser_backend openai needs openai_api_key", ErrInvalidConfig)
		}
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: parser_backend gemini needs gemini_api_key", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown parser_backend %q", ErrInvalidConfig, c.ParserBackend)
	}
	if c.ParseCacheSize < 0 {
		return fmt.Errorf("%w: parse_cache_size must not be negative", ErrInvalidConfig)
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.FallbackEnabled && c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: fallback_enabled needs openai_api_key", ErrInvalidConfig)
	}
	if _, ok := containerMemory[c.FallbackContainerMemory]; !ok {
		return fmt.Errorf("%w: fallback_container_memory must be one of 1g, 4g, 16g, 64g", ErrInvalidConfig)
	}
	if c.MetricsNamespace == "" {
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	}
	if _, err := c.MetricLabels(); err != nil {
		return err
	}
	if _, err := c.MetricBuckets(); err != nil {
		return err
	}
	return nil
}
