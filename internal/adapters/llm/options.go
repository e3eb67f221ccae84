package llm

import (
	"net/http"
	"time"

	"github.com/okian/rehabchat/internal/domain/query"
	"github.com/okian/rehabchat/pkg/logger"
)

// Option configures a parser backend.
type Option func(*settings)

type settings struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	metrics    []string
	logger     logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		timeout:    60 * time.Second,
		maxRetries: 2,
		metrics:    append([]string(nil), query.DefaultMetrics...),
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithBaseURL sets the API endpoint.
func WithBaseURL(u string) Option {
	return func(s *settings) {
		if u != "" {
			s.baseURL = u
		}
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(s *settings) { s.apiKey = key }
}

// WithModel sets the model name.
func WithModel(m string) Option {
	return func(s *settings) {
		if m != "" {
			s.model = m
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithTimeout bounds a single parse request.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxRetries sets how often the SDK retries a failed request.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithMetrics sets the metric columns the parser may pick from.
func WithMetrics(metrics []string) Option {
	return func(s *settings) {
		if len(metrics) > 0 {
			s.metrics = append([]string(nil), metrics...)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
