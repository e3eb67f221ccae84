package llm

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/pkg/logger"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini parses with Google's Gemini API in JSON response mode.
type Gemini struct {
	client  *genai.Client
	model   string
	system  string
	timeout time.Duration
	logger  logger.Logger
}

// NewGemini creates a Gemini parser. An API key is required.
func NewGemini(ctx context.Context, opts ...Option) (*Gemini, error) {
	s := newSettings(append([]Option{WithModel(defaultGeminiModel)}, opts...))
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := &genai.ClientConfig{
		APIKey:     strings.TrimSpace(s.apiKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
	}
	if s.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Gemini{
		client:  cli,
		model:   s.model,
		system:  SystemPrompt(s.metrics),
		timeout: s.timeout,
		logger:  s.logger,
	}, nil
}

// Name implements Parser.
func (g *Gemini) Name() string { return BackendGemini }

// Parse implements Parser.
func (g *Gemini) Parse(ctx context.Context, question string, c model.Context) (string, error) {
	const op = "llm.Gemini.Parse"
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(UserPrompt(question, c)),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: g.system}}},
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr[float32](0),
		},
	)
	if err != nil {
		g.logger.Warn(ctx, "gemini request failed", logger.Error(err))
		return "", errs.WrapKind(op, errs.ErrUpstream, err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", errs.WrapKind(op, errs.ErrUpstream, ErrEmptyResponse)
	}
	g.logger.Debug(ctx, "parsed question", logger.String("backend", BackendGemini), logger.String("descriptor", out))
	return out, nil
}
