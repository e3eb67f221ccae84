package llm

import (
	"context"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/pkg/logger"
)

const (
	defaultLMStudioURL   = "http://127.0.0.1:1234/v1"
	defaultLMStudioModel = "qwen2.5-7b-instruct"
	defaultOpenAIURL     = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4.1"

	// LM Studio ignores the key but the SDK always sends one.
	lmStudioKey = "lm-studio"
)

// ChatCompletions parses with any OpenAI-compatible chat completions
// endpoint: a local LM Studio server or the hosted API.
type ChatCompletions struct {
	name    string
	client  openai.Client
	model   string
	system  string
	timeout time.Duration
	logger  logger.Logger
}

// NewLMStudio creates a parser for a local LM Studio server.
func NewLMStudio(opts ...Option) *ChatCompletions {
	s := newSettings(append([]Option{
		WithBaseURL(defaultLMStudioURL),
		WithModel(defaultLMStudioModel),
		WithAPIKey(lmStudioKey),
	}, opts...))
	if s.apiKey == "" {
		s.apiKey = lmStudioKey
	}
	return newChatCompletions(BackendLMStudio, s)
}

// NewOpenAI creates a parser for the hosted OpenAI API. An API key is required.
func NewOpenAI(opts ...Option) (*ChatCompletions, error) {
	s := newSettings(append([]Option{
		WithBaseURL(defaultOpenAIURL),
		WithModel(defaultOpenAIModel),
	}, opts...))
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	return newChatCompletions(BackendOpenAI, s), nil
}

func newChatCompletions(name string, s settings) *ChatCompletions {
	clientOpts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(s.baseURL, "/") + "/"),
		option.WithAPIKey(strings.TrimSpace(s.apiKey)),
		option.WithMaxRetries(s.maxRetries),
	}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(s.httpClient))
	}
	return &ChatCompletions{
		name:    name,
		client:  openai.NewClient(clientOpts...),
		model:   s.model,
		system:  SystemPrompt(s.metrics),
		timeout: s.timeout,
		logger:  s.logger,
	}
}

// Name implements Parser.
func (p *ChatCompletions) Name() string { return p.name }

// Parse implements Parser.
func (p *ChatCompletions) Parse(ctx context.Context, question string, c model.Context) (string, error) {
	const op = "llm.ChatCompletions.Parse"
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.system),
			openai.UserMessage(UserPrompt(question, c)),
		},
		Temperature: param.NewOpt(0.0),
	})
	if err != nil {
		p.logger.Warn(ctx, "chat completion failed", logger.String("backend", p.name), logger.Error(err))
		return "", errs.WrapKind(op, errs.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", errs.WrapKind(op, errs.ErrUpstream, ErrEmptyResponse)
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", errs.WrapKind(op, errs.ErrUpstream, ErrEmptyResponse)
	}
	p.logger.Debug(ctx, "parsed question", logger.String("backend", p.name), logger.String("descriptor", out))
	return out, nil
}
