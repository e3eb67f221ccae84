package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/responses"

	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/internal/domain/query"
	"github.com/okian/rehabchat/pkg/logger"
	"github.com/okian/rehabchat/pkg/metrics"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4.1"
	defaultMemoryLimit = "1g"

	instructions = "You are a data analyst. Use the python tool to answer the user's question " +
		"based solely on the attached CSV. The CSV is available in the code interpreter " +
		"container (typically under /mnt/data). Return ONLY one JSON object with keys: " +
		"`answer` (string), `data` (object with any computed tables/values), " +
		"`confidence` (0-1), and `warnings` (array of strings)."
)

// OpenAIOption configures an OpenAI executor.
type OpenAIOption func(*OpenAI)

// WithBaseURL sets the API endpoint.
func WithBaseURL(u string) OpenAIOption {
	return func(o *OpenAI) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) OpenAIOption {
	return func(o *OpenAI) { o.apiKey = strings.TrimSpace(key) }
}

// WithModel sets the model that drives the code interpreter.
func WithModel(m string) OpenAIOption {
	return func(o *OpenAI) {
		if m != "" {
			o.model = m
		}
	}
}

// WithMemoryLimit sets the container memory limit: 1g, 4g, 16g or 64g.
func WithMemoryLimit(limit string) OpenAIOption {
	return func(o *OpenAI) {
		if limit != "" {
			o.memoryLimit = limit
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) { o.httpClient = c }
}

// WithTimeout bounds one execution, upload included.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAI) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxRetries sets how often the SDK retries a failed request.
func WithMaxRetries(n int) OpenAIOption {
	return func(o *OpenAI) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithExecutorLogger sets the executor's logger.
func WithExecutorLogger(l logger.Logger) OpenAIOption {
	return func(o *OpenAI) {
		if l != nil {
			o.logger = l
		}
	}
}

// OpenAI executes questions with the Responses API code interpreter tool.
// Each distinct dataset is uploaded once; file ids are remembered by
// checksum.
type OpenAI struct {
	baseURL     string
	apiKey      string
	model       string
	memoryLimit string
	httpClient  *http.Client
	timeout     time.Duration
	maxRetries  int
	logger      logger.Logger

	client openai.Client

	mu    sync.Mutex
	files map[string]string
}

var _ Executor = (*OpenAI)(nil)

// NewOpenAI creates an executor. An API key is required.
func NewOpenAI(opts ...OpenAIOption) (*OpenAI, error) {
	o := &OpenAI{
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		memoryLimit: defaultMemoryLimit,
		timeout:     120 * time.Second,
		maxRetries:  2,
		logger:      logger.Nop(),
		files:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	clientOpts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(o.baseURL, "/") + "/"),
		option.WithAPIKey(o.apiKey),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	}
	o.client = openai.NewClient(clientOpts...)
	return o, nil
}

// Execute implements Executor.
func (o *OpenAI) Execute(ctx context.Context, question string, ds model.Dataset) (model.FallbackResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	fileID, err := o.upload(ctx, ds)
	if err != nil {
		return model.FallbackResult{}, err
	}

	prompt, err := json.Marshal(map[string]string{
		"question":          question,
		"csv_filename_hint": ds.Name,
		"notes":             "Load the CSV from /mnt/data. If multiple files exist, list and choose the CSV.",
	})
	if err != nil {
		return model.FallbackResult{}, err
	}

	resp, err := o.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        o.model,
		Instructions: openai.String(instructions),
		ToolChoice: responses.ResponseNewParamsToolChoiceUnion{
			OfToolChoiceMode: param.NewOpt(responses.ToolChoiceOptionsRequired),
		},
		Tools: []responses.ToolUnionParam{{
			OfCodeInterpreter: &responses.ToolCodeInterpreterParam{
				Container: responses.ToolCodeInterpreterContainerUnionParam{
					OfCodeInterpreterToolAuto: &responses.ToolCodeInterpreterContainerCodeInterpreterContainerAutoParam{
						MemoryLimit: o.memoryLimit,
						FileIDs:     []string{fileID},
					},
				},
			},
		}},
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(string(prompt))},
	})
	if err != nil {
		return model.FallbackResult{}, fmt.Errorf("responses request: %w", err)
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return model.FallbackResult{}, ErrNoOutput
	}
	return decodeResult(text)
}

func (o *OpenAI) upload(ctx context.Context, ds model.Dataset) (string, error) {
	if len(ds.Content) == 0 {
		return "", ErrEmptyDataset
	}
	key := ds.Checksum
	o.mu.Lock()
	defer o.mu.Unlock()
	if id, ok := o.files[key]; ok && key != "" {
		return id, nil
	}

	name := ds.Name
	if name == "" {
		name = "dataset-" + uuid.NewString() + ".csv"
	}
	f, err := o.client.Files.New(ctx, openai.FileNewParams{
		File:    openai.File(bytes.NewReader(ds.Content), name, "text/csv"),
		Purpose: openai.FilePurposeUserData,
	})
	if err != nil {
		return "", fmt.Errorf("upload dataset: %w", err)
	}
	metrics.RecordFallbackUpload()
	o.logger.Info(ctx, "uploaded dataset for code fallback",
		logger.String("file_id", f.ID),
		logger.String("name", name),
		logger.Int("bytes", len(ds.Content)))
	if key != "" {
		o.files[key] = f.ID
	}
	return f.ID, nil
}

type resultPayload struct {
	Answer     string          `json:"answer"`
	Data       json.RawMessage `json:"data"`
	Confidence float64         `json:"confidence"`
	Warnings   []string        `json:"warnings"`
}

func decodeResult(text string) (model.FallbackResult, error) {
	body, err := query.ExtractObject(text)
	if err != nil {
		return model.FallbackResult{}, err
	}
	var p resultPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.FallbackResult{}, fmt.Errorf("decode fallback result: %w", err)
	}
	res := model.FallbackResult{
		Answer:     p.Answer,
		Confidence: p.Confidence,
		Warnings:   p.Warnings,
	}
	if len(p.Data) > 0 && string(p.Data) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(p.Data, &obj); err == nil {
			res.Data = obj
		} else {
			var v any
			if err := json.Unmarshal(p.Data, &v); err == nil {
				res.Data = map[string]any{"value": v}
			}
		}
	}
	return res, nil
}
