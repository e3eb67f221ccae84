package chatcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/rehabchat/internal/domain/model"
)

// Remote asks a running server over POST /chat.
type Remote struct {
	baseURL string
	client  *http.Client
}

// NewRemote creates a client for the server at baseURL.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Message string         `json:"message"`
	Context *model.Context `json:"context"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Ask implements Chatter. Transport failures become error envelopes that
// keep the caller's context.
func (r *Remote) Ask(ctx context.Context, message string, c model.Context) model.Envelope {
	env, err := r.post(ctx, message, c)
	if err != nil {
		return model.Envelope{Type: model.ResponseError, Answer: err.Error(), Context: c}
	}
	return env
}

func (r *Remote) post(ctx context.Context, message string, c model.Context) (model.Envelope, error) {
	req := chatRequest{Message: message}
	if !c.IsZero() {
		req.Context = &c
	}
	body, err := json.Marshal(req)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return model.Envelope{}, fmt.Errorf("server rejected the question: %s", e.Message)
		}
		return model.Envelope{}, fmt.Errorf("server returned %s", resp.Status)
	}

	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	return env, nil
}
