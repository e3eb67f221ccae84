package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okian/rehabchat/internal/domain/errs"
	"github.com/okian/rehabchat/internal/domain/model"
	"github.com/okian/rehabchat/pkg/logger"
)

const maxChatBody = 64 << 10

// chatRequest mirrors the OpenAPI schema for POST /chat. A null context
// starts a new conversation.
type chatRequest struct {
	Message string         `json:"message"`
	Context *model.Context `json:"context"`
}

func (c chatRequest) validate() error {
	if strings.TrimSpace(c.Message) == "" {
		return errors.New("missing message")
	}
	return nil
}

// ChatHandler handles chat turns.
type ChatHandler struct {
	chat   Chatter
	logger logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat Chatter, l logger.Logger) *ChatHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &ChatHandler{chat: chat, logger: l}
}

// HandleChat handles POST /chat requests. Domain failures are answered with
// 200 and an envelope of type "error"; only malformed requests get 400.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	const op = "api.chat"
	req, err := decodeChat(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind(op, ErrBadRequest, err))
		return
	}

	var c model.Context
	if req.Context != nil {
		c = *req.Context
	}
	env := h.chat.Ask(r.Context(), req.Message, c)
	h.logger.Debug(r.Context(), "chat turn",
		logger.String("turn", env.TurnID),
		logger.String("type", string(env.Type)))
	writeJSON(w, http.StatusOK, env)
}

func decodeChat(body io.Reader) (chatRequest, error) {
	var req chatRequest
	dec := json.NewDecoder(io.LimitReader(body, maxChatBody))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return req, errors.New("invalid JSON body: trailing data")
	}
	return req, nil
}
