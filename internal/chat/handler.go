package chat

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/transport"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

type ServiceAPI interface {
	HandleMessage(ctx context.Context, msg Message) ([]Reply, error)
	HandleAction(ctx context.Context, chatID, data string) ([]Reply, error)
}

// Handler exposes the conversation over HTTP for a chat gateway.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

type MessageRequest struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id,omitempty"`
	Text      string `json:"text"`
}

type ActionRequest struct {
	ChatID string `json:"chat_id"`
	Data   string `json:"data"`
}

type RepliesResponse struct {
	Replies []Reply `json:"replies"`
}

var errMissingChatID = errors.NewValidationFieldError("chat_id", "chat_id is required", errors.ErrCodeValidationFailed)

// PostMessage handles POST /chat/messages.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, err)
		return
	}
	req.ChatID = strings.TrimSpace(req.ChatID)
	if req.ChatID == "" {
		h.WriteAppError(w, errMissingChatID)
		return
	}

	ctx := h.chatContext(r, req.ChatID)
	replies, err := h.Service.HandleMessage(ctx, Message{
		ChatID:    req.ChatID,
		MessageID: req.MessageID,
		Text:      req.Text,
	})
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RepliesResponse{Replies: nonNil(replies)})
}

// PostAction handles POST /chat/actions.
func (h *Handler) PostAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, err)
		return
	}
	req.ChatID = strings.TrimSpace(req.ChatID)
	if req.ChatID == "" {
		h.WriteAppError(w, errMissingChatID)
		return
	}
	if req.Data == "" {
		h.WriteAppError(w, errors.NewValidationFieldError("data", "data is required", errors.ErrCodeInvalidAction))
		return
	}

	ctx := h.chatContext(r, req.ChatID)
	replies, err := h.Service.HandleAction(ctx, req.ChatID, req.Data)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RepliesResponse{Replies: nonNil(replies)})
}

func (h *Handler) chatContext(r *http.Request, chatID string) context.Context {
	ctx := errors.ContextWithChatID(r.Context(), chatID)
	return logger.With(ctx, "chat_id", chatID)
}

func nonNil(replies []Reply) []Reply {
	if replies == nil {
		return []Reply{}
	}
	return replies
}
