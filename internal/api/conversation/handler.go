package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/pkg/logger"
	"github.com/futig/omnistudy/internal/pkg/response"
	"github.com/futig/omnistudy/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// maxBodySize bounds JSON request bodies
const maxBodySize = 1 << 20

type Handler struct {
	usecase   ChatUsecase
	validator *validator.Validator
}

func NewHandler(usecase ChatUsecase, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		validator: validator,
	}
}

// CreateConversation handles POST /conversations
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateConversation")

	store, err := h.usecase.CreateConversation(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Created(w, toConversationDTO(store))
}

// GetConversation handles GET /conversations/{conversation_id}
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("conversation_id", conversationID),
		zap.String("action", "GetConversation"),
	)

	store, err := h.usecase.GetConversation(ctx, conversationID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toConversationDTO(store))
}

// DeleteConversation handles DELETE /conversations/{conversation_id}
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("conversation_id", conversationID),
		zap.String("action", "DeleteConversation"),
	)

	if err := h.usecase.DeleteConversation(ctx, conversationID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// SubmitMessage handles POST /conversations/{conversation_id}/messages
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("conversation_id", conversationID),
		zap.String("action", "SubmitMessage"),
	)

	var req entity.SubmitMessageRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	mode, err := h.validator.ValidateSubmitMessage(&req)
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	result, err := h.usecase.Submit(ctx, conversationID, mode, req.Text)
	if errors.Is(err, entity.ErrEmptyInput) {
		ctxzap.Debug(ctx, "empty input ignored")
		response.NoContent(w)
		return
	}
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.SubmitMessageResponse{
		UserMessage:      toMessageDTO(result.User),
		AssistantMessage: toMessageDTO(result.Assistant),
	})
}

// GetQuiz handles GET /conversations/{conversation_id}/messages/{message_id}/quiz
func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	ctx, conversationID, messageID := h.messageContext(r, "GetQuiz")

	run, err := h.usecase.OpenQuiz(ctx, conversationID, messageID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toQuizRunDTO(messageID, run))
}

// SelectOption handles POST /conversations/{conversation_id}/messages/{message_id}/quiz/select
func (h *Handler) SelectOption(w http.ResponseWriter, r *http.Request) {
	ctx, conversationID, messageID := h.messageContext(r, "SelectOption")

	var req entity.SelectOptionRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	option, err := h.validator.ValidateSelectOption(&req)
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	run, err := h.usecase.SelectOption(ctx, conversationID, messageID, option)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toQuizRunDTO(messageID, run))
}

// AdvanceQuiz handles POST /conversations/{conversation_id}/messages/{message_id}/quiz/advance
func (h *Handler) AdvanceQuiz(w http.ResponseWriter, r *http.Request) {
	ctx, conversationID, messageID := h.messageContext(r, "AdvanceQuiz")

	run, err := h.usecase.AdvanceQuiz(ctx, conversationID, messageID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toQuizRunDTO(messageID, run))
}

// CloseQuiz handles DELETE /conversations/{conversation_id}/messages/{message_id}/quiz
func (h *Handler) CloseQuiz(w http.ResponseWriter, r *http.Request) {
	ctx, conversationID, messageID := h.messageContext(r, "CloseQuiz")

	if err := h.usecase.CloseQuiz(ctx, conversationID, messageID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// ExportMessage handles GET /conversations/{conversation_id}/messages/{message_id}/export
func (h *Handler) ExportMessage(w http.ResponseWriter, r *http.Request) {
	ctx, conversationID, messageID := h.messageContext(r, "ExportMessage")

	format, err := h.validator.ValidateExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	file, err := h.usecase.ExportMessage(ctx, conversationID, messageID, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Attachment(w, file.Filename, file.ContentType, file.Content)
}

func (h *Handler) messageContext(r *http.Request, action string) (context.Context, string, string) {
	conversationID := chi.URLParam(r, "conversation_id")
	messageID := chi.URLParam(r, "message_id")

	ctx := logger.AddFields(r.Context(),
		zap.String("conversation_id", conversationID),
		zap.String("message_id", messageID),
		zap.String("action", action),
	)
	return ctx, conversationID, messageID
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	fields := []zap.Field{zap.Int("status", status)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, fields...)
	} else {
		ctxzap.Warn(ctx, message, fields...)
	}

	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrConversationNotFound), errors.Is(err, entity.ErrMessageNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	case errors.Is(err, entity.ErrBusy):
		h.respondError(ctx, w, http.StatusConflict, "a request is already in flight for this conversation", err)
	case errors.Is(err, entity.ErrNotAQuiz), errors.Is(err, entity.ErrInvalidQuiz):
		h.respondError(ctx, w, http.StatusUnprocessableEntity, "message has no playable quiz", err)
	case errors.Is(err, entity.ErrInvalidParameter), errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidFormat), errors.Is(err, entity.ErrInvalidMode):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
