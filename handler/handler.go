package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"seafood-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type UseCase interface {
	HandleMessage(ctx context.Context, in usecase.MessageInput) (usecase.MessageOutput, error)
}

type Handler struct {
	uc  UseCase
	log *zap.Logger
}

type messageRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

type messageResponse struct {
	ConversationID string `json:"conversationId"`
	Reply          string `json:"reply"`
}

func NewHandler(uc UseCase, log *zap.Logger) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{uc: uc, log: log}, nil
}

// Handle answers every request with 200, including failed commands and
// undecodable bodies, so the webhook sender never retries a handled message.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	log := h.log.With(zap.String("correlation_id", corrID))

	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			log.Warn("undecodable body", zap.Error(err))
			return h.malformed(corrID, err), nil
		}
		body = string(raw)
	}
	var in messageRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		log.Warn("invalid request body", zap.Error(err))
		return h.malformed(corrID, err), nil
	}

	out, err := h.uc.HandleMessage(ctx, usecase.MessageInput{ConversationID: in.ConversationID, Text: in.Text})
	if err != nil {
		log.Info("message rejected", zap.Error(err))
		out = usecase.MessageOutput{ConversationID: in.ConversationID, Reply: usecase.RenderError(err)}
	}
	return h.respond(corrID, http.StatusOK, messageResponse{ConversationID: out.ConversationID, Reply: out.Reply}), nil
}

func (h *Handler) malformed(corrID string, err error) events.APIGatewayProxyResponse {
	reply := usecase.RenderError(&usecase.Error{Code: usecase.ErrorInvalidInput, Reason: usecase.ReasonMalformedBody, Err: err})
	return h.respond(corrID, http.StatusOK, messageResponse{Reply: reply})
}

func (h *Handler) respond(corrID string, status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","message":"internal error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
