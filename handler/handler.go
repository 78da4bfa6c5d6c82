package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"marketing-agent/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 1 << 20

	msgPromptRequired   = "Prompt is required"
	msgInternal         = "Internal server error"
	msgMethodNotAllowed = "Method not allowed"
)

// UseCase is the relay operation served by Handler.
type UseCase interface {
	Relay(ctx context.Context, in usecase.RelayInput) (usecase.RelayOutput, error)
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

type askResponse struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler exposes the prompt relay over API Gateway proxy events and net/http.
type Handler struct {
	uc UseCase
}

func NewHandler(uc UseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// Handle is the Lambda entrypoint for API Gateway proxy integrations.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	if req.HTTPMethod != "" && req.HTTPMethod != http.MethodPost {
		return proxyResponse(http.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed}, correlationID), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			slog.InfoContext(ctx, "rejecting undecodable body", "correlation_id", correlationID, "err", err)
			return proxyResponse(http.StatusBadRequest, errorResponse{Error: msgPromptRequired}, correlationID), nil
		}
		body = decoded
	}

	status, payload := h.process(ctx, correlationID, body)
	return proxyResponse(status, payload, correlationID), nil
}

// ServeHTTP serves the relay on a plain net/http server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	correlationID := r.Header.Get(correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed}, correlationID)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		slog.InfoContext(r.Context(), "rejecting unreadable body", "correlation_id", correlationID, "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgPromptRequired}, correlationID)
		return
	}

	status, payload := h.process(r.Context(), correlationID, body)
	writeJSON(w, status, payload, correlationID)
}

func (h *Handler) process(ctx context.Context, correlationID string, body []byte) (int, any) {
	var in askRequest
	if err := json.Unmarshal(body, &in); err != nil {
		slog.InfoContext(ctx, "rejecting malformed body", "correlation_id", correlationID, "err", err)
		return http.StatusBadRequest, errorResponse{Error: msgPromptRequired}
	}

	out, err := h.uc.Relay(ctx, usecase.RelayInput{Prompt: in.Prompt})
	if err != nil {
		return h.mapError(ctx, correlationID, err)
	}
	return http.StatusOK, askResponse{Content: out.Content}
}

func (h *Handler) mapError(ctx context.Context, correlationID string, err error) (int, any) {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		if ucErr.Code == usecase.ErrorInvalidInput {
			return http.StatusBadRequest, errorResponse{Error: msgPromptRequired}
		}
		slog.ErrorContext(ctx, "relay failed",
			"correlation_id", correlationID,
			"code", string(ucErr.Code),
			"reason", ucErr.Reason,
			"err", ucErr.Err,
		)
		return http.StatusInternalServerError, errorResponse{Error: failureMessage(ucErr.Err)}
	}

	slog.ErrorContext(ctx, "relay failed", "correlation_id", correlationID, "err", err)
	return http.StatusInternalServerError, errorResponse{Error: failureMessage(err)}
}

// failureMessage surfaces the downstream error text, or a generic fallback
// when the failure carries none.
func failureMessage(err error) string {
	if err == nil {
		return msgInternal
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return msgInternal
}

func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func marshalBody(payload any) string {
	buf, err := json.Marshal(payload)
	if err != nil {
		return `{"error":"` + msgInternal + `"}`
	}
	return string(buf)
}

func proxyResponse(status int, payload any, correlationID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: marshalBody(payload),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any, correlationID string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(correlationHeader, correlationID)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, marshalBody(payload))
}
