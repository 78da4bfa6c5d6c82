package usecase

import (
	"context"
	"errors"
	"net/http"

	"marketing-agent/internal/domain"
)

// LLMClient is the chat-completion capability the relay delegates to. The
// model and output-token ceiling are bound when the client is built.
type LLMClient interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type RelayService struct {
	llm LLMClient
}

type RelayInput struct {
	Prompt string
}

type RelayOutput struct {
	Content string
}

func NewRelayService(llm LLMClient) (*RelayService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	return &RelayService{llm: llm}, nil
}

// Relay sends the prompt, framed by the fixed system instruction, to the
// chat-completion client and returns its reply. Failures are *Error values.
func (s *RelayService) Relay(ctx context.Context, in RelayInput) (RelayOutput, error) {
	if in.Prompt == "" {
		return RelayOutput{}, newError(ErrorInvalidInput, "empty_prompt", nil)
	}

	content, err := s.llm.Chat(ctx, buildExchange(in.Prompt))
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
			return RelayOutput{}, newError(ErrorUpstream, "llm_rate_limited", err)
		}
		return RelayOutput{}, newError(ErrorUpstream, "llm_error", err)
	}

	return RelayOutput{Content: content}, nil
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
