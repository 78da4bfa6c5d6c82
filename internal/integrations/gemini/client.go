package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"marketing-agent/internal/domain"
)

// generateRequest is a chat exchange translated into Gemini's shape: system
// messages become the system instruction and the user message becomes the
// prompt parts.
type generateRequest struct {
	system *genai.Content
	prompt []genai.Part
}

type generateFunc func(ctx context.Context, req generateRequest) (*genai.GenerateContentResponse, error)

// Client is a chat-completion client backed by the Gemini API. The underlying
// genai client is only read after construction; every call builds its own
// GenerativeModel so concurrent requests never share model settings.
type Client struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	generate        generateFunc
}

// NewClient authenticates with apiKey and binds the client to model and
// maxOutputTokens for its whole lifetime.
func NewClient(ctx context.Context, apiKey, model string, maxOutputTokens int, opts ...option.ClientOption) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key must not be empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("gemini: model must not be empty")
	}
	if maxOutputTokens <= 0 {
		return nil, errors.New("gemini: max output tokens must be positive")
	}
	if maxOutputTokens > math.MaxInt32 {
		return nil, fmt.Errorf("gemini: max output tokens must not exceed %d", math.MaxInt32)
	}

	gc, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	c := &Client{
		client:          gc,
		model:           model,
		maxOutputTokens: int32(maxOutputTokens),
	}
	c.generate = c.send
	return c, nil
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Chat submits messages in order and returns the generated text.
func (c *Client) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	req, err := buildRequest(messages)
	if err != nil {
		return "", err
	}

	resp, err := c.generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	if resp != nil {
		for i, cand := range resp.Candidates {
			if cand != nil && cand.FinishReason != genai.FinishReasonStop {
				slog.WarnContext(ctx, "gemini candidate did not finish cleanly",
					"candidate", i,
					"finish_reason", cand.FinishReason.String(),
					"model", c.model,
				)
			}
		}
	}

	return extractText(resp)
}

func (c *Client) send(ctx context.Context, req generateRequest) (*genai.GenerateContentResponse, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetMaxOutputTokens(c.maxOutputTokens)
	model.SystemInstruction = req.system
	return model.GenerateContent(ctx, req.prompt...)
}

// buildRequest accepts system messages followed by exactly one user message.
func buildRequest(messages []domain.ChatMessage) (generateRequest, error) {
	if len(messages) == 0 {
		return generateRequest{}, errors.New("gemini: messages must not be empty")
	}

	var (
		system []string
		req    generateRequest
	)
	for i, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleUser:
			if i != len(messages)-1 {
				return generateRequest{}, errors.New("gemini: user message must be last")
			}
			req.prompt = []genai.Part{genai.Text(m.Content)}
		default:
			return generateRequest{}, fmt.Errorf("gemini: unsupported message role %q", m.Role)
		}
	}

	if req.prompt == nil {
		return generateRequest{}, errors.New("gemini: user message is required")
	}
	if len(system) > 0 {
		req.system = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}
	return req, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	if cand != nil && cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	if text.Len() == 0 {
		reason := genai.FinishReasonUnspecified
		if cand != nil {
			reason = cand.FinishReason
		}
		return "", fmt.Errorf("gemini: empty response content (finish reason %s)", reason.String())
	}
	return text.String(), nil
}
