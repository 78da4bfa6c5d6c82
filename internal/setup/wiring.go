package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"marketing-agent/handler"
	"marketing-agent/internal/config"
	"marketing-agent/internal/integrations/gemini"
	"marketing-agent/internal/integrations/openai"
	"marketing-agent/internal/integrations/paramstore"
	"marketing-agent/internal/usecase"
)

// Dependencies holds the process-wide objects built once at startup.
type Dependencies struct {
	Handler *handler.Handler

	closers []func() error
}

// Close releases the chat-completion client.
func (d *Dependencies) Close() {
	for _, closeFn := range d.closers {
		if err := closeFn(); err != nil {
			slog.Warn("failed to close dependency", "err", err)
		}
	}
}

// ResolveCredential makes sure cfg carries an API key, reading it from SSM
// when the environment only names a parameter.
func ResolveCredential(ctx context.Context, cfg *config.Config) error {
	if !cfg.NeedsParamStore() {
		return cfg.ResolveAPIKey(ctx, nil)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("setup: load AWS config: %w", err)
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return fmt.Errorf("setup: create SSM client: %w", err)
	}
	return cfg.ResolveAPIKey(ctx, ssmClient)
}

// Wire builds the chat-completion client, relay use case and handler.
// cfg.APIKey must already be resolved.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("setup: config must not be nil")
	}

	deps := &Dependencies{}
	llm, err := newLLMClient(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}

	relay, err := usecase.NewRelayService(llm)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("setup: create relay service: %w", err)
	}
	h, err := handler.NewHandler(relay)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("setup: create handler: %w", err)
	}
	deps.Handler = h
	return deps, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config, deps *Dependencies) (usecase.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := gemini.NewClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxOutputTokens)
		if err != nil {
			return nil, fmt.Errorf("setup: create Gemini client: %w", err)
		}
		deps.closers = append(deps.closers, c.Close)
		return c, nil
	case config.ProviderOpenAI:
		var opts []openai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		c, err := openai.NewClient(cfg.APIKey, cfg.Model, cfg.MaxOutputTokens, opts...)
		if err != nil {
			return nil, fmt.Errorf("setup: create OpenAI client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("setup: unsupported provider %q", cfg.Provider)
	}
}
