package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultMaxOutputTokens = 2048
	DefaultGeminiModel     = "gemini-1.5-pro"
	DefaultOpenAIModel     = "gpt-4o-mini"
)

// ErrMissingCredential is returned when no credential source is configured.
var ErrMissingCredential = errors.New("config: missing credential")

// credentialEnv maps each provider to the env var carrying its API key.
var credentialEnv = map[string]string{
	ProviderGemini: "GOOGLE_API_KEY",
	ProviderOpenAI: "OPENAI_API_KEY",
}

var defaultModel = map[string]string{
	ProviderGemini: DefaultGeminiModel,
	ProviderOpenAI: DefaultOpenAIModel,
}

type Config struct {
	// Server
	Port        string
	CORSOrigins []string
	LogLevel    slog.Level

	// LLM
	Provider        string
	APIKey          string
	APIKeyParam     string
	Model           string
	MaxOutputTokens int
	BaseURL         string
}

// CredentialGetter resolves a credential stored outside the environment.
type CredentialGetter interface {
	GetCredential(ctx context.Context, name string) (string, error)
}

// Load reads configuration from the environment, after loading a .env file
// when one is present. A missing credential is reported as an error wrapping
// ErrMissingCredential.
func Load() (*Config, error) {
	_ = godotenv.Load()

	provider := strings.ToLower(envOrDefault("LLM_PROVIDER", ProviderGemini))
	keyEnv, ok := credentialEnv[provider]
	if !ok {
		return nil, fmt.Errorf("config: unsupported LLM_PROVIDER %q", provider)
	}

	cfg := &Config{
		Port:            envOrDefault("PORT", "8080"),
		CORSOrigins:     envList("CORS_ORIGINS", []string{"*"}),
		LogLevel:        envLevel("LOG_LEVEL", slog.LevelInfo),
		Provider:        provider,
		APIKey:          strings.TrimSpace(os.Getenv(keyEnv)),
		APIKeyParam:     strings.TrimSpace(os.Getenv("API_KEY_PARAM")),
		Model:           envOrDefault("LLM_MODEL", defaultModel[provider]),
		MaxOutputTokens: envInt("MAX_OUTPUT_TOKENS", DefaultMaxOutputTokens),
		BaseURL:         strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
	}

	if cfg.APIKey == "" && cfg.APIKeyParam == "" {
		return nil, fmt.Errorf("%w: %s environment variable is not set", ErrMissingCredential, keyEnv)
	}
	return cfg, nil
}

// NeedsParamStore reports whether the credential must be fetched from SSM.
func (c *Config) NeedsParamStore() bool {
	return c.APIKey == "" && c.APIKeyParam != ""
}

// ResolveAPIKey fills APIKey from the parameter store when the environment did
// not provide it. It runs once at startup, before any request is served.
func (c *Config) ResolveAPIKey(ctx context.Context, getter CredentialGetter) error {
	if c.APIKey != "" {
		return nil
	}
	if c.APIKeyParam == "" {
		return ErrMissingCredential
	}
	if getter == nil {
		return errors.New("config: credential getter must not be nil")
	}
	key, err := getter.GetCredential(ctx, c.APIKeyParam)
	if err != nil {
		return fmt.Errorf("config: resolve credential from %q: %w", c.APIKeyParam, err)
	}
	c.APIKey = key
	return nil
}

func envOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func envLevel(key string, def slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return def
	}
	return lvl
}
