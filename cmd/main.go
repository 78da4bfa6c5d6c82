package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"marketing-agent/internal/config"
	"marketing-agent/internal/setup"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if err := setup.ResolveCredential(ctx, cfg); err != nil {
		slog.Error("failed to resolve credential", "err", err)
		os.Exit(1)
	}

	// ---- Clients + handler ----
	deps, err := setup.Wire(ctx, cfg)
	if err != nil {
		slog.Error("failed to wire dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	slog.Info("relay ready", "provider", cfg.Provider, "model", cfg.Model, "max_output_tokens", cfg.MaxOutputTokens)
	lambda.Start(deps.Handler.Handle)
}
