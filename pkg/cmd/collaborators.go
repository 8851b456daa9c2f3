package cmd

import (
	"context"
	"log/slog"

	"github.com/gustolabs/fluxo/pkg/profile"
	"github.com/gustolabs/fluxo/pkg/transport"
)

// NewSender returns the HTTP delivery provider client when an endpoint is
// configured, otherwise the log backend.
func NewSender(ctx context.Context, logger *slog.Logger, endpoint, apiKey string) transport.Sender {
	if endpoint == "" {
		logger.InfoContext(ctx, "No delivery provider configured, messages go to the log")

		return transport.NewLogSender(logger)
	}

	return transport.NewHTTPSender(logger, endpoint, apiKey)
}

// NewProfileService returns the CRM client when a base URL is configured,
// otherwise the log backend.
func NewProfileService(ctx context.Context, logger *slog.Logger, baseURL, apiKey string) profile.Service {
	if baseURL == "" {
		logger.InfoContext(ctx, "No profile API configured, profile actions go to the log")

		return profile.NewLogService(logger)
	}

	return profile.NewHTTPService(logger, baseURL, apiKey)
}
