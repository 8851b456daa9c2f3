package profile

import (
	"context"
	"log/slog"
)

// LogService records profile mutations in the structured log only. It is
// the default backend when no CRM endpoint is configured.
type LogService struct {
	logger *slog.Logger
}

func NewLogService(logger *slog.Logger) *LogService {
	return &LogService{logger: logger}
}

func (s *LogService) AddTags(ctx context.Context, customerID string, tags []string) error {
	s.logger.InfoContext(ctx, "Profile tags (log backend)", "customer_id", customerID, "tags", tags)

	return nil
}

func (s *LogService) ApplyDiscount(ctx context.Context, customerID string, discount Discount) error {
	s.logger.InfoContext(ctx, "Profile discount (log backend)",
		"customer_id", customerID,
		"type", discount.Type,
		"value", discount.Value,
		"expires_at", discount.ExpiresAt)

	return nil
}
