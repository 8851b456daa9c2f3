// Package profile applies side effects to customer profiles held in an
// external CRM: tagging and discount grants.
package profile

import (
	"context"
	"time"

	"github.com/gustolabs/fluxo/pkg/models"
)

// Discount describes a discount grant for one customer.
type Discount struct {
	Type      models.DiscountType `json:"type"`
	Value     float64             `json:"value"`
	ExpiresAt time.Time           `json:"expires_at"`
	Reason    string              `json:"reason,omitempty"`
}

// Service mutates customer profiles. Implementations must be safe for
// concurrent use.
type Service interface {
	AddTags(ctx context.Context, customerID string, tags []string) error
	ApplyDiscount(ctx context.Context, customerID string, discount Discount) error
}
