package payment

import (
	"fmt"
	"log/slog"

	"github.com/thebackstage/backstage/internal/config"
	"github.com/thebackstage/backstage/internal/service"
)

// NewProvider creates a payment provider based on configuration
func NewProvider(cfg *config.Config, subscriptionService *service.SubscriptionService) (Provider, error) {
	slog.Info("initializing payment provider", "provider", "stripe")

	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}

	return NewStripeProvider(cfg, subscriptionService), nil
}
