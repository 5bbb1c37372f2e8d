package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
)

// SettingsStore persists the gateway settings.
type SettingsStore interface {
	// Load returns the defaults when nothing was saved yet.
	Load(ctx context.Context) (*models.GatewaySettings, error)
	Save(ctx context.Context, settings *models.GatewaySettings) error
	Delete(ctx context.Context) error
}
