package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/status"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) InitDB() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS gateway_settings (
		key VARCHAR(255) PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// Load overlays the saved settings on the defaults and drops invalid status
// overrides.
func (r *SettingsRepository) Load(ctx context.Context) (*models.GatewaySettings, error) {
	settings := models.DefaultGatewaySettings()

	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM gateway_settings WHERE key = $1`, models.SettingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load gateway settings: %w", err)
	}

	if err := json.Unmarshal(raw, settings); err != nil {
		return nil, fmt.Errorf("decode gateway settings: %w", err)
	}
	settings.StatusOverrides = status.Sanitize(settings.StatusOverrides)
	return settings, nil
}

// Exists reports whether settings were saved.
func (r *SettingsRepository) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM gateway_settings WHERE key = $1)`, models.SettingsKey).Scan(&exists)
	return exists, err
}

func (r *SettingsRepository) Save(ctx context.Context, settings *models.GatewaySettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode gateway settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO gateway_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, models.SettingsKey, raw)
	if err != nil {
		return fmt.Errorf("save gateway settings: %w", err)
	}
	return nil
}

func (r *SettingsRepository) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM gateway_settings WHERE key = $1`, models.SettingsKey)
	return err
}
