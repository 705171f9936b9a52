package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"goldtrade/internal/domain"
)

const (
	settingTradingEnabled = "trading_enabled"
	settingMarkup         = "markup"
)

// SystemSetting represents a system configuration entry
type SystemSetting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SystemSettingsRepository stores admin switches as key/value rows
type SystemSettingsRepository struct {
	db *pgxpool.Pool
}

// NewSystemSettingsRepository creates a new repository instance
func NewSystemSettingsRepository(db *pgxpool.Pool) *SystemSettingsRepository {
	return &SystemSettingsRepository{db: db}
}

// Get retrieves a setting by key
func (r *SystemSettingsRepository) Get(ctx context.Context, key string) (*SystemSetting, error) {
	var setting SystemSetting
	err := r.db.QueryRow(ctx, `
		SELECT key, value, COALESCE(description, ''), updated_at
		FROM system_settings
		WHERE key = $1
	`, key).Scan(&setting.Key, &setting.Value, &setting.Description, &setting.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("setting %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}

	return &setting, nil
}

// Set updates or creates a setting
func (r *SystemSettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)

	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}

	return nil
}

// TradingEnabled reports whether customers may trade; enabled when unset
func (r *SystemSettingsRepository) TradingEnabled(ctx context.Context) (bool, error) {
	setting, err := r.Get(ctx, settingTradingEnabled)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	enabled, err := strconv.ParseBool(setting.Value)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", settingTradingEnabled, setting.Value, err)
	}
	return enabled, nil
}

// SetTradingEnabled switches customer trading on or off
func (r *SystemSettingsRepository) SetTradingEnabled(ctx context.Context, enabled bool) error {
	return r.Set(ctx, settingTradingEnabled, strconv.FormatBool(enabled))
}

// Markup returns the markup per gold type; empty when unset
func (r *SystemSettingsRepository) Markup(ctx context.Context) (domain.MarkupSettings, error) {
	setting, err := r.Get(ctx, settingMarkup)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.MarkupSettings{}, nil
	}
	if err != nil {
		return nil, err
	}

	settings := domain.MarkupSettings{}
	if err := json.Unmarshal([]byte(setting.Value), &settings); err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", settingMarkup, err)
	}
	return settings, nil
}

// SetMarkup replaces the markup settings
func (r *SystemSettingsRepository) SetMarkup(ctx context.Context, settings domain.MarkupSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode markup: %w", err)
	}
	return r.Set(ctx, settingMarkup, string(raw))
}
