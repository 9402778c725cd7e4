package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/crmbridge/backend/internal/domain/model"
)

// SettingRepo provides database operations for typed system settings.
type SettingRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSettingRepo creates a new SettingRepo instance with the given database connection.
func NewSettingRepo(db *sql.DB) *SettingRepo {
	return &SettingRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
	}
}

// settingColumns defines the column list for setting SELECT queries to ensure consistent field mapping.
const settingColumns = `id, category, key, type, raw_value, updated_by, created_at, updated_at`

func scanSetting(row interface{ Scan(dest ...any) error }) (*model.SystemSetting, error) {
	var s model.SystemSetting
	if err := row.Scan(&s.ID, &s.Category, &s.Key, &s.Type, &s.RawValue, &s.UpdatedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert creates or replaces the setting at (category, key). The declared
// type is overwritten along with the value, so a setting can change type.
func (r *SettingRepo) Upsert(ctx context.Context, req *model.UpsertSettingRequest, rawValue, updatedBy string) (*model.SystemSetting, error) {
	if req == nil {
		return nil, errors.New("upsert setting request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now()
	query := `
		INSERT INTO system_settings (id, category, key, type, raw_value, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (category, key) DO UPDATE
		SET type = EXCLUDED.type, raw_value = EXCLUDED.raw_value,
		    updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
		RETURNING ` + settingColumns

	setting, err := scanSetting(r.DB.QueryRowContext(ctx, query,
		uuid.NewString(), req.Category, req.Key, req.Type, rawValue, updatedBy, now))
	if err != nil {
		return nil, fmt.Errorf("upsert setting: %w", err)
	}
	return setting, nil
}

// Get fetches the setting at (category, key).
func (r *SettingRepo) Get(ctx context.Context, category, key string) (*model.SystemSetting, error) {
	query := `SELECT ` + settingColumns + ` FROM system_settings WHERE category = $1 AND key = $2`
	setting, err := scanSetting(r.DB.QueryRowContext(ctx, query, category, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return setting, nil
}

// List returns settings in a category, or every setting when category is empty.
func (r *SettingRepo) List(ctx context.Context, category string) ([]*model.SystemSetting, error) {
	query := `SELECT ` + settingColumns + ` FROM system_settings`
	var args []any
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY category, key`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var settings []*model.SystemSetting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}
