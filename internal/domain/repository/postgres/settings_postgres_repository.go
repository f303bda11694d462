// File: internal/domain/repository/postgres/settings_postgres_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/vikaspotluri123/mfa-service/internal/domain/errors"
	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
)

type pgxSettingsRepository struct {
	db *pgxpool.Pool
}

// NewPgxSettingsRepository creates a SettingsRepository backed by PostgreSQL.
func NewPgxSettingsRepository(db *pgxpool.Pool) repository.SettingsRepository {
	return &pgxSettingsRepository{db: db}
}

func (r *pgxSettingsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domainErrors.ErrNotFound
		}
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

func (r *pgxSettingsRepository) SetSetting(ctx context.Context, key string, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := r.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

var _ repository.SettingsRepository = (*pgxSettingsRepository)(nil)
