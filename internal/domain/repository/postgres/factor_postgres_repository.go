// File: internal/domain/repository/postgres/factor_postgres_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/vikaspotluri123/mfa-service/internal/domain/errors"
	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
)

type pgxFactorRepository struct {
	db *pgxpool.Pool
}

// NewPgxFactorRepository creates a FactorRepository backed by PostgreSQL.
func NewPgxFactorRepository(db *pgxpool.Pool) repository.FactorRepository {
	return &pgxFactorRepository{db: db}
}

const factorColumns = `id, user_id, name, type, status, secret, created_at, updated_at`

func scanFactor(row pgx.Row) (*models.Factor, error) {
	factor := &models.Factor{}
	err := row.Scan(
		&factor.ID, &factor.UserID, &factor.Name, &factor.Type,
		&factor.Status, &factor.Secret, &factor.CreatedAt, &factor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return factor, nil
}

func (r *pgxFactorRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*models.Factor, error) {
	query := `
		SELECT ` + factorColumns + `
		FROM second_factors
		WHERE user_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list second factors: %w", err)
	}
	defer rows.Close()

	var factors []*models.Factor
	for rows.Next() {
		factor, err := scanFactor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan second factor: %w", err)
		}
		factors = append(factors, factor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read second factors: %w", err)
	}
	return factors, nil
}

func (r *pgxFactorRepository) FindByID(ctx context.Context, id, userID uuid.UUID) (*models.Factor, error) {
	query := `
		SELECT ` + factorColumns + `
		FROM second_factors
		WHERE id = $1 AND user_id = $2`
	factor, err := scanFactor(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrFactorNotFound
		}
		return nil, fmt.Errorf("failed to find second factor: %w", err)
	}
	return factor, nil
}

func (r *pgxFactorRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM second_factors WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count second factors: %w", err)
	}
	return count, nil
}

func (r *pgxFactorRepository) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM second_factors WHERE user_id = $1 AND status = $2`,
		userID, models.FactorStatusActive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active second factors: %w", err)
	}
	return count, nil
}

func (r *pgxFactorRepository) Create(ctx context.Context, factor *models.Factor) error {
	now := time.Now().UTC()
	factor.CreatedAt = now
	factor.UpdatedAt = now
	query := `
		INSERT INTO second_factors (id, user_id, name, type, status, secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(ctx, query,
		factor.ID, factor.UserID, factor.Name, factor.Type,
		factor.Status, factor.Secret, factor.CreatedAt, factor.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique violation on id
			return fmt.Errorf("second factor id conflict: %w", err)
		}
		return fmt.Errorf("failed to create second factor: %w", err)
	}
	return nil
}

// Save writes name/status/secret. The row is only touched when a field is
// actually different, so RowsAffected doubles as the changed report.
func (r *pgxFactorRepository) Save(ctx context.Context, factor *models.Factor) (bool, error) {
	query := `
		UPDATE second_factors SET
			name = $3, status = $4, secret = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2
		  AND (name, status, secret) IS DISTINCT FROM ($3, $4, $5)`
	tag, err := r.db.Exec(ctx, query,
		factor.ID, factor.UserID, factor.Name, factor.Status, factor.Secret, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to save second factor: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete refuses to remove the user's last factor; the count guard runs
// inside the statement so the check and the delete are atomic.
func (r *pgxFactorRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		DELETE FROM second_factors
		WHERE id = $1 AND user_id = $2
		  AND (SELECT COUNT(*) FROM second_factors WHERE user_id = $2) > 1`
	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete second factor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		count, countErr := r.CountByUser(ctx, userID)
		if countErr != nil {
			return countErr
		}
		if count <= 1 {
			return domainErrors.ErrMinimumCountRequired
		}
		return domainErrors.ErrFactorNotFound
	}
	return nil
}

var _ repository.FactorRepository = (*pgxFactorRepository)(nil)
