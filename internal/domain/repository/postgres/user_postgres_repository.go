// File: internal/domain/repository/postgres/user_postgres_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/vikaspotluri123/mfa-service/internal/domain/errors"
	"github.com/vikaspotluri123/mfa-service/internal/domain/models"
	"github.com/vikaspotluri123/mfa-service/internal/domain/repository"
)

type pgxUserRepository struct {
	db *pgxpool.Pool
}

// NewPgxUserRepository creates a read-only UserRepository over the CMS
// users table.
func NewPgxUserRepository(db *pgxpool.Pool) repository.UserRepository {
	return &pgxUserRepository{db: db}
}

func (r *pgxUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx,
		`SELECT id, email, mfa_enabled FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Email, &user.MFAEnabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

var _ repository.UserRepository = (*pgxUserRepository)(nil)
