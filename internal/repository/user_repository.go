package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-checker/internal/domain"
)

// UserRepository defines persistence access for user records.
type UserRepository interface {
	// GetByID returns nil when no record exists.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// CreateIfAbsent inserts user unless a record with the same id exists.
	// created reports whether this call inserted the row.
	CreateIfAbsent(ctx context.Context, user *domain.User) (created bool, err error)
	ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, email, display_name, role, department, created_at
        FROM users WHERE id=$1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error) {
	const query = `
        INSERT INTO users (id, email, display_name, role, department)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO NOTHING
        RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.Role,
		user.Department,
	).Scan(&user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	const query = `
        SELECT id, email, display_name, role, department, created_at
        FROM users WHERE role=$1 ORDER BY display_name ASC`

	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.Role,
		&user.Department,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
