package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound = errors.New("profile not found")
	ErrBackend  = errors.New("backend error")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByPhone(ctx context.Context, phone string) (*Profile, error) {
	var p Profile
	err := r.db.GetContext(ctx, &p, getByPhoneQuery, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return &p, nil
}

const getByPhoneQuery = `SELECT * FROM users WHERE phone = $1`

// Create inserts the profile row for a freshly signed-up account. Re-running
// for an existing phone is a no-op so a retried sign-up cannot fail here.
func (r *Repository) Create(ctx context.Context, phone string) error {
	_, err := r.db.ExecContext(ctx, createQuery, phone, DefaultRole)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

const createQuery = `INSERT INTO users (phone, role) VALUES ($1, $2) ON CONFLICT (phone) DO NOTHING`

func (r *Repository) UpdateFIO(ctx context.Context, phone, fio string) error {
	_, err := r.db.ExecContext(ctx, updateFIOQuery, fio, phone)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

const updateFIOQuery = `UPDATE users SET fio = NULLIF($1, '') WHERE phone = $2`
