package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrUserNotFound = errors.New("user not found")

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	// EnsureGuest returns the id of the shared guest account, creating it on
	// first use. Safe to call concurrently.
	EnsureGuest(ctx context.Context) (uuid.UUID, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, first_name, last_name, role, created_at
		FROM users
		WHERE email = $1
	`

	var u User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user by email %s: %w", email, err)
	}

	return &u, nil
}

func (r *postgresRepository) EnsureGuest(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, GuestEmail).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("repository: failed to look up guest account: %w", err)
	}

	newID, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate guest account id: %w", err)
	}

	// ON CONFLICT keeps concurrent first-time callers from racing on the
	// unique email; whoever loses re-reads the winner's row.
	insert := `
		INSERT INTO users (id, email, first_name, last_name, role)
		VALUES ($1, $2, 'Guest', 'Customer', $3)
		ON CONFLICT (email) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, newID, GuestEmail, RoleClient); err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to create guest account: %w", err)
	}

	if err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, GuestEmail).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to re-read guest account: %w", err)
	}

	log.Info().Stringer("user_id", id).Msg("repository: guest account ready")
	return id, nil
}
