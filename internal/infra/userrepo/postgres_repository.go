package userrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbansims/microgreens/internal/domain/auth"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	preference_mode TEXT NOT NULL DEFAULT 'home',
	default_tray_size TEXT NOT NULL DEFAULT '10x20 inch',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT users_username_key UNIQUE (username),
	CONSTRAINT users_email_key UNIQUE (email)
);
`

const userColumns = `id, username, email, password_hash, role, preference_mode, default_tray_size, created_at`

// PostgresRepository persists users in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the users table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return err
}

// Create inserts a new user row.
func (r *PostgresRepository) Create(ctx context.Context, user auth.User) (auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, role, preference_mode, default_tray_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		user.Username, user.Email, user.PasswordHash, user.Role, user.PreferenceMode, user.DefaultTraySize)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "email") {
				return auth.User{}, auth.ErrEmailExists
			}
			return auth.User{}, auth.ErrUsernameExists
		}
		return auth.User{}, err
	}
	return created, nil
}

// GetByUsername fetches a user by login name.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (auth.User, bool, error) {
	return r.getOne(ctx, `WHERE username = $1`, username)
}

// GetByEmail fetches a user by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (auth.User, bool, error) {
	return r.getOne(ctx, `WHERE email = $1`, email)
}

// GetByID fetches by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (auth.User, bool, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// UpdatePreferences stores the dashboard mode and default tray size.
func (r *PostgresRepository) UpdatePreferences(ctx context.Context, id int64, mode, traySize string) (auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET preference_mode = $1, default_tray_size = $2
		WHERE id = $3
		RETURNING `+userColumns, mode, traySize, id)
	return scanUser(row)
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (auth.User, bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users `+where+` LIMIT 1`, arg)
	if err != nil {
		return auth.User{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return auth.User{}, false, rows.Err()
	}
	user, err := scanUser(rows)
	if err != nil {
		return auth.User{}, false, err
	}
	return user, true, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (auth.User, error) {
	var user auth.User
	var created time.Time
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role,
		&user.PreferenceMode, &user.DefaultTraySize, &created); err != nil {
		return auth.User{}, err
	}
	user.CreatedAt = created.UTC()
	return user, nil
}

var _ auth.Repository = (*PostgresRepository)(nil)
