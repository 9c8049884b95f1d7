package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authbroker/internal/store/core"
	"github.com/dropDatabas3/authbroker/internal/util"
)

const userCols = `id, name, email, password_hash, auth_provider,
	provider_user_id, profile_image_url, client_id, created_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	// Las cuentas sin email nunca se direccionan por email.
	norm := util.NormalizeEmail(email)
	if norm == "" {
		return nil, core.ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE lower(email) = $1`, norm)
	return scanUser(row)
}

func (r *UserRepo) GetByProvider(ctx context.Context, provider, providerUserID string) (*core.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE auth_provider = $1 AND provider_user_id = $2`,
		provider, providerUserID)
	return scanUser(row)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*core.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepo) Create(ctx context.Context, u *core.User) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO users
		(id, name, email, password_hash, auth_provider, provider_user_id,
		 profile_image_url, client_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.AuthProvider, u.ProviderUserID,
		u.ProfileImageURL, u.ClientID, u.CreatedAt)
	if isUniqueViolation(err) {
		return core.ErrConflict
	}
	return err
}

func (r *UserRepo) Save(ctx context.Context, u *core.User) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET
		name = $2, email = $3, password_hash = $4, auth_provider = $5,
		provider_user_id = $6, profile_image_url = $7, client_id = $8
		WHERE id = $1`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.AuthProvider,
		u.ProviderUserID, u.ProfileImageURL, u.ClientID)
	if isUniqueViolation(err) {
		return core.ErrConflict
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.AuthProvider,
		&u.ProviderUserID, &u.ProfileImageURL, &u.ClientID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
