package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authbroker/internal/store/core"
)

const clientCols = `id, name, token, allowed_origins, redirect_urls, logo_url,
	google_client_id, google_client_secret, facebook_app_id, facebook_app_secret, created_at`

type ClientRepo struct {
	pool *pgxpool.Pool
}

func (r *ClientRepo) GetByToken(ctx context.Context, token string) (*core.Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE token = $1`, token)
	return scanClient(row)
}

func (r *ClientRepo) GetByID(ctx context.Context, id string) (*core.Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE id = $1`, id)
	return scanClient(row)
}

func (r *ClientRepo) List(ctx context.Context) ([]core.Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientCols+` FROM clients ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *ClientRepo) Create(ctx context.Context, c *core.Client) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO clients
		(id, name, token, allowed_origins, redirect_urls, logo_url,
		 google_client_id, google_client_secret, facebook_app_id, facebook_app_secret, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.Name, c.Token, c.AllowedOrigins, c.RedirectURLs, c.LogoURL,
		c.GoogleClientID, c.GoogleClientSecret, c.FacebookAppID, c.FacebookAppSecret, c.CreatedAt)
	if isUniqueViolation(err) {
		return core.ErrConflict
	}
	return err
}

func (r *ClientRepo) Update(ctx context.Context, id string, in core.ClientInput) (*core.Client, error) {
	// Los secrets vacíos conservan el valor guardado para que un admin
	// pueda reenviar un client sin re-tipear credenciales.
	row := r.pool.QueryRow(ctx, `UPDATE clients SET
		name = $2,
		allowed_origins = $3,
		redirect_urls = $4,
		logo_url = $5,
		google_client_id = $6,
		google_client_secret = COALESCE(NULLIF($7, ''), google_client_secret),
		facebook_app_id = $8,
		facebook_app_secret = COALESCE(NULLIF($9, ''), facebook_app_secret)
		WHERE id = $1
		RETURNING `+clientCols,
		id, in.Name, in.AllowedOrigins, in.RedirectURLs, in.LogoURL,
		in.GoogleClientID, in.GoogleClientSecret, in.FacebookAppID, in.FacebookAppSecret)
	return scanClient(row)
}

func (r *ClientRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanClient(row pgx.Row) (*core.Client, error) {
	var c core.Client
	err := row.Scan(&c.ID, &c.Name, &c.Token, &c.AllowedOrigins, &c.RedirectURLs, &c.LogoURL,
		&c.GoogleClientID, &c.GoogleClientSecret, &c.FacebookAppID, &c.FacebookAppSecret, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// 23505 es unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
