package core

import "context"

// ClientRepository es la frontera de persistencia para registraciones de
// tenants. Los flujos de auth casi sólo leen; las escrituras pasan por la
// superficie admin.
type ClientRepository interface {
	// GetByToken resuelve un token opaco de client. Devuelve ErrNotFound
	// cuando no matchea ninguna registración.
	GetByToken(ctx context.Context, token string) (*Client, error)

	// GetByID resuelve un client por su id interno.
	GetByID(ctx context.Context, id string) (*Client, error)

	// List devuelve todos los clients registrados.
	List(ctx context.Context) ([]Client, error)

	// Create persiste un client nuevo. ID y Token ya vienen seteados por
	// el caller. Devuelve ErrConflict si colisiona el token.
	Create(ctx context.Context, c *Client) error

	// Update reemplaza los campos mutables de un client existente. El
	// token es inmutable y se ignora si viene en el input.
	Update(ctx context.Context, id string, in ClientInput) (*Client, error)

	// Delete borra un client. Los users creados bajo él conservan su
	// referencia ClientID; es sólo procedencia.
	Delete(ctx context.Context, id string) error
}

// UserRepository es la frontera de persistencia para identidades de
// usuario final. Las implementaciones aplican unicidad de email cuando
// está presente y reportan violaciones como ErrConflict.
type UserRepository interface {
	// GetByEmail busca un user por email en minúsculas. Devuelve
	// ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByProvider busca un user por (provider, providerUserID).
	GetByProvider(ctx context.Context, provider, providerUserID string) (*User, error)

	// GetByID busca un user por id interno.
	GetByID(ctx context.Context, id string) (*User, error)

	// Create persiste un user nuevo. Devuelve ErrConflict cuando el email
	// ya está tomado.
	Create(ctx context.Context, u *User) error

	// Save escribe la entidad mutada en un único write.
	Save(ctx context.Context, u *User) error
}
