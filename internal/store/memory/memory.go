// Package memory tiene los repositorios sobre maps que usan los tests y
// las corridas single-node sin Postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/authbroker/internal/store/core"
	"github.com/dropDatabas3/authbroker/internal/util"
)

// Store implementa core.ClientRepository y core.UserRepository sobre
// maps in-process. Todos los valores se copian al entrar y al salir para
// que los callers nunca puedan mutar estado compartido.
type Store struct {
	mu           sync.RWMutex
	clients      map[string]*core.Client // por id
	clientsByTok map[string]string       // token -> id
	users        map[string]*core.User   // por id
	usersByEmail map[string]string       // email normalizado -> id
}

func New() *Store {
	return &Store{
		clients:      make(map[string]*core.Client),
		clientsByTok: make(map[string]string),
		users:        make(map[string]*core.User),
		usersByEmail: make(map[string]string),
	}
}

func (s *Store) Clients() core.ClientRepository { return (*clientRepo)(s) }
func (s *Store) Users() core.UserRepository     { return (*userRepo)(s) }

type clientRepo Store

func (r *clientRepo) GetByToken(_ context.Context, token string) (*core.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.clientsByTok[token]
	if !ok {
		return nil, core.ErrNotFound
	}
	return copyClient(r.clients[id]), nil
}

func (r *clientRepo) GetByID(_ context.Context, id string) (*core.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return copyClient(c), nil
}

func (r *clientRepo) List(_ context.Context) ([]core.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, *copyClient(c))
	}
	return out, nil
}

func (r *clientRepo) Create(_ context.Context, c *core.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ID]; ok {
		return core.ErrConflict
	}
	if _, ok := r.clientsByTok[c.Token]; ok {
		return core.ErrConflict
	}
	r.clients[c.ID] = copyClient(c)
	r.clientsByTok[c.Token] = c.ID
	return nil
}

func (r *clientRepo) Update(_ context.Context, id string, in core.ClientInput) (*core.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	applyInput(c, in)
	return copyClient(c), nil
}

func (r *clientRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return core.ErrNotFound
	}
	delete(r.clientsByTok, c.Token)
	delete(r.clients, id)
	return nil
}

type userRepo Store

func (r *userRepo) GetByEmail(_ context.Context, email string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.usersByEmail[util.NormalizeEmail(email)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return copyUser(r.users[id]), nil
}

func (r *userRepo) GetByProvider(_ context.Context, provider, externalID string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.AuthProvider == provider && u.ProviderUserID == externalID {
			return copyUser(u), nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *userRepo) GetByID(_ context.Context, id string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *userRepo) Create(_ context.Context, u *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// El email es único sólo cuando está presente; las cuentas sin email
	// dedupean por (provider, externalId) en el linker.
	key := util.NormalizeEmail(u.Email)
	if key != "" {
		if _, ok := r.usersByEmail[key]; ok {
			return core.ErrConflict
		}
	}
	if _, ok := r.users[u.ID]; ok {
		return core.ErrConflict
	}
	cp := copyUser(u)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.users[cp.ID] = cp
	if key != "" {
		r.usersByEmail[key] = cp.ID
	}
	return nil
}

func (r *userRepo) Save(_ context.Context, u *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.users[u.ID]
	if !ok {
		return core.ErrNotFound
	}
	key := util.NormalizeEmail(u.Email)
	if key != "" {
		if id, taken := r.usersByEmail[key]; taken && id != u.ID {
			return core.ErrConflict
		}
	}
	if prevKey := util.NormalizeEmail(prev.Email); prevKey != "" && prevKey != key {
		delete(r.usersByEmail, prevKey)
	}
	r.users[u.ID] = copyUser(u)
	if key != "" {
		r.usersByEmail[key] = u.ID
	}
	return nil
}

// applyInput reemplaza los campos mutables. Los secrets vacíos conservan
// el valor guardado para que un admin pueda reenviar un client sin
// re-tipear credenciales.
func applyInput(c *core.Client, in core.ClientInput) {
	c.Name = in.Name
	c.AllowedOrigins = append([]string(nil), in.AllowedOrigins...)
	c.RedirectURLs = append([]string(nil), in.RedirectURLs...)
	c.LogoURL = in.LogoURL
	c.GoogleClientID = in.GoogleClientID
	if in.GoogleClientSecret != "" {
		c.GoogleClientSecret = in.GoogleClientSecret
	}
	c.FacebookAppID = in.FacebookAppID
	if in.FacebookAppSecret != "" {
		c.FacebookAppSecret = in.FacebookAppSecret
	}
}

func copyClient(c *core.Client) *core.Client {
	cp := *c
	cp.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	cp.RedirectURLs = append([]string(nil), c.RedirectURLs...)
	return &cp
}

func copyUser(u *core.User) *core.User {
	cp := *u
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		cp.PasswordHash = &h
	}
	return &cp
}
