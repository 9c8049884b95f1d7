// Package linker reconcilia la identidad de un usuario entre el camino
// de password y varios providers OAuth sin crear cuentas duplicadas ni
// huérfanas. El email, cuando está, es la clave primaria de
// de-duplicación; (provider, externalId) es el fallback.
package linker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authbroker/internal/oauth"
	"github.com/dropDatabas3/authbroker/internal/observability/logger"
	"github.com/dropDatabas3/authbroker/internal/security/password"
	"github.com/dropDatabas3/authbroker/internal/store/core"
	"github.com/dropDatabas3/authbroker/internal/util"
)

// ProviderMismatchError rechaza un login cuando el email ya pertenece a
// una cuenta creada con otro método. Mergear acá en silencio permitiría
// account takeover entre providers.
type ProviderMismatchError struct {
	// Provider es el método con el que se creó la cuenta existente
	// ("google", "facebook" o "password").
	Provider string
}

func (e *ProviderMismatchError) Error() string {
	return fmt.Sprintf("account was created using %s authentication", e.Provider)
}

// SocialAccountError rechaza un login con password contra una cuenta
// sólo social, en vez de comparar contra un hash inexistente.
type SocialAccountError struct {
	Provider string
}

func (e *SocialAccountError) Error() string {
	return fmt.Sprintf("account was created using %s authentication", e.Provider)
}

// Errores sentinela del camino de password.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrDuplicateEmail     = fmt.Errorf("email already registered")
)

// Linker es dueño del find-or-create y de la autenticación por password
// sobre el repositorio de users.
type Linker struct {
	users core.UserRepository
	log   *zap.Logger
}

func New(users core.UserRepository) *Linker {
	return &Linker{users: users, log: logger.Named("linker")}
}

// LinkOrCreate reconcilia una identidad federada normalizada con el
// store de users y devuelve el user resultante. clientID es el tenant
// cuyo flujo produjo la identidad.
//
// Precedencia de lookup: primero email, después (provider, externalId).
// Una carrera de creación perdida (violación de email único) se
// convierte en lookup del ganador seguido del camino de update, así dos
// primeros logins concurrentes dejan exactamente un user.
func (l *Linker) LinkOrCreate(ctx context.Context, id *oauth.Identity, clientID string) (*core.User, error) {
	u, err := l.find(ctx, id)
	if err != nil && !core.IsNotFound(err) {
		return nil, err
	}

	if u == nil {
		created := &core.User{
			ID:              uuid.NewString(),
			Name:            id.Name,
			Email:           util.NormalizeEmail(id.Email),
			AuthProvider:    id.Provider,
			ProviderUserID:  id.ExternalID,
			ProfileImageURL: id.PictureURL,
			ClientID:        clientID,
			CreatedAt:       time.Now().UTC(),
		}
		err := l.users.Create(ctx, created)
		if err == nil {
			l.log.Info("user created",
				zap.String("user_id", created.ID),
				zap.String("provider", id.Provider),
				zap.String("email", util.MaskEmail(id.Email)))
			return created, nil
		}
		if !core.IsConflict(err) {
			return nil, err
		}
		// Perdió la carrera; el registro del ganador ya existe.
		if u, err = l.find(ctx, id); err != nil {
			return nil, err
		}
	}

	if u.AuthProvider != "" && u.AuthProvider != id.Provider {
		return nil, &ProviderMismatchError{Provider: u.AuthProvider}
	}
	if u.AuthProvider == "" && u.HasPassword() {
		// Cuenta de password entrando por un provider por primera vez.
		return nil, &ProviderMismatchError{Provider: "password"}
	}

	// El primer tenant que toca el registro lo reclama.
	if u.ClientID == "" {
		u.ClientID = clientID
	}
	if u.AuthProvider == "" {
		u.AuthProvider = id.Provider
		u.ProviderUserID = id.ExternalID
	}
	// Las URLs de foto del provider expiran; se refrescan en cada
	// login.
	if id.PictureURL != "" {
		u.ProfileImageURL = id.PictureURL
	}

	if err := l.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (l *Linker) find(ctx context.Context, id *oauth.Identity) (*core.User, error) {
	if id.Email != "" {
		u, err := l.users.GetByEmail(ctx, util.NormalizeEmail(id.Email))
		if err == nil {
			return u, nil
		}
		if !core.IsNotFound(err) {
			return nil, err
		}
	}
	return l.users.GetByProvider(ctx, id.Provider, id.ExternalID)
}

// Register crea una cuenta basada en password. El caller ya manda el
// password hasheado.
func (l *Linker) Register(ctx context.Context, name, email, passwordHash, clientID string) (*core.User, error) {
	email = util.NormalizeEmail(email)
	if _, err := l.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !core.IsNotFound(err) {
		return nil, err
	}

	u := &core.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: &passwordHash,
		ClientID:     clientID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.users.Create(ctx, u); err != nil {
		if core.IsConflict(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	l.log.Info("user registered",
		zap.String("user_id", u.ID),
		zap.String("email", util.MaskEmail(email)))
	return u, nil
}

// Authenticate hace un login por password: ubica por email, cubre el
// caso sólo-social y compara el hash. LinkOrCreate no participa.
func (l *Linker) Authenticate(ctx context.Context, email, plain string) (*core.User, error) {
	u, err := l.users.GetByEmail(ctx, util.NormalizeEmail(email))
	if err != nil {
		if core.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if u.AuthProvider != "" && !u.HasPassword() {
		return nil, &SocialAccountError{Provider: u.AuthProvider}
	}
	if !password.Verify(plain, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
