// Package registry es dueño de las registraciones de tenants: acuña el
// token al crear, expone el CRUD admin y sirve el lookup caliente por
// token detrás de un cache corto con fill por singleflight, porque todo
// flujo de autenticación arranca resolviendo un token.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/authbroker/internal/cache"
	"github.com/dropDatabas3/authbroker/internal/observability/logger"
	tokens "github.com/dropDatabas3/authbroker/internal/security/token"
	"github.com/dropDatabas3/authbroker/internal/store/core"
)

// ErrInvalidInput rechaza un create/update con campos requeridos faltantes.
var ErrInvalidInput = errors.New("registry: invalid client input")

// lookupTTL mantiene corto el cache de tokens para que los updates admin
// se propaguen rápido sin un bus de invalidación.
const lookupTTL = 30 * time.Second

type Service struct {
	repo  core.ClientRepository
	cache cache.Cache
	sf    singleflight.Group
	log   *zap.Logger
}

func New(repo core.ClientRepository, c cache.Cache) *Service {
	return &Service{repo: repo, cache: c, log: logger.Named("registry")}
}

func cacheKey(token string) string {
	// Nunca usar el token de capacidad crudo como clave de cache.
	return "client:tok:" + tokens.SHA256Base64URL(token)
}

// GetByToken resuelve un token de client consultando primero el cache.
// Los misses concurrentes del mismo token colapsan en un único lookup al
// repositorio.
func (s *Service) GetByToken(ctx context.Context, token string) (*core.Client, error) {
	if token == "" {
		return nil, core.ErrNotFound
	}
	key := cacheKey(token)
	if b, ok := s.cache.Get(ctx, key); ok {
		var cl core.Client
		if json.Unmarshal(b, &cl) == nil {
			return &cl, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		cl, err := s.repo.GetByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(cl); err == nil {
			s.cache.Set(ctx, key, b, lookupTTL)
		}
		return cl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Client), nil
}

// GetByID resuelve un client por id interno (superficie admin).
func (s *Service) GetByID(ctx context.Context, id string) (*core.Client, error) {
	return s.repo.GetByID(ctx, id)
}

// List devuelve todas las registraciones (superficie admin).
func (s *Service) List(ctx context.Context) ([]core.Client, error) {
	return s.repo.List(ctx)
}

// Create registra un client nuevo y acuña su token de capacidad de 256 bits.
func (s *Service) Create(ctx context.Context, in core.ClientInput) (*core.Client, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	tok, err := tokens.GenerateClientToken()
	if err != nil {
		return nil, err
	}
	cl := &core.Client{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		Token:              tok,
		AllowedOrigins:     in.AllowedOrigins,
		RedirectURLs:       in.RedirectURLs,
		LogoURL:            in.LogoURL,
		GoogleClientID:     in.GoogleClientID,
		GoogleClientSecret: in.GoogleClientSecret,
		FacebookAppID:      in.FacebookAppID,
		FacebookAppSecret:  in.FacebookAppSecret,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, cl); err != nil {
		return nil, err
	}
	s.log.Info("client registered", zap.String("client_id", cl.ID), zap.String("name", cl.Name))
	return cl, nil
}

// Update reemplaza los campos mutables de una registración y tira la
// entrada de cache del token para que el cambio rija en el próximo
// lookup.
func (s *Service) Update(ctx context.Context, id string, in core.ClientInput) (*core.Client, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cl, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.cache.Delete(ctx, cacheKey(prev.Token))
	return cl, nil
}

// Delete borra una registración. Los users creados bajo ella conservan
// su ClientID (huérfano blando; el campo es sólo procedencia).
func (s *Service) Delete(ctx context.Context, id string) error {
	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(ctx, cacheKey(prev.Token))
	s.log.Info("client deleted", zap.String("client_id", id))
	return nil
}

func validate(in core.ClientInput) error {
	if in.Name == "" || len(in.RedirectURLs) == 0 || len(in.AllowedOrigins) == 0 {
		return ErrInvalidInput
	}
	for _, u := range in.RedirectURLs {
		if u == "" {
			return ErrInvalidInput
		}
	}
	return nil
}
