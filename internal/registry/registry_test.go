package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	memcache "github.com/dropDatabas3/authbroker/internal/cache/memory"
	"github.com/dropDatabas3/authbroker/internal/observability/logger"
	"github.com/dropDatabas3/authbroker/internal/registry"
	"github.com/dropDatabas3/authbroker/internal/store/core"
	"github.com/dropDatabas3/authbroker/internal/store/memory"
)

func init() {
	logger.Init(logger.Config{Env: "dev", Level: "error"})
}

func newService() (*registry.Service, core.ClientRepository) {
	repo := memory.New().Clients()
	return registry.New(repo, memcache.New(time.Minute)), repo
}

func validInput() core.ClientInput {
	return core.ClientInput{
		Name:           "Acme",
		AllowedOrigins: []string{"https://app.acme.com"},
		RedirectURLs:   []string{"https://app.acme.com/auth"},
	}
}

func TestCreate_MintsToken(t *testing.T) {
	svc, _ := newService()
	cl, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, cl.ID)
	// 32 random bytes hex encoded.
	require.Len(t, cl.Token, 64)

	cl2, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEqual(t, cl.Token, cl2.Token)
}

func TestCreate_Invalid(t *testing.T) {
	svc, _ := newService()
	cases := []core.ClientInput{
		{},
		{Name: "x", RedirectURLs: []string{"https://a"}},
		{Name: "x", AllowedOrigins: []string{"https://a"}},
		{Name: "x", RedirectURLs: []string{""}, AllowedOrigins: []string{"https://a"}},
	}
	for i, in := range cases {
		_, err := svc.Create(context.Background(), in)
		require.ErrorIs(t, err, registry.ErrInvalidInput, "case %d", i)
	}
}

func TestGetByToken_CachesLookups(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()

	cl, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	got, err := svc.GetByToken(ctx, cl.Token)
	require.NoError(t, err)
	require.Equal(t, cl.ID, got.ID)

	// Remove from the repository; the cached entry still answers.
	require.NoError(t, repo.Delete(ctx, cl.ID))
	got, err = svc.GetByToken(ctx, cl.Token)
	require.NoError(t, err)
	require.Equal(t, cl.ID, got.ID)
}

func TestGetByToken_Unknown(t *testing.T) {
	svc, _ := newService()
	_, err := svc.GetByToken(context.Background(), "no-such-token")
	require.True(t, core.IsNotFound(err), "got %v", err)

	_, err = svc.GetByToken(context.Background(), "")
	require.True(t, core.IsNotFound(err), "got %v", err)
}

func TestUpdate_InvalidatesCache(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	cl, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	// Warm the cache.
	_, err = svc.GetByToken(ctx, cl.Token)
	require.NoError(t, err)

	in := validInput()
	in.Name = "Acme Renamed"
	_, err = svc.Update(ctx, cl.ID, in)
	require.NoError(t, err)

	got, err := svc.GetByToken(ctx, cl.Token)
	require.NoError(t, err)
	require.Equal(t, "Acme Renamed", got.Name)
}

func TestDelete_InvalidatesCache(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	cl, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.GetByToken(ctx, cl.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, cl.ID))
	_, err = svc.GetByToken(ctx, cl.Token)
	require.True(t, core.IsNotFound(err), "got %v", err)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Update(context.Background(), "ghost", validInput())
	require.True(t, core.IsNotFound(err) || errors.Is(err, core.ErrNotFound), "got %v", err)
}
