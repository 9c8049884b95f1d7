package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/authbroker/internal/auth"
	"github.com/dropDatabas3/authbroker/internal/cache"
	memcache "github.com/dropDatabas3/authbroker/internal/cache/memory"
	rediscache "github.com/dropDatabas3/authbroker/internal/cache/redis"
	"github.com/dropDatabas3/authbroker/internal/config"
	httpx "github.com/dropDatabas3/authbroker/internal/http"
	"github.com/dropDatabas3/authbroker/internal/http/handlers"
	httprouter "github.com/dropDatabas3/authbroker/internal/http/router"
	jwtx "github.com/dropDatabas3/authbroker/internal/jwt"
	"github.com/dropDatabas3/authbroker/internal/linker"
	"github.com/dropDatabas3/authbroker/internal/oauth"
	"github.com/dropDatabas3/authbroker/internal/oauth/facebook"
	"github.com/dropDatabas3/authbroker/internal/oauth/google"
	"github.com/dropDatabas3/authbroker/internal/observability/logger"
	"github.com/dropDatabas3/authbroker/internal/rate"
	"github.com/dropDatabas3/authbroker/internal/registry"
	"github.com/dropDatabas3/authbroker/internal/store/core"
	memstore "github.com/dropDatabas3/authbroker/internal/store/memory"
	"github.com/dropDatabas3/authbroker/internal/store/pg"
	"github.com/dropDatabas3/authbroker/internal/trust"
)

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the broker HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				// Cae a config sólo de entorno cuando el archivo default
				// no existe y no se pasó un path explícito.
				if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
					cfg, err = config.Load("")
				}
				if err != nil {
					return err
				}
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "authbroker",
	})
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingers := map[string]handlers.Pinger{}

	// Backend de cache.
	var c cache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		r := rediscache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		defer r.Close()
		pingers["redis"] = r
		c = r
	default:
		c = memcache.New(config.Duration(cfg.Cache.Memory.DefaultTTL))
	}

	// Backend de store.
	var (
		clients core.ClientRepository
		users   core.UserRepository
	)
	switch cfg.Storage.Driver {
	case "postgres":
		store, err := pg.Open(ctx, cfg.Storage.DSN, pg.Options{
			MaxConns:        cfg.Storage.Postgres.MaxOpenConns,
			MinConns:        cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: config.Duration(cfg.Storage.Postgres.ConnMaxLifetime),
		})
		if err != nil {
			return err
		}
		defer store.Close()
		pingers["postgres"] = store
		clients = store.Clients()
		users = store.Users()
	default:
		mem := memstore.New()
		clients = mem.Clients()
		users = mem.Users()
		log.Warn("using in-memory storage, data will not survive a restart")
	}

	reg := registry.New(clients, c)
	validator := trust.NewValidator(reg)

	ttl, err := cfg.JWTTTL()
	if err != nil {
		return err
	}
	issuer := jwtx.NewIssuer(cfg.JWT.Secret, ttl)

	ptimeout, err := cfg.ProviderTimeout()
	if err != nil {
		return err
	}
	hc := oauth.NewHTTPClient(ptimeout)
	base := cfg.Server.BaseURL
	googleP := google.New(base+"/api/auth/google/callback", hc)
	facebookP := facebook.New(base+"/api/auth/facebook/callback", hc)

	authSvc := auth.NewService(validator, linker.New(users), issuer, users, googleP, facebookP)
	h := handlers.New(authSvc, reg, cfg.Server.LoginURL)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router := httprouter.NewRouter(h, httprouter.RouterConfig{
		AdminAPIKey:  cfg.Admin.APIKey,
		CORSOrigins:  cfg.Server.CORSAllowedOrigins,
		Limiter:      rate.NewLimiter(c, ""),
		RateEnabled:  cfg.Rate.Enabled,
		LoginLimit:   cfg.Rate.Login.Limit,
		LoginWindow:  config.Window(cfg.Rate.Login.Window),
		SocialLimit:  cfg.Rate.Social.Limit,
		SocialWindow: config.Window(cfg.Rate.Social.Window),
		Registry:     promReg,
		Pingers:      pingers,
	})

	srv := httpx.NewServer(cfg.Server.Addr, router,
		config.Duration(cfg.Server.ReadTimeout), config.Duration(cfg.Server.WriteTimeout))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped")
	return nil
}
