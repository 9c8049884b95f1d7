package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authbroker/internal/observability/logger"
)

// Server envuelve el server de stdlib con los timeouts del broker y un
// shutdown graceful.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	if readTimeout == 0 {
		readTimeout = 10 * time.Second
	}
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       120 * time.Second,
		},
		log: logger.Named("server"),
	}
}

// Start bloquea hasta que el listener falla o se llama Shutdown.
func (s *Server) Start() error {
	s.log.Info("listening", zap.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down")
	return s.srv.Shutdown(ctx)
}
