package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/initify/solarhook/internal/config"
	"github.com/initify/solarhook/internal/fulfillment"
	"github.com/initify/solarhook/internal/solar"
	"github.com/initify/solarhook/internal/webhook"
)

// A Server owns the listening HTTP server for the gateway. It is built once
// at process start and torn down with Shutdown.
type Server struct {
	cfg  *config.Config
	http *http.Server
}

// NewServer returns a Server listening on cfg.Addr() and serving h.
//
// No read, write or idle timeouts are set: a handler that never completes
// its response keeps the connection open.
func NewServer(cfg *config.Config, h http.Handler) *Server {
	return &Server{
		cfg:  cfg,
		http: &http.Server{Addr: cfg.Addr(), Handler: h},
	}
}

// ServerFromEnv loads config from env and returns a Server wired to the
// solar fulfillment handler.
func ServerFromEnv() (*Server, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return ServerFromConfig(cfg)
}

// ServerFromConfig returns a Server for cfg wired to the solar fulfillment
// handler.
func ServerFromConfig(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	h, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	return NewServer(cfg, NewRouter(h)), nil
}

// NewHandler builds the Dialogflow fulfillment handler answering solar
// intents, with data files read from cfg.DataDir.
func NewHandler(cfg *config.Config) (webhook.Handler, error) {
	catalog, err := solar.LoadCatalog(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "load solar catalog")
	}
	advisor := solar.NewAdvisor(catalog, solar.NewSessionStore())

	actions := fulfillment.NewActions()
	advisor.Register(actions)

	return fulfillment.NewHandler(actions, fulfillment.WithToken(cfg.WebhookToken)), nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe listens on Addr and serves until Shutdown. It always
// returns a non-nil error; http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", s.http.Addr)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	logrus.Infof("Server running on port %s", s.cfg.Port)
	return s.http.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ListenAndServeUntilSignal serves until one of sig (SIGINT and SIGTERM by
// default) arrives, then shuts down.
func (s *Server) ListenAndServeUntilSignal(sig ...os.Signal) error {
	if len(sig) == 0 {
		sig = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), sig...)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutdown signal received, exiting...")
	if err := s.Shutdown(context.Background()); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
