package stub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/simpleab/pkg/logger"
)

// Server errors.
var (
	ErrStart    = errors.New("failed to start stub server")
	ErrShutdown = errors.New("failed to shut down stub server")
)

// ServerConfig holds the listen settings of the stub service.
type ServerConfig struct {
	Addr            string        `env:"STUB_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"STUB_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"STUB_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"STUB_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Server runs a handler until its context is cancelled, then shuts down gracefully.
type Server struct {
	cfg    ServerConfig
	logger *slog.Logger
}

// NewServer returns a Server. A nil logger discards output.
func NewServer(cfg ServerConfig, log *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{cfg: cfg, logger: log}
}

// Run listens on the configured address and serves h until ctx is done.
func (s *Server) Run(ctx context.Context, h http.Handler) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Join(ErrStart, err)
	}
	return s.Serve(ctx, ln, h)
}

// Serve serves h on ln until ctx is done. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.InfoContext(ctx, "stub service listening", slog.String("addr", ln.Addr().String()))

	var runErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%w: %w", ErrShutdown, err)
		}
		runErr = <-errCh
	case runErr = <-errCh:
	}

	s.logger.InfoContext(ctx, "stub service stopped")
	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, runErr)
	}
	return nil
}
