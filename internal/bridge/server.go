// Package bridge exposes one managed console connection over HTTP. It owns
// the concerns the protocol engine deliberately leaves to its caller:
// dialing, authentication, and re-establishing a session after the engine
// declares its connection dead.
package bridge

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rconduit/rconduit/internal/observability"
	"github.com/rconduit/rconduit/internal/rcon"
	"github.com/rconduit/rconduit/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Server struct {
	cfg    Config
	log    zerolog.Logger
	router *gin.Engine
	rng    *rand.Rand
	up     time.Time

	mu   sync.Mutex
	conn *rcon.Conn
}

func NewServer(cfg Config) (*Server, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	observability.RegisterMetrics()
	s := &Server{
		cfg: cfg,
		log: log.Logger.With().Str("component", "bridge").Logger(),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		up:  time.Now(),
	}
	s.router = s.buildRouter()
	return s, nil
}

// Router exposes the handler for serving and for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves HTTP until ctx is done, then shuts down the listener and the
// console session.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.ListenAddr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.ListenAddr).Msg("bridge listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeSession()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Execute runs one console command over the managed session, establishing or
// re-establishing it first if needed.
func (s *Server) Execute(ctx context.Context, command string) (string, error) {
	start := time.Now()
	conn, err := s.session(ctx)
	if err != nil {
		observability.RecordConsoleCommand("connect_error", time.Since(start))
		return "", err
	}

	out, err := conn.Execute(ctx, command)
	if err != nil {
		s.dropIfDead(conn)
		observability.RecordConsoleCommand("error", time.Since(start))
		return "", err
	}
	observability.RecordConsoleCommand("success", time.Since(start))
	return out, nil
}

// ConsoleState reports the managed session's lifecycle state, or
// "disconnected" when no session exists.
func (s *Server) ConsoleState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return "disconnected"
	}
	return s.conn.State().String()
}

// session returns a ready console connection, dialing with backoff when the
// previous one is gone. Requests serialize here; the protocol allows only
// one in-flight command per connection anyway.
func (s *Server) session(ctx context.Context) (*rcon.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil && s.conn.State() == rcon.StateReady {
		return s.conn, nil
	}
	s.conn = nil

	var attempt int
	for {
		attempt++
		conn, err := s.connectOnce(ctx)
		if err == nil {
			observability.RecordConsoleConnect(true)
			s.conn = conn
			return conn, nil
		}
		observability.RecordConsoleConnect(false)
		s.log.Warn().Int("attempt", attempt).Str("addr", s.cfg.ConsoleAddr).Err(err).Msg("console connect failed")

		// A rejected password cannot be fixed by retrying.
		if errors.Is(err, rcon.ErrAuthFailed) {
			return nil, err
		}
		if !s.shouldRetry(attempt) {
			return nil, err
		}
		if err := s.sleepBackoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (s *Server) connectOnce(ctx context.Context) (*rcon.Conn, error) {
	raw, err := transport.Dial(ctx, s.cfg.ConsoleAddr, s.cfg.Transport)
	if err != nil {
		return nil, err
	}
	conn := rcon.NewConn(raw, s.cfg.Engine)
	if err := conn.Authenticate(ctx, s.cfg.Password); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (s *Server) shouldRetry(attempt int) bool {
	if s.cfg.MaxConnectAttempts <= 0 {
		return true
	}
	return attempt < s.cfg.MaxConnectAttempts
}

func (s *Server) sleepBackoff(ctx context.Context, attempt int) error {
	delay := NextBackoffDelay(s.cfg.Backoff, attempt, s.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// dropIfDead forgets a session the engine has closed so the next request
// redials. Live sessions stay; a local rejection does not cost the conn.
func (s *Server) dropIfDead(conn *rcon.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn && conn.State() == rcon.StateClosed {
		s.conn = nil
	}
}

func (s *Server) closeSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
