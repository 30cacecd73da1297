// Package app wires the relay's collaborators together and runs its HTTP
// server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/EGA-archive/EGA-auth/internal/relay/ledger"
	"github.com/EGA-archive/EGA-auth/internal/relay/oauth"
	"github.com/EGA-archive/EGA-auth/internal/relay/provider"
	"github.com/EGA-archive/EGA-auth/internal/relay/session"
)

// Config holds the relay configuration, loadable from the environment.
type Config struct {
	Addr         string        `env:"EGA_RELAY_ADDR"         envDefault:":9001"`
	BaseURL      string        `env:"EGA_RELAY_BASE_URL"`
	ClientID     string        `env:"EGA_RELAY_CLIENT_ID"`
	ClientSecret string        `env:"EGA_RELAY_CLIENT_SECRET"`
	TokenURL     string        `env:"EGA_RELAY_TOKEN_URL"`
	UserInfoURL  string        `env:"EGA_RELAY_USERINFO_URL"`
	DBPath       string        `env:"EGA_RELAY_DB_PATH"      envDefault:"/run/ega.db"`
	UIDShift     int64         `env:"EGA_RELAY_UID_SHIFT"    envDefault:"10000"`
	HTTPTimeout  time.Duration `env:"EGA_RELAY_HTTP_TIMEOUT" envDefault:"20s"`
	CookieName   string        `env:"EGA_RELAY_COOKIE_NAME"  envDefault:"EGA_SESSION"`
}

// Validate reports the first missing required setting.
func (c Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"base URL", c.BaseURL},
		{"client id", c.ClientID},
		{"client secret", c.ClientSecret},
		{"token URL", c.TokenURL},
		{"userinfo URL", c.UserInfoURL},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("relay %s is required", field.name)
		}
	}
	return nil
}

// Server hosts the relay.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *ledger.Store
}

// New creates a configured relay server listening on cfg.Addr.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openLedger(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// The session key lives for this process only; a restart invalidates
	// every outstanding session.
	sessions, err := session.NewStore(cfg.CookieName)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	oauthServer := oauth.NewServer(oauth.Config{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		UserInfoURL:  cfg.UserInfoURL,
		UIDShift:     cfg.UIDShift,
	}, provider.NewClient(cfg.HTTPTimeout), sessions, store)

	mux := http.NewServeMux()
	oauthServer.RegisterRoutes(mux)

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		store: store,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a relay until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve blocks until the server stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	slog.Info("relay listening", "addr", s.listener.Addr().String())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		err := <-serveErr
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

func openLedger(path string) (*ledger.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := ledger.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		slog.Error("close ledger store", "error", err)
	}
}
