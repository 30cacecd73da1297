// Package oauth hosts the relay's HTTP surface: the entry view and the
// identity-provider callback that drives the code-for-token exchange.
package oauth

import (
	"net/http"

	"github.com/EGA-archive/EGA-auth/internal/relay/ledger"
	"github.com/EGA-archive/EGA-auth/internal/relay/provider"
	"github.com/EGA-archive/EGA-auth/internal/relay/session"
)

// Config describes the registered identity-provider client.
type Config struct {
	// BaseURL is this relay's externally visible URL. It doubles as the OAuth
	// redirect_uri and must match what was registered with the provider.
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
	UserInfoURL  string
	// UIDShift offsets provider subjects into the local uid namespace.
	UIDShift int64
}

// Server coordinates the exchange. It owns no state of its own: sessions live
// in the browser cookie and accounts in the ledger.
type Server struct {
	config   Config
	client   *provider.Client
	sessions *session.Store
	ledger   *ledger.Store
}

// NewServer builds a relay server from its collaborators.
func NewServer(config Config, client *provider.Client, sessions *session.Store, store *ledger.Store) *Server {
	return &Server{
		config:   config,
		client:   client,
		sessions: sessions,
		ledger:   store,
	}
}

// RegisterRoutes registers the relay endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/tokens/", s.handleCallback)
}
