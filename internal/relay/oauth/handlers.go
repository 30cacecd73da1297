package oauth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/EGA-archive/EGA-auth/internal/relay/account"
	"github.com/EGA-archive/EGA-auth/internal/relay/ledger"
	"github.com/EGA-archive/EGA-auth/internal/relay/provider"
	"github.com/EGA-archive/EGA-auth/internal/relay/session"
)

var errNoAccessToken = errors.New("token response has no access_token")

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, ok := s.sessions.Get(r)
	if !ok || sess.AccessToken == "" {
		http.Error(w, "invalid credentials", http.StatusBadRequest)
		return
	}

	renderIndex(w, indexData{User: sess.User, AccessToken: sess.AccessToken})
}

// handleCallback is the provider redirect target. It is terminal on the first
// failure; session mutations made before a failure stay in place.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}

	token, err := s.exchangeCode(r, code)
	if err != nil {
		slog.Error("token exchange failed", "error", err)
		http.Error(w, "failed to obtain OAuth access token", http.StatusBadRequest)
		return
	}

	// The session carries the access token from here on, even when the rest
	// of the flow fails.
	sess, _ := s.sessions.Get(r)
	sess.AccessToken = token.accessToken
	sess.IDToken = token.idToken

	claims, err := s.fetchProfile(r, token.accessToken)
	if err != nil {
		slog.Error("userinfo fetch failed", "error", err)
		s.saveSession(w, sess)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	sess.User = claims

	user, err := account.FromClaims(claims, s.config.UIDShift)
	if err != nil {
		slog.Error("rejecting provider claims", "error", err, "sub", claims["sub"])
		s.saveSession(w, sess)
		http.Error(w, "invalid subject", http.StatusBadRequest)
		return
	}

	err = s.ledger.RecordLogin(r.Context(), user, ledger.Token{
		UID:         user.UID,
		SessionID:   state,
		AccessToken: token.accessToken,
		IDToken:     token.idToken,
	})
	if err != nil {
		slog.Error("ledger write failed", "error", err, "uid", user.UID)
		s.saveSession(w, sess)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	slog.Info("login recorded", "uid", user.UID, "username", user.Username, "session_id", state)
	s.saveSession(w, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type tokenResponse struct {
	accessToken string
	idToken     string
}

func (s *Server) exchangeCode(r *http.Request, code string) (tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", s.config.ClientID)
	form.Set("client_secret", s.config.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", s.config.BaseURL)

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	values, err := s.client.Request(r.Context(), http.MethodPost, s.config.TokenURL, header, form.Encode())
	if err != nil {
		return tokenResponse{}, err
	}
	if values.Get("access_token") == "" {
		return tokenResponse{}, errNoAccessToken
	}
	return tokenResponse{
		accessToken: values.Get("access_token"),
		idToken:     values.Get("id_token"),
	}, nil
}

func (s *Server) fetchProfile(r *http.Request, accessToken string) (provider.Values, error) {
	query := url.Values{}
	query.Set("access_token", accessToken)

	header := http.Header{}
	header.Set("Accept", "application/json")

	values, err := s.client.Request(r.Context(), http.MethodGet, s.config.UserInfoURL+"?"+query.Encode(), header, "")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("userinfo response is empty")
	}
	return values, nil
}

func (s *Server) saveSession(w http.ResponseWriter, sess session.Session) {
	if err := s.sessions.Save(w, sess); err != nil {
		slog.Error("session save failed", "error", err)
	}
}
