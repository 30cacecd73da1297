// Package session keeps per-visit state in an encrypted browser cookie. The
// server stores nothing; the cookie is the session.
package session

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
)

// Session is the bag of state round-tripped through the browser.
type Session struct {
	AccessToken string            `json:"access_token,omitempty"`
	IDToken     string            `json:"id_token,omitempty"`
	User        map[string]string `json:"user,omitempty"`
}

// Store encrypts sessions into a named cookie with a symmetric key held for
// the lifetime of the process. Restarting the relay discards the key and with
// it every outstanding session.
type Store struct {
	name string
	key  []byte
}

// NewStore generates a fresh content-encryption key and returns a store
// writing to the named cookie.
func NewStore(name string) (*Store, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return &Store{name: name, key: key}, nil
}

// Get decodes the session cookie from the request. A missing, expired or
// undecryptable cookie yields an empty session and false.
func (s *Store) Get(r *http.Request) (Session, bool) {
	cookie, err := r.Cookie(s.name)
	if err != nil {
		return Session{}, false
	}

	payload, err := jwe.Decrypt([]byte(cookie.Value), jwe.WithKey(jwa.DIRECT, s.key))
	if err != nil {
		return Session{}, false
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return Session{}, false
	}
	return sess, true
}

// Save encrypts the session and sets it as a cookie on the response.
func (s *Store) Save(w http.ResponseWriter, sess Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	encrypted, err := jwe.Encrypt(payload,
		jwe.WithKey(jwa.DIRECT, s.key),
		jwe.WithContentEncryption(jwa.A256GCM),
	)
	if err != nil {
		return fmt.Errorf("encrypt session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    string(encrypted),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
