package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// requestWithSavedCookie replays the cookie written by Save on a new request.
func requestWithSavedCookie(t *testing.T, store *Store, sess Session) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	if err := store.Save(w, sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return req
}

func TestSaveGetRoundTrip(t *testing.T) {
	store, err := NewStore("EGA_SESSION")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	input := Session{
		AccessToken: "tok1",
		IDToken:     "idtok",
		User:        map[string]string{"sub": "42", "nickname": "alice"},
	}
	req := requestWithSavedCookie(t, store, input)

	got, ok := store.Get(req)
	if !ok {
		t.Fatal("expected session to decode")
	}
	if got.AccessToken != input.AccessToken || got.IDToken != input.IDToken {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.User["nickname"] != "alice" {
		t.Errorf("nickname = %q, want %q", got.User["nickname"], "alice")
	}
}

func TestGetWithoutCookie(t *testing.T) {
	store, err := NewStore("EGA_SESSION")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := store.Get(req); ok {
		t.Fatal("expected no session")
	}
}

func TestGetRejectsTamperedCookie(t *testing.T) {
	store, err := NewStore("EGA_SESSION")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	req := requestWithSavedCookie(t, store, Session{AccessToken: "tok1"})
	cookie, err := req.Cookie("EGA_SESSION")
	if err != nil {
		t.Fatalf("cookie: %v", err)
	}
	tampered := httptest.NewRequest(http.MethodGet, "/", nil)
	tampered.AddCookie(&http.Cookie{Name: "EGA_SESSION", Value: cookie.Value + "x"})

	if _, ok := store.Get(tampered); ok {
		t.Fatal("expected tampered cookie to be rejected")
	}
}

func TestKeyIsPerStore(t *testing.T) {
	// A restarted relay generates a new key, so sessions issued before the
	// restart no longer decode.
	first, err := NewStore("EGA_SESSION")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	second, err := NewStore("EGA_SESSION")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	req := requestWithSavedCookie(t, first, Session{AccessToken: "tok1"})
	if _, ok := second.Get(req); ok {
		t.Fatal("expected session from a previous key to be rejected")
	}
}
