package app

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Addr:         "127.0.0.1:0",
		BaseURL:      "http://relay.test:9001",
		ClientID:     "lega",
		ClientSecret: "test-secret",
		TokenURL:     "http://idp.test/token",
		UserInfoURL:  "http://idp.test/userinfo",
		DBPath:       t.TempDir() + "/ega.db",
		UIDShift:     10000,
		HTTPTimeout:  time.Second,
		CookieName:   "EGA_SESSION",
	}
}

func TestConfigValidate(t *testing.T) {
	valid := testConfig(t)
	if err := valid.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	missing := valid
	missing.ClientSecret = ""
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for missing client secret")
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestServeAndShutdown(t *testing.T) {
	server, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()

	// An unauthenticated visit to the entry view is a client error.
	resp, err := http.Get("http://" + server.Addr() + "/")
	if err != nil {
		t.Fatalf("get entry view: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
