package relay

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":9001" {
		t.Errorf("addr = %q, want %q", cfg.Addr, ":9001")
	}
	if cfg.DBPath != "/run/ega.db" {
		t.Errorf("db path = %q, want %q", cfg.DBPath, "/run/ega.db")
	}
	if cfg.UIDShift != 10000 {
		t.Errorf("uid shift = %d, want 10000", cfg.UIDShift)
	}
	if cfg.CookieName != "EGA_SESSION" {
		t.Errorf("cookie name = %q, want %q", cfg.CookieName, "EGA_SESSION")
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("EGA_RELAY_ADDR", ":8443")
	t.Setenv("EGA_RELAY_UID_SHIFT", "20000")

	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":8443" {
		t.Errorf("addr = %q, want %q", cfg.Addr, ":8443")
	}
	if cfg.UIDShift != 20000 {
		t.Errorf("uid shift = %d, want 20000", cfg.UIDShift)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("EGA_RELAY_ADDR", ":8443")

	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", ":7000", "-db", "/tmp/relay.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("addr = %q, want %q", cfg.Addr, ":7000")
	}
	if cfg.DBPath != "/tmp/relay.db" {
		t.Errorf("db path = %q, want %q", cfg.DBPath, "/tmp/relay.db")
	}
}
