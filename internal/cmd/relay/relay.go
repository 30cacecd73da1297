// Package relay parses configuration for the token relay and runs it.
package relay

import (
	"context"
	"flag"

	"github.com/EGA-archive/EGA-auth/internal/platform/config"
	"github.com/EGA-archive/EGA-auth/internal/relay/app"
)

// ParseConfig loads the relay configuration from the environment, then lets
// flags override the common knobs.
func ParseConfig(fs *flag.FlagSet, args []string) (app.Config, error) {
	var cfg app.Config
	if err := config.ParseEnv(&cfg); err != nil {
		return app.Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The relay listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the ledger database")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Externally visible base URL (OAuth redirect_uri)")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

// Run starts the relay server.
func Run(ctx context.Context, cfg app.Config) error {
	return app.Run(ctx, cfg)
}
