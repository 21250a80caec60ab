// Package journalcheck replays contract event journals and reports the
// first integrity failure.
package journalcheck

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/WuodOdhis/trackflow/internal/escrow/storage/integrity"
	"github.com/WuodOdhis/trackflow/internal/escrow/storage/sqlite"
	"github.com/WuodOdhis/trackflow/internal/platform/config"
)

// Config holds journal check configuration.
type Config struct {
	DBPath  string
	Timeout time.Duration
}

type envConfig struct {
	DBPath  string        `env:"TRACKFLOW_DB_PATH"`
	Timeout time.Duration `env:"TRACKFLOW_MAINTENANCE_TIMEOUT" envDefault:"10m"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := config.ParseEnv(&envCfg); err != nil {
		return Config{}, err
	}
	cfg := Config{DBPath: envCfg.DBPath, Timeout: envCfg.Timeout}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "trackflow.db")
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to sqlite database (default: TRACKFLOW_DB_PATH or data/trackflow.db)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens the store and verifies every contract journal chain.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}

	keyring, err := integrity.KeyringFromEnv()
	if err != nil {
		return err
	}
	store, err := sqlite.Open(cfg.DBPath, keyring)
	if err != nil {
		return fmt.Errorf("open escrow store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.VerifyEventIntegrity(ctx); err != nil {
		return fmt.Errorf("journal integrity: %w", err)
	}
	_, err = fmt.Fprintln(out, "journal integrity verified")
	return err
}
