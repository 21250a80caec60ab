// Package escrow parses escrow command flags and starts the service runtime.
package escrow

import (
	"context"
	"flag"
	"strings"

	"github.com/WuodOdhis/trackflow/internal/escrow/app"
	entrypoint "github.com/WuodOdhis/trackflow/internal/platform/cmd"
)

// Config holds escrow command configuration.
type Config struct {
	Addr         string `env:"TRACKFLOW_HTTP_ADDR" envDefault:":8080"`
	DBPath       string `env:"TRACKFLOW_DB_PATH" envDefault:"data/trackflow.db"`
	KafkaBrokers string `env:"TRACKFLOW_KAFKA_BROKERS"`
	KafkaTopic   string `env:"TRACKFLOW_KAFKA_TOPIC" envDefault:"trackflow.events"`
	LedgerSeed   string `env:"TRACKFLOW_LEDGER_SEED"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The escrow server listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the sqlite database")
	fs.StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Comma-separated Kafka brokers (empty disables publishing)")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for contract events")
	fs.StringVar(&cfg.LedgerSeed, "ledger-seed", cfg.LedgerSeed, "Comma-separated account=amount ledger credits")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the escrow service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEscrow, func(context.Context) error {
		return app.Run(ctx, app.Config{
			Addr:         cfg.Addr,
			DBPath:       cfg.DBPath,
			KafkaBrokers: splitBrokers(cfg.KafkaBrokers),
			KafkaTopic:   cfg.KafkaTopic,
			LedgerSeed:   cfg.LedgerSeed,
		})
	})
}

// splitBrokers parses the comma-separated broker list.
func splitBrokers(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		broker = strings.TrimSpace(broker)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}
