// Package numbering parses numbering service flags and launches the service.
package numbering

import (
	"context"
	"flag"

	entrypoint "github.com/mtlab/lims/internal/platform/cmd"
	"github.com/mtlab/lims/internal/platform/discovery"
	server "github.com/mtlab/lims/internal/services/numbering/app"
)

// Config holds numbering command configuration.
type Config struct {
	HTTPAddr      string `env:"NUMBERING_HTTP_ADDR"`
	GRPCPort      int    `env:"NUMBERING_GRPC_PORT"`
	DBPath        string `env:"NUMBERING_DB_PATH" envDefault:"data/numbering.db"`
	TxMaxAttempts int    `env:"NUMBERING_TX_MAX_ATTEMPTS" envDefault:"8"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		HTTPAddr: discovery.DefaultHTTPListenAddr(discovery.ServiceNumbering),
		GRPCPort: discovery.DefaultGRPCPort(discovery.ServiceNumbering),
	}
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The numbering HTTP API address")
	fs.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "The numbering gRPC health port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "Path to the numbering SQLite database")
	fs.IntVar(&cfg.TxMaxAttempts, "tx-max-attempts", cfg.TxMaxAttempts, "Attempts per counter transaction before reporting a conflict")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the numbering service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceNumbering, func(ctx context.Context) error {
		return server.Run(ctx, server.Config{
			GRPCPort:      cfg.GRPCPort,
			HTTPAddr:      cfg.HTTPAddr,
			DBPath:        cfg.DBPath,
			TxMaxAttempts: cfg.TxMaxAttempts,
		})
	})
}
