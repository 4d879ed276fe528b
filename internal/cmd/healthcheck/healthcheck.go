// Package healthcheck probes a service's gRPC health endpoint for container
// orchestration.
package healthcheck

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	entrypoint "github.com/mtlab/lims/internal/platform/cmd"
	"github.com/mtlab/lims/internal/platform/discovery"
	platformgrpc "github.com/mtlab/lims/internal/platform/grpc"
	"github.com/mtlab/lims/internal/platform/timeouts"
	server "github.com/mtlab/lims/internal/services/numbering/app"
)

// Config holds healthcheck command configuration.
type Config struct {
	Addr    string        `env:"HEALTHCHECK_ADDR"`
	Service string        `env:"HEALTHCHECK_SERVICE"`
	Timeout time.Duration `env:"HEALTHCHECK_TIMEOUT"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		Addr:    discovery.DefaultGRPCAddr(discovery.ServiceNumbering),
		Service: server.HealthService,
		Timeout: timeouts.GRPCDial,
	}
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "gRPC address to probe")
	fs.StringVar(&cfg.Service, "service", cfg.Service, "Health service name to check")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Probe timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run waits up to cfg.Timeout for the service to report SERVING and returns
// an error otherwise.
func Run(ctx context.Context, cfg Config) error {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return fmt.Errorf("healthcheck addr is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = timeouts.GRPCDial
	}

	conn, err := platformgrpc.DialWithHealth(ctx, addr, cfg.Service, timeout, nil)
	if err != nil {
		return fmt.Errorf("service %q at %s: %w", cfg.Service, addr, err)
	}
	return conn.Close()
}
