// Package main probes a service health endpoint and exits non-zero when it is
// not serving.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	healthcheckcmd "github.com/mtlab/lims/internal/cmd/healthcheck"
	entrypoint "github.com/mtlab/lims/internal/platform/cmd"
	"github.com/mtlab/lims/internal/platform/config"
)

func main() {
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceHealthcheck))
	cfg, err := healthcheckcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := healthcheckcmd.Run(context.Background(), cfg); err != nil {
		config.Exitf("unhealthy: %v", err)
	}
}
