// Package main provides the journal integrity maintenance command.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/WuodOdhis/trackflow/internal/platform/config"
	"github.com/WuodOdhis/trackflow/internal/tools/journalcheck"
)

func main() {
	cfg, err := journalcheck.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := journalcheck.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("check journal: %v", err)
	}
}
