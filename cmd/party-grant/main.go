// Package main provides a one-shot utility for minting party grants.
//
// It signs the bearer token a party presents to the escrow API.
package main

import (
	"flag"
	"os"

	"github.com/WuodOdhis/trackflow/internal/platform/config"
	"github.com/WuodOdhis/trackflow/internal/tools/partygrant"
)

func main() {
	cfg, err := partygrant.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := partygrant.Run(cfg, os.Stdout); err != nil {
		config.Exitf("mint grant: %v", err)
	}
}
