// Package main provides a one-shot utility for event journal key generation.
//
// It emits the HMAC root key used to sign contract event chains.
package main

import (
	"flag"
	"os"

	"github.com/WuodOdhis/trackflow/internal/platform/config"
	"github.com/WuodOdhis/trackflow/internal/tools/hmackey"
)

func main() {
	cfg, err := hmackey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := hmackey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate key: %v", err)
	}
}
