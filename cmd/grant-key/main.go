// Package main provides a one-shot utility for grant key generation.
//
// It emits the Ed25519 keypair used to sign and verify party grant tokens.
package main

import (
	"os"

	"github.com/WuodOdhis/trackflow/internal/platform/config"
	"github.com/WuodOdhis/trackflow/internal/tools/grantkey"
)

func main() {
	if err := grantkey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate grant key: %v", err)
	}
}
