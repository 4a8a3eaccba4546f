// Package main provides routectl, a command line client for comparing routes
// and minting API tokens with the troski configuration.
package main

import (
	"os"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}
