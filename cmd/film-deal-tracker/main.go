// Package main is the entry point for the film-deal-tracker server.
package main

import (
	"os"

	"github.com/donaldgifford/film-deal-tracker/cmd/film-deal-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
