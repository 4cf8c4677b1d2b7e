// Package main is the entry point for the fdt CLI client.
package main

import (
	"github.com/donaldgifford/film-deal-tracker/cmd/fdt/cmd"
)

func main() {
	cmd.Execute()
}
