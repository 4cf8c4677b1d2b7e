// Package main generates CLI reference documentation from the fdt command tree.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/donaldgifford/film-deal-tracker/cmd/fdt/cmd"
)

func main() {
	output := flag.String("output", "docs/cli", "output directory for generated markdown")
	manPages := flag.Bool("man", false, "also generate man pages under <output>/man")
	flag.Parse()

	if err := os.MkdirAll(*output, 0o750); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	root := cmd.Root()
	root.DisableAutoGenTag = true

	if err := doc.GenMarkdownTree(root, *output); err != nil {
		log.Fatalf("generating docs: %v", err)
	}

	if *manPages {
		dir := *output + "/man"
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Fatalf("creating man directory: %v", err)
		}
		header := &doc.GenManHeader{Title: "FDT", Section: "1", Source: "film-deal-tracker"}
		if err := doc.GenManTree(root, header, dir); err != nil {
			log.Fatalf("generating man pages: %v", err)
		}
	}

	fmt.Printf("CLI docs generated in %s/\n", *output)
}
