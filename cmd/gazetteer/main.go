// Package main provides the entry point for the gazetteer CLI.
package main

import (
	"os"

	"github.com/overture-tools/gazetteer/cmd/gazetteer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
