// Package main is the entry point for the sentctl CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/sentinela/cmd/sentctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
