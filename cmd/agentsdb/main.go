// Package main provides the entry point for the agentsdb CLI.
package main

import (
	"os"

	"github.com/agentsdb/agentsdb-go/cmd/agentsdb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
