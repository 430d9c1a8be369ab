// Package main is the entry point for branchtabs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/branchtabs/internal/cli"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
