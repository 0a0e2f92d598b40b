package main

import (
	"os"

	"github.com/roboco-io/imgframe/internal/cli"
)

// Set via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
