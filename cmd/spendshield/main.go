package main

import (
	"os"

	"github.com/spendshield/spendshield/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
