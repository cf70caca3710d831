package main

import (
	"os"

	"github.com/systemshift/crmgraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
