package main

import (
	"os"

	"github.com/modelserve-dev/modelserve/pkg/cli"
)

func main() {
	if err := cli.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
