package main

import (
	"os"

	"github.com/niterpack/niter/cmd/niter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
