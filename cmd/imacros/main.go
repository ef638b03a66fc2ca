package main

import (
	"os"

	"github.com/chapelsoftware/go-imacros/cmd/imacros/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
