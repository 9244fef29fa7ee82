package main

import (
	"os"
)

// Версия проставляется при сборке через -ldflags.
var version = "dev"

func main() {
	cmd := NewRootCmd()
	cmd.Version = version

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
