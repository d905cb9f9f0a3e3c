// Command sandboxd runs the sandbox execution service: an HTTP API that
// accepts source code, runs it inside a disposable Docker container, and
// reports back stdout/stderr and any files the run produced.
package main

import (
	"os"

	"github.com/sandboxlabs/sandboxd/cmd/sandboxd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
