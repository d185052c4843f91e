// Package main runs the nxshell interactive shell.
package main

import (
	"fmt"
	"os"

	"github.com/nxshell/nxshell/internal/runtime"
)

// version is set at build time.
var version = "0.1.0"

func main() {
	if err := runtime.NewRuntime(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
