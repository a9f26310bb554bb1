// Package main is the entry point for the qroutectl CLI.
package main

import (
	"os"

	"qroute/cmd/qroutectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
