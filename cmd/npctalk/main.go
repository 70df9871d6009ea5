// Package main is the headless npctalk console.
//
// Usage:
//
//	npctalk [flags] <command>
//
// Commands:
//
//	run     - Interactive console driving the capture session from stdin
//	roster  - List the people that can be approached
package main

import (
	"fmt"
	"os"

	"npctalk/cmd/npctalk/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
