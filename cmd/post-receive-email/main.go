// Package main provides the post-receive-email hook entry point.
package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true. The push has
		// already completed by the time post-receive runs, so a non-zero
		// exit only informs; it never blocks the push.
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}
