// Command hostbridge connects a host machine to a backend hub and exposes its
// editing, filesystem, and shell capabilities as remotely invocable tools.
package main

// file: cmd/hostbridge/main.go

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
