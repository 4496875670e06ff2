// SPDX-License-Identifier: MIT
package main

import (
	"render/cmd"
	"render/internal/log"
	"render/pkg/build"
)

// main wires build information into the CLI and runs it. Rendering is
// synchronous; every subcommand returns once its engine is closed.
func main() {
	// Development builds run without ldflags and keep the defaults.
	if err := build.Initialize(); err != nil {
		log.Debugf("%v", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
