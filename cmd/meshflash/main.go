// meshflash upgrades meshes of modular robot blocks from CLASSIC to IMAGO
// firmware.
//
// It drives the host block over a serial port or a TCP or WebSocket serial
// bridge, flashes the host and every attached block in turn, and records
// the outcome of each flash.
package main

import (
	"fmt"
	"os"

	"github.com/bryangrimes/node-cubelets/internal/cmd"
)

// Build information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, gitCommit, buildTime)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
