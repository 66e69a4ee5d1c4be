package cmd

import (
	"fmt"
	"os"

	"github.com/bryangrimes/node-cubelets/logging"
)

// setupLogger creates the structured logger every command uses. Logs go to
// stderr so --json output on stdout stays clean.
func setupLogger() error {
	l, err := logging.New(logging.Format(cfg.Log.Format), cfg.Log.Level, os.Stderr)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	logger = l
	return nil
}
