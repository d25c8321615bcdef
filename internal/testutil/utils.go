package testutil

import (
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger with the same shape as the server's,
// prefixed so its lines are distinguishable in test output.
func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, "[kanz-chat-test] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})
	return logger
}
