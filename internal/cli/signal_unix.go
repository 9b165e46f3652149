//go:build !windows

package cli

import (
	"os"
	"syscall"
)

// A closed terminal cancels a download the same way Ctrl-C does, so the
// scratch workspace and partial file are still removed.
func interruptSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
}
