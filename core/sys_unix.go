//go:build unix

package core

import (
	"os"

	"golang.org/x/sys/unix"
)

var dumpSignals = []os.Signal{unix.SIGUSR1}
