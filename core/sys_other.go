//go:build !unix

package core

import "os"

var dumpSignals []os.Signal
