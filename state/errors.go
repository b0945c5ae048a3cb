package state

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExitCommand    = errors.New("exit requested from console")
	ErrExitPacket     = errors.New("controller forced an exit")
	ErrControllerLost = errors.New("connection to controller was lost")
	ErrConnectFailed  = errors.New("unable to connect to controller")
	ErrShutdownSignal = errors.New("received shutdown signal")
)

// IsOrderlyExit reports whether cause ends a node without being a failure.
func IsOrderlyExit(cause error) bool {
	return errors.Is(cause, ErrExitCommand) ||
		errors.Is(cause, ErrExitPacket) ||
		errors.Is(cause, ErrControllerLost) ||
		errors.Is(cause, ErrShutdownSignal)
}

// PlacementError is returned when a switch cannot be placed in the chain.
type PlacementError struct {
	Switch SwitchRecord
	Reason string
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("cannot place sw%d (port1= %d, port2= %d): %s", e.Switch.Number, e.Switch.Port1, e.Switch.Port2, e.Reason)
}

// VerifyError lists every inconsistency found while walking a completed chain.
type VerifyError struct {
	Problems []string
}

func (e *VerifyError) Error() string {
	return "inconsistent topology: " + strings.Join(e.Problems, "; ")
}
