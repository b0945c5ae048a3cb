package state

import "time"

const (
	// MaxIP is the top of the source address domain; sources above it are invalid traffic.
	MaxIP = 1000
	// MinPriority is the priority of every rule the controller issues.
	MinPriority = 4
	MaxSwitches = 7
	// NullPort marks a chain endpoint.
	NullPort = -1
	// ControllerId is the peer label used for the controller in traces.
	ControllerId = 0
)

// flow rule out ports
const (
	PortDrop  = 0
	Port1     = 1
	Port2     = 2
	PortLocal = 3
)

var (
	ConnectInitialInterval = time.Millisecond * 100
	ConnectMaxInterval     = time.Second * 2
	ConnectMaxRetries      = uint64(30)
	// PendingQueryTTL of zero keeps a pending query until its packet is delivered.
	PendingQueryTTL = time.Duration(0)
	DispatchBuffer  = 128
	// SlowDispatch is the threshold above which the main loop warns about a dispatch.
	SlowDispatch = time.Millisecond * 50
)
