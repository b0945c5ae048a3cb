package state

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// ControllerCfg is the controller's command line configuration.
type ControllerCfg struct {
	NumSwitches int
	Port        uint16
}

// SwitchCfg is a switch's command line configuration.
type SwitchCfg struct {
	Number      int32
	TrafficFile string
	Port1       int32 // neighbour switch number or NullPort
	Port2       int32
	IPLow       int32
	IPHigh      int32
	Server      string
	Port        uint16
}

func (c SwitchCfg) Name() string {
	return SwitchName(c.Number)
}

// ControllerAddr is the host:port the switch dials.
func (c SwitchCfg) ControllerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

// LocalCfg represents optional node-level tuning, read from a yaml file
type LocalCfg struct {
	LogPath   string `yaml:"log_path,omitempty"`   // if not empty, logs are also written to this file
	FifoDir   string `yaml:"fifo_dir,omitempty"`   // directory holding the neighbour fifos
	DebugAddr string `yaml:"debug_addr,omitempty"` // if not empty, serve /debug/metrics and /debug/vars here
	// StrictVerify makes an inconsistent completed topology fatal instead of a warning
	StrictVerify bool          `yaml:"strict_verify,omitempty"`
	Connect      ConnectCfg    `yaml:"connect,omitempty"`
	PendingTTL   time.Duration `yaml:"pending_query_ttl,omitempty"` // zero keeps pending queries until delivery
}

// ConnectCfg tunes the switch's connection backoff.
type ConnectCfg struct {
	InitialInterval time.Duration `yaml:"initial_interval,omitempty"`
	MaxInterval     time.Duration `yaml:"max_interval,omitempty"`
	MaxRetries      uint64        `yaml:"max_retries,omitempty"`
}

// DefaultLocalCfg returns the configuration used when no file is given.
func DefaultLocalCfg() LocalCfg {
	return LocalCfg{
		FifoDir:    ".",
		PendingTTL: PendingQueryTTL,
		Connect: ConnectCfg{
			InitialInterval: ConnectInitialInterval,
			MaxInterval:     ConnectMaxInterval,
			MaxRetries:      ConnectMaxRetries,
		},
	}
}

// ReadLocalConfig loads path over the defaults. An empty path returns the defaults.
func ReadLocalConfig(path string) (LocalCfg, error) {
	cfg := DefaultLocalCfg()
	if path == "" {
		return cfg, nil
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
