package state

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var switchNamePattern = regexp.MustCompile("^sw([1-7])$")

// SwitchName is the inverse of ParseSwitchName.
func SwitchName(number int32) string {
	if number == NullPort {
		return "null"
	}
	if number == ControllerId {
		return "cont"
	}
	return fmt.Sprintf("sw%d", number)
}

// ParseSwitchName accepts sw1 .. sw7, or null which maps to NullPort.
func ParseSwitchName(s string) (int32, error) {
	if s == "null" {
		return NullPort, nil
	}
	m := switchNamePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%s is not a valid switch name, must be sw1 .. sw%d or null", s, MaxSwitches)
	}
	n, _ := strconv.Atoi(m[1])
	return int32(n), nil
}

func parseIP(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s is not a valid ip", s)
	}
	return int32(v), nil
}

// ParseIPRange parses "<low>-<high>".
func ParseIPRange(s string) (int32, int32, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("ip range %q must look like <low>-<high>", s)
	}
	low, err := parseIP(lo)
	if err != nil {
		return 0, 0, err
	}
	high, err := parseIP(hi)
	if err != nil {
		return 0, 0, err
	}
	if low > high {
		return 0, 0, fmt.Errorf("ip range %q is empty", s)
	}
	return low, high, nil
}

func PortValidator(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%s is not a valid port number", s)
	}
	return uint16(v), nil
}

func PathValidator(s string) error {
	_, err := os.Stat(filepath.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func ControllerConfigValidator(cfg *ControllerCfg) error {
	if cfg.NumSwitches < 1 || cfg.NumSwitches > MaxSwitches {
		return fmt.Errorf("number of switches must be within 1 .. %d, got %d", MaxSwitches, cfg.NumSwitches)
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port number must be set")
	}
	return nil
}

func SwitchConfigValidator(cfg *SwitchCfg) error {
	if cfg.Number < 1 || cfg.Number > MaxSwitches {
		return fmt.Errorf("switch number must be within 1 .. %d, got %d", MaxSwitches, cfg.Number)
	}
	for _, p := range []int32{cfg.Port1, cfg.Port2} {
		if p != NullPort && (p < 1 || p > MaxSwitches) {
			return fmt.Errorf("neighbour %d is not a switch number or null", p)
		}
		if p == cfg.Number {
			return fmt.Errorf("%s cannot be its own neighbour", cfg.Name())
		}
	}
	if cfg.Port1 != NullPort && cfg.Port1 == cfg.Port2 {
		return fmt.Errorf("port1 and port2 both connect to %s", SwitchName(cfg.Port1))
	}
	if cfg.IPLow < 0 || cfg.IPLow > cfg.IPHigh || cfg.IPHigh > MaxIP {
		return fmt.Errorf("ip range %d-%d must lie within 0-%d", cfg.IPLow, cfg.IPHigh, MaxIP)
	}
	if cfg.Server == "" {
		return fmt.Errorf("server address must be set")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port number must be set")
	}
	return PathValidator(cfg.TrafficFile)
}

func LocalConfigValidator(cfg *LocalCfg) error {
	if cfg.LogPath != "" {
		if err := PathValidator(cfg.LogPath); err != nil {
			return fmt.Errorf("log_path: %w", err)
		}
	}
	if cfg.FifoDir == "" {
		return fmt.Errorf("fifo_dir must not be empty")
	}
	if cfg.Connect.InitialInterval <= 0 || cfg.Connect.MaxInterval < cfg.Connect.InitialInterval {
		return fmt.Errorf("connect intervals must be positive with max_interval >= initial_interval")
	}
	if cfg.PendingTTL < 0 {
		return fmt.Errorf("pending_query_ttl must not be negative")
	}
	return nil
}
