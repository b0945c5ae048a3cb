package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/encodeous/chainsdn/core"
	"github.com/encodeous/chainsdn/state"
	"github.com/spf13/cobra"
)

const switchUsage = "chainsdn <sw1..sw7> <trafficFile> <port1> <port2> <ipLow>-<ipHigh> <serverAddress> <portNumber>"

var (
	verbose    bool
	configPath string
	logPath    string
	fifoDir    string
	debugAddr  string
)

// loadLocalConfig reads the optional yaml config, then applies any flags given on the command line.
func loadLocalConfig(cmd *cobra.Command) (state.LocalCfg, error) {
	cfg, err := state.ReadLocalConfig(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-path") {
		cfg.LogPath = logPath
	}
	if flags.Changed("fifo-dir") {
		cfg.FifoDir = fifoDir
	}
	if flags.Changed("debug-addr") {
		cfg.DebugAddr = debugAddr
	}
	return cfg, state.LocalConfigValidator(&cfg)
}

func nodeOptions(cmd *cobra.Command) core.Options {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return core.Options{
		Level:   level,
		Out:     cmd.OutOrStdout(),
		In:      os.Stdin,
		Signals: true,
	}
}

func parseSwitchArgs(args []string) (state.SwitchCfg, error) {
	var cfg state.SwitchCfg
	number, err := state.ParseSwitchName(args[0])
	if err != nil {
		return cfg, err
	}
	if number == state.NullPort {
		return cfg, fmt.Errorf("a switch cannot be named null")
	}
	cfg.Number = number
	cfg.TrafficFile = args[1]
	if cfg.Port1, err = state.ParseSwitchName(args[2]); err != nil {
		return cfg, fmt.Errorf("port1: %w", err)
	}
	if cfg.Port2, err = state.ParseSwitchName(args[3]); err != nil {
		return cfg, fmt.Errorf("port2: %w", err)
	}
	if cfg.IPLow, cfg.IPHigh, err = state.ParseIPRange(args[4]); err != nil {
		return cfg, err
	}
	cfg.Server = args[5]
	if cfg.Port, err = state.PortValidator(args[6]); err != nil {
		return cfg, err
	}
	return cfg, state.SwitchConfigValidator(&cfg)
}
