package cmd

import (
	"os"

	"github.com/encodeous/chainsdn/core"
	"github.com/spf13/cobra"
)

// rootCmd runs a switch when called with a switch name, see switchUsage
var rootCmd = &cobra.Command{
	Use:   switchUsage,
	Short: "Chain topology software defined network simulator",
	Long: `chainsdn simulates a software defined network of up to seven switches in a chain.
One controller process builds the topology and answers flow queries; each switch process
replays its traffic file and relays packets to its neighbours over named pipes.

Run a switch:     chainsdn sw1 t.dat null sw2 0-499 localhost 9982
Run a controller: chainsdn cont 2 9982`,
	Example:      "chainsdn sw2 t.dat sw1 null 500-999 localhost 9982",
	Args:         cobra.ExactArgs(7),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		scfg, err := parseSwitchArgs(args)
		if err != nil {
			return err
		}
		lcfg, err := loadLocalConfig(cmd)
		if err != nil {
			return err
		}
		return core.StartSwitch(scfg, lcfg, nodeOptions(cmd))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "node",
		Title: "Network Nodes",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "tools",
		Title: "Tools",
	})
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "optional node config (yaml)")
	rootCmd.PersistentFlags().StringVarP(&logPath, "log-path", "l", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&fifoDir, "fifo-dir", "", "directory holding the neighbour fifos")
	rootCmd.PersistentFlags().StringVar(&debugAddr, "debug-addr", "", "serve /debug/metrics and /debug/vars on this address")
}
