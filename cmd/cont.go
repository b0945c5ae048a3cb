package cmd

import (
	"fmt"
	"strconv"

	"github.com/encodeous/chainsdn/core"
	"github.com/encodeous/chainsdn/state"
	"github.com/spf13/cobra"
)

var contCmd = &cobra.Command{
	Use:          "cont <numSwitches> <portNumber>",
	Short:        "Run the controller",
	Long:         `Runs the controller, which waits for numSwitches switches to join and then answers their flow queries.`,
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ccfg, err := parseControllerArgs(args)
		if err != nil {
			return err
		}
		lcfg, err := loadLocalConfig(cmd)
		if err != nil {
			return err
		}
		return core.StartController(ccfg, lcfg, nodeOptions(cmd))
	},
	GroupID: "node",
}

func parseControllerArgs(args []string) (state.ControllerCfg, error) {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return state.ControllerCfg{}, fmt.Errorf("%s is not a number of switches", args[0])
	}
	port, err := state.PortValidator(args[1])
	if err != nil {
		return state.ControllerCfg{}, err
	}
	cfg := state.ControllerCfg{NumSwitches: n, Port: port}
	return cfg, state.ControllerConfigValidator(&cfg)
}

func init() {
	rootCmd.AddCommand(contCmd)
}
