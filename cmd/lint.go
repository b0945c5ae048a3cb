package cmd

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/encodeous/chainsdn/state"
	"github.com/spf13/cobra"
)

type trafficSummary struct {
	admits int
	delays int
}

var lintCmd = &cobra.Command{
	Use:          "lint <trafficFile>",
	Short:        "Checks a traffic file and summarises it per switch",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return lintTraffic(f, cmd.OutOrStdout())
	},
	GroupID: "tools",
}

func lintTraffic(r io.Reader, w io.Writer) error {
	summary := make(map[int32]*trafficSummary)
	bad := 0
	tr := state.NewTrafficReader(r, 0)
	for {
		d, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var te *state.TrafficError
		if errors.As(err, &te) {
			bad++
			fmt.Fprintln(w, te)
			continue
		}
		if err != nil {
			return err
		}
		sum, ok := summary[d.Switch]
		if !ok {
			sum = &trafficSummary{}
			summary[d.Switch] = sum
		}
		if d.Kind == state.DirectiveDelay {
			sum.delays++
		} else {
			sum.admits++
		}
	}
	for _, sw := range slices.Sorted(maps.Keys(summary)) {
		fmt.Fprintf(w, "%s: %d packets, %d delays\n", state.SwitchName(sw), summary[sw].admits, summary[sw].delays)
	}
	if bad != 0 {
		return fmt.Errorf("%d malformed lines", bad)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(lintCmd)
}
