package core

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/encodeous/chainsdn/state"
)

// startConsole reads list and exit commands from e.In.
func startConsole(e *state.Env) {
	if e.In == nil {
		return
	}
	go func() {
		scanner := bufio.NewScanner(e.In)
		for scanner.Scan() {
			if e.Context.Err() != nil {
				return
			}
			switch cmd := strings.TrimSpace(scanner.Text()); cmd {
			case "":
			case "list":
				e.Dispatch(func(s *state.State) error {
					Dump(s)
					return nil
				})
			case "exit":
				e.Cancel(state.ErrExitCommand)
				return
			default:
				e.Dispatch(func(s *state.State) error {
					if s.Out != nil {
						fmt.Fprintf(s.Out, "unrecognized input %q, expected list or exit\n", cmd)
					}
					return nil
				})
			}
		}
	}()
}
