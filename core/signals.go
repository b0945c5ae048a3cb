package core

import (
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/encodeous/chainsdn/state"
)

// watchSignals turns SIGINT and SIGTERM into a shutdown and the dump signals into a dispatched dump.
func watchSignals(e *state.Env) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, append([]os.Signal{syscall.SIGINT, syscall.SIGTERM}, dumpSignals...)...)
	go func() {
		defer signal.Stop(c)
		for {
			select {
			case sig := <-c:
				if slices.Contains(dumpSignals, sig) {
					e.Dispatch(func(s *state.State) error {
						Dump(s)
						return nil
					})
					continue
				}
				e.Log.Info("received signal", "signal", sig)
				e.Cancel(state.ErrShutdownSignal)
				return
			case <-e.Context.Done():
				return
			}
		}
	}()
}
