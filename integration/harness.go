//go:build integration

package integration

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/encodeous/chainsdn/core"
	"github.com/encodeous/chainsdn/state"
	"golang.org/x/net/nettest"
	"golang.org/x/sync/errgroup"
)

// ChainHarness runs a controller and its switches in one process, linked over loopback TCP and fifos in a temp dir.
type ChainHarness struct {
	t          *testing.T
	Local      state.LocalCfg
	Controller state.ControllerCfg
	Switches   map[string]state.SwitchCfg
	group      errgroup.Group
	mu         sync.Mutex
	envs       map[string]*state.Env
	done       map[string]chan error
	out        map[string]*bytes.Buffer
}

func freePort(t *testing.T) uint16 {
	l, err := nettest.NewLocalListener("tcp")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return uint16(l.Addr().(*net.TCPAddr).Port)
}

func NewChainHarness(t *testing.T, numSwitches int) *ChainHarness {
	local := state.DefaultLocalCfg()
	local.FifoDir = t.TempDir()
	local.Connect.InitialInterval = 10 * time.Millisecond
	local.Connect.MaxInterval = 50 * time.Millisecond
	local.Connect.MaxRetries = 20
	return &ChainHarness{
		t:          t,
		Local:      local,
		Controller: state.ControllerCfg{NumSwitches: numSwitches, Port: freePort(t)},
		Switches:   make(map[string]state.SwitchCfg),
		envs:       make(map[string]*state.Env),
		done:       make(map[string]chan error),
		out:        make(map[string]*bytes.Buffer),
	}
}

// AddSwitch registers a switch whose traffic file holds traffic.
func (h *ChainHarness) AddSwitch(number, port1, port2, ipLow, ipHigh int32, traffic string) state.SwitchCfg {
	file := filepath.Join(h.Local.FifoDir, fmt.Sprintf("traffic-%d.dat", number))
	if err := os.WriteFile(file, []byte(traffic), 0600); err != nil {
		h.t.Fatal(err)
	}
	cfg := state.SwitchCfg{
		Number: number, TrafficFile: file,
		Port1: port1, Port2: port2,
		IPLow: ipLow, IPHigh: ipHigh,
		Server: "127.0.0.1", Port: h.Controller.Port,
	}
	h.Switches[cfg.Name()] = cfg
	return cfg
}

func (h *ChainHarness) options(name string) core.Options {
	out := &bytes.Buffer{}
	h.mu.Lock()
	h.out[name] = out
	h.mu.Unlock()
	return core.Options{
		Level:     slog.LevelDebug,
		LogOutput: os.Stderr,
		Out:       out,
		Started: func(e *state.Env) {
			h.mu.Lock()
			h.envs[name] = e
			h.mu.Unlock()
		},
	}
}

func (h *ChainHarness) run(name string, start func(opts core.Options) error) {
	opts := h.options(name)
	done := make(chan error, 1)
	h.mu.Lock()
	h.done[name] = done
	h.mu.Unlock()
	h.group.Go(func() error {
		err := start(opts)
		done <- err
		return err
	})
}

func (h *ChainHarness) StartController() {
	h.run("cont", func(opts core.Options) error {
		return core.StartController(h.Controller, h.Local, opts)
	})
}

func (h *ChainHarness) StartSwitch(name string) {
	cfg := h.Switches[name]
	h.run(name, func(opts core.Options) error {
		return core.StartSwitch(cfg, h.Local, opts)
	})
}

// Start launches the controller and then every registered switch.
func (h *ChainHarness) Start() {
	h.StartController()
	for name := range h.Switches {
		h.StartSwitch(name)
	}
}

func (h *ChainHarness) env(name string) *state.Env {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.envs[name]
}

// Inspect runs fun on the node's main loop. It returns false if the node is not running.
func Inspect[T any](h *ChainHarness, name string, fun func(s *state.State) T) (T, bool) {
	var zero T
	e := h.env(name)
	if e == nil || e.Context.Err() != nil {
		return zero, false
	}
	res, err := e.DispatchWait(func(s *state.State) (any, error) {
		return fun(s), nil
	})
	if err != nil {
		return zero, false
	}
	return res.(T), true
}

// StopNode asks one node to exit as if exit was typed on its console, and waits for it.
func (h *ChainHarness) StopNode(name string) error {
	if e := h.env(name); e != nil {
		e.Cancel(state.ErrExitCommand)
	}
	return h.Wait(name)
}

// Wait blocks until the named node has stopped.
func (h *ChainHarness) Wait(name string) error {
	h.mu.Lock()
	done := h.done[name]
	h.mu.Unlock()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		return fmt.Errorf("%s did not stop", name)
	}
}

// Stop exits every node still running and returns the first failure.
func (h *ChainHarness) Stop() error {
	h.mu.Lock()
	for _, e := range h.envs {
		e.Cancel(state.ErrExitCommand)
	}
	h.mu.Unlock()
	return h.group.Wait()
}

// Output returns what the node printed to its console.
func (h *ChainHarness) Output(name string) io.Reader {
	h.mu.Lock()
	defer h.mu.Unlock()
	return bytes.NewReader(h.out[name].Bytes())
}
