package core

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/chainsdn/protocol"
	"github.com/encodeous/chainsdn/state"
	"github.com/google/uuid"
)

type mockPeer struct {
	id     uuid.UUID
	sent   []protocol.Packet
	closed bool
}

func newMockPeer() *mockPeer {
	return &mockPeer{id: uuid.New()}
}

func (m *mockPeer) Id() uuid.UUID {
	return m.id
}

func (m *mockPeer) WritePacket(p protocol.Packet) error {
	if m.closed {
		return io.ErrClosedPipe
	}
	m.sent = append(m.sent, p)
	return nil
}

func (m *mockPeer) Close() error {
	m.closed = true
	return nil
}

// take returns and forgets everything sent so far.
func (m *mockPeer) take() []protocol.Packet {
	out := m.sent
	m.sent = nil
	return out
}

func kinds(ps []protocol.Packet) []protocol.Kind {
	var out []protocol.Kind
	for _, p := range ps {
		out = append(out, p.Kind)
	}
	return out
}

type testNode struct {
	*state.State
	dispatch chan func(*state.State) error
	logs     *bytes.Buffer
	out      *bytes.Buffer
}

func newTestNode(t *testing.T, name string, lcfg state.LocalCfg, modules ...state.Module) *testNode {
	t.Helper()
	ctx, cancel := context.WithCancelCause(context.Background())
	t.Cleanup(func() { cancel(nil) })
	dispatch := make(chan func(*state.State) error, state.DispatchBuffer)
	logs, out := &bytes.Buffer{}, &bytes.Buffer{}
	n := &testNode{
		State: &state.State{
			Modules: make(map[string]state.Module),
			Env: &state.Env{
				DispatchChannel: dispatch,
				LocalCfg:        lcfg,
				Context:         ctx,
				Cancel:          cancel,
				Log:             slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
				Name:            name,
				Out:             out,
			},
		},
		dispatch: dispatch,
		logs:     logs,
		out:      out,
	}
	for _, m := range modules {
		n.Modules[name] = m
	}
	return n
}

// pump runs dispatched work until the node has been idle for a while, returning the first error.
func (n *testNode) pump(t *testing.T) error {
	t.Helper()
	for {
		select {
		case f := <-n.dispatch:
			if err := f(n.State); err != nil {
				return err
			}
		case <-time.After(100 * time.Millisecond):
			return nil
		}
	}
}

func (n *testNode) logged(msg string) int {
	return strings.Count(n.logs.String(), "msg="+msg)
}

func newTestSwitch(t *testing.T, cfg state.SwitchCfg, traffic string) (*Switch, *testNode, *mockPeer) {
	t.Helper()
	sw := NewSwitch(cfg, 0)
	node := newTestNode(t, cfg.Name(), state.DefaultLocalCfg(), sw)
	ctl := newMockPeer()
	sw.controller = ctl
	sw.traffic = state.NewTrafficReader(strings.NewReader(traffic), cfg.Number)
	return sw, node, ctl
}

var (
	sw1Cfg = state.SwitchCfg{Number: 1, Port1: state.NullPort, Port2: 2, IPLow: 0, IPHigh: 499}
	sw2Cfg = state.SwitchCfg{Number: 2, Port1: 1, Port2: state.NullPort, IPLow: 500, IPHigh: 999}
)

func openFor(cfg state.SwitchCfg) protocol.Packet {
	return protocol.NewOpen(protocol.OpenPayload{
		SwitchNumber: cfg.Number, Port1: cfg.Port1, Port2: cfg.Port2, IPLow: cfg.IPLow, IPHigh: cfg.IPHigh,
	})
}
