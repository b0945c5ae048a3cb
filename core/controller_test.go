package core

import (
	"errors"
	"testing"

	"github.com/encodeous/chainsdn/protocol"
	"github.com/encodeous/chainsdn/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, numSwitches int, lcfg state.LocalCfg) (*Controller, *testNode) {
	t.Helper()
	c := NewController(state.ControllerCfg{NumSwitches: numSwitches, Port: 5000})
	return c, newTestNode(t, "cont", lcfg, c)
}

func join(t *testing.T, c *Controller, node *testNode, cfg state.SwitchCfg) *mockPeer {
	t.Helper()
	p := newMockPeer()
	c.addConn(node.State, p)
	require.NoError(t, c.HandlePacket(node.State, p.Id(), openFor(cfg)))
	return p
}

func TestTwoSwitchDelivery(t *testing.T) {
	c, cnode := newTestController(t, 2, state.DefaultLocalCfg())
	sw1, node1, ctl1 := newTestSwitch(t, sw1Cfg, "")
	sw2, node2, _ := newTestSwitch(t, sw2Cfg, "")
	link12, link21 := newMockPeer(), newMockPeer()
	sw1.neighbours[state.Port2] = link12
	sw2.neighbours[state.Port1] = link21

	p1 := join(t, c, cnode, sw1Cfg)
	assert.Equal(t, []protocol.Kind{protocol.Ack}, kinds(p1.take()))
	assert.False(t, c.Complete())

	// traffic admitted before the chain is complete waits at both ends
	admit := protocol.NewQueryRelay(protocol.Admit, 0, 10, 600)
	require.NoError(t, sw1.HandlePacket(node1.State, 1, admit))
	require.NoError(t, sw1.HandlePacket(node1.State, 1, protocol.NewQueryRelay(protocol.Admit, 0, 20, 600)))
	queries := ctl1.take()
	require.Len(t, queries, 1, "only one query per destination class")
	assert.Equal(t, protocol.QueryRelayPayload{SendingSwitch: 1, SrcIP: 10, DestIP: 600}, *queries[0].QueryRelay())
	assert.Equal(t, 2, sw1.Queue.Len())
	assert.Equal(t, 2, node1.logged("queued"))

	require.NoError(t, c.HandlePacket(cnode.State, p1.Id(), queries[0]))
	assert.Empty(t, p1.sent)
	assert.Equal(t, 1, c.Queue.Len())
	assert.Equal(t, protocol.QueuedQuery, c.Queue.Items()[0].Kind)

	p2 := join(t, c, cnode, sw2Cfg)
	assert.Equal(t, []protocol.Kind{protocol.Ack}, kinds(p2.take()))
	assert.True(t, c.Complete())
	assert.Zero(t, c.Queue.Len())

	adds := p1.take()
	require.Len(t, adds, 1)
	assert.Equal(t, protocol.FlowRule{
		SrcLow: 0, SrcHigh: state.MaxIP, DestLow: 500, DestHigh: 999,
		Action: protocol.Forward, OutPort: state.Port2, Priority: state.MinPriority,
	}, *adds[0].Rule())

	require.NoError(t, sw1.HandlePacket(node1.State, state.ControllerId, adds[0]))
	assert.Zero(t, sw1.Queue.Len())
	assert.Zero(t, sw1.Pending.Len())
	relays := link12.take()
	require.Len(t, relays, 2)
	assert.Equal(t, protocol.QueryRelayPayload{SendingSwitch: 1, SrcIP: 10, DestIP: 600}, *relays[0].QueryRelay())

	for _, r := range relays {
		require.NoError(t, sw2.HandlePacket(node2.State, 1, r))
	}
	assert.Equal(t, 2, node2.logged("delivered"))
	assert.Equal(t, int32(2), sw2.Table.Rules()[0].HitCount)
	assert.Empty(t, link21.sent)

	assert.Equal(t, 2, sw1.Stats.Received[protocol.Admit])
	assert.Equal(t, 1, sw1.Stats.Received[protocol.Add])
	assert.Equal(t, 1, sw1.Stats.Transmitted[protocol.Query])
	assert.Equal(t, 2, sw1.Stats.Transmitted[protocol.RelayOut])
	assert.Equal(t, 2, sw2.Stats.Received[protocol.RelayIn])
	assert.Equal(t, 2, c.Stats.Transmitted[protocol.Ack])
	assert.Equal(t, 1, c.Stats.Transmitted[protocol.Add])
	assert.Equal(t, 1, c.Stats.Received[protocol.Query])
}

func TestReconnectUnderSameNumber(t *testing.T) {
	c, node := newTestController(t, 2, state.DefaultLocalCfg())
	p1 := join(t, c, node, sw1Cfg)
	join(t, c, node, sw2Cfg)
	p1.take()

	c.removeConn(node.State, p1.Id(), errors.New("EOF"))
	assert.True(t, p1.closed)
	assert.False(t, c.Topology.Contains(1))
	assert.False(t, c.Complete())

	again := join(t, c, node, sw1Cfg)
	assert.Equal(t, []protocol.Kind{protocol.Ack}, kinds(again.sent))
	assert.True(t, c.Complete())
	assert.NoError(t, c.Topology.Verify())
	assert.Zero(t, c.Stats.Transmitted[protocol.Exit])
}

func TestDuplicateNumberGetsExit(t *testing.T) {
	c, node := newTestController(t, 3, state.DefaultLocalCfg())
	p1 := join(t, c, node, sw1Cfg)
	dup := join(t, c, node, sw1Cfg)

	assert.Equal(t, []protocol.Kind{protocol.Exit}, kinds(dup.sent))
	assert.True(t, dup.closed)
	assert.Equal(t, []protocol.Kind{protocol.Ack}, kinds(p1.sent))
	assert.False(t, p1.closed)
	assert.Equal(t, 1, c.Topology.Len())

	// the rejected connection still goes through the normal close path
	c.removeConn(node.State, dup.Id(), errors.New("EOF"))
	assert.True(t, c.Topology.Contains(1))
}

func TestPlacementErrorIsFatal(t *testing.T) {
	c, node := newTestController(t, 3, state.DefaultLocalCfg())
	p1 := join(t, c, node, sw1Cfg)

	bad := newMockPeer()
	c.addConn(node.State, bad)
	err := c.HandlePacket(node.State, bad.Id(), openFor(state.SwitchCfg{Number: 3, Port1: state.NullPort, Port2: 2}))
	var pe *state.PlacementError
	require.True(t, errors.As(err, &pe))
	assert.False(t, state.IsOrderlyExit(err))

	assert.Equal(t, []protocol.Kind{protocol.Ack, protocol.Exit}, kinds(p1.sent))
	assert.Equal(t, []protocol.Kind{protocol.Exit}, kinds(bad.sent))
	assert.Equal(t, 2, c.Stats.Transmitted[protocol.Exit])
}

func TestOverRangeSourceResolvesToDrop(t *testing.T) {
	c, node := newTestController(t, 2, state.DefaultLocalCfg())
	p1 := join(t, c, node, sw1Cfg)
	join(t, c, node, sw2Cfg)
	p1.take()

	require.NoError(t, c.HandlePacket(node.State, p1.Id(), protocol.NewQueryRelay(protocol.Query, 1, 1500, 300)))
	adds := p1.take()
	require.Len(t, adds, 1)
	assert.Equal(t, protocol.FlowRule{
		SrcLow: 1500, SrcHigh: 1500, DestLow: 300, DestHigh: 300,
		Action: protocol.Drop, Priority: state.MinPriority,
	}, *adds[0].Rule())
}

func TestVerifyWarnsUnlessStrict(t *testing.T) {
	inconsistent := state.SwitchCfg{Number: 1, Port1: state.NullPort, Port2: 2, IPLow: 0, IPHigh: 10}

	c, node := newTestController(t, 1, state.DefaultLocalCfg())
	p := join(t, c, node, inconsistent)
	assert.Equal(t, []protocol.Kind{protocol.Ack}, kinds(p.sent))
	assert.Contains(t, node.logs.String(), "network is complete but inconsistent")

	strict := state.DefaultLocalCfg()
	strict.StrictVerify = true
	c, node = newTestController(t, 1, strict)
	p = newMockPeer()
	c.addConn(node.State, p)
	err := c.HandlePacket(node.State, p.Id(), openFor(inconsistent))
	var ve *state.VerifyError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []protocol.Kind{protocol.Ack, protocol.Exit}, kinds(p.sent))
}

func TestQueuedQueryForDepartedSwitchIsDropped(t *testing.T) {
	c, node := newTestController(t, 2, state.DefaultLocalCfg())
	p1 := join(t, c, node, sw1Cfg)
	require.NoError(t, c.HandlePacket(node.State, p1.Id(), protocol.NewQueryRelay(protocol.Query, 1, 10, 600)))
	c.removeConn(node.State, p1.Id(), errors.New("EOF"))

	join(t, c, node, state.SwitchCfg{Number: 2, Port1: state.NullPort, Port2: 3, IPLow: 500, IPHigh: 999})
	join(t, c, node, state.SwitchCfg{Number: 3, Port1: 2, Port2: state.NullPort, IPLow: 0, IPHigh: 499})
	require.True(t, c.Complete())
	assert.Zero(t, c.Queue.Len())
	assert.Contains(t, node.logs.String(), "dropped query, switch is gone")
	assert.Zero(t, c.Stats.Transmitted[protocol.Add])
}

func TestQueryUsesConnectionSwitchNumber(t *testing.T) {
	first := state.SwitchCfg{Number: 1, Port1: state.NullPort, Port2: 2, IPLow: 0, IPHigh: 99}
	second := state.SwitchCfg{Number: 2, Port1: 1, Port2: 3, IPLow: 100, IPHigh: 199}
	third := state.SwitchCfg{Number: 3, Port1: 2, Port2: state.NullPort, IPLow: 200, IPHigh: 299}

	c, node := newTestController(t, 3, state.DefaultLocalCfg())
	p1 := join(t, c, node, first)
	p1.take()

	// asked before the chain is complete, with a number that is not the sender's
	require.NoError(t, c.HandlePacket(node.State, p1.Id(), protocol.NewQueryRelay(protocol.Query, 0, 10, 250)))
	require.Equal(t, 1, c.Queue.Len())
	assert.Equal(t, int32(1), c.Queue.Items()[0].QueryRelay().SendingSwitch)

	join(t, c, node, second)
	p3 := join(t, c, node, third)
	p3.take()
	require.True(t, c.Complete())
	assert.NotContains(t, node.logs.String(), "dropped query, switch is gone")
	adds := p1.take()
	require.Len(t, adds, 1)
	assert.Equal(t, int32(state.Port2), adds[0].Rule().OutPort)

	require.NoError(t, c.HandlePacket(node.State, p3.Id(), protocol.NewQueryRelay(protocol.Query, 0, 10, 50)))
	adds = p3.take()
	require.Len(t, adds, 1)
	assert.Equal(t, protocol.FlowRule{
		SrcLow: 0, SrcHigh: state.MaxIP, DestLow: 0, DestHigh: 99,
		Action: protocol.Forward, OutPort: state.Port1, Priority: state.MinPriority,
	}, *adds[0].Rule())
}

func TestQueryBeforeOpenIsIgnored(t *testing.T) {
	c, node := newTestController(t, 1, state.DefaultLocalCfg())
	p := newMockPeer()
	c.addConn(node.State, p)
	require.NoError(t, c.HandlePacket(node.State, p.Id(), protocol.NewQueryRelay(protocol.Query, 1, 10, 600)))
	assert.Empty(t, p.sent)
	assert.Zero(t, c.Queue.Len())
	assert.Zero(t, c.Stats.Transmitted[protocol.Add])
	assert.Contains(t, node.logs.String(), "ignoring query from a switch that has not joined")
}

func TestControllerExitAndUnexpectedPackets(t *testing.T) {
	c, node := newTestController(t, 2, state.DefaultLocalCfg())
	p1 := join(t, c, node, sw1Cfg)

	assert.NoError(t, c.HandlePacket(node.State, p1.Id(), protocol.NewQueryRelay(protocol.Relay, 0, 1, 2)))
	assert.Contains(t, node.logs.String(), "ignoring unexpected packet")

	err := c.HandlePacket(node.State, p1.Id(), protocol.NewExit())
	assert.ErrorIs(t, err, state.ErrExitPacket)
	assert.True(t, state.IsOrderlyExit(err))
}

func TestControllerDump(t *testing.T) {
	c, node := newTestController(t, 2, state.DefaultLocalCfg())
	join(t, c, node, sw1Cfg)
	join(t, c, node, sw2Cfg)

	Dump(node.State)
	out := node.out.String()
	assert.Contains(t, out, "Switch information:\n[sw1] port1= -1, port2= 2, port3= 0-499\n[sw2] port1= 1, port2= -1, port3= 500-999\n")
	assert.Contains(t, out, "Received:    OPEN:2, QUERY:0\n")
	assert.Contains(t, out, "Transmitted: ACK:2, ADD:0, EXIT:0\n")
}
