package core

import (
	"fmt"
	"io"
	"net"

	"github.com/encodeous/chainsdn/link"
	"github.com/encodeous/chainsdn/perf"
	"github.com/encodeous/chainsdn/protocol"
	"github.com/encodeous/chainsdn/state"
	"github.com/google/uuid"
)

// Controller builds the chain from OPENs and answers QUERYs with flow rules.
type Controller struct {
	Cfg      state.ControllerCfg
	Topology state.Topology
	Stats    *state.PacketStats
	// Queue holds QUEUEDQUERYs received before the chain was complete
	Queue    state.DeferredQueue[protocol.Packet]
	conns    map[uuid.UUID]*switchConn
	slots    chan struct{}
	listener net.Listener
}

type switchConn struct {
	peer Peer
	// number is 0 until the switch's OPEN has been accepted
	number int32
}

func NewController(cfg state.ControllerCfg) *Controller {
	return &Controller{
		Cfg:   cfg,
		Stats: state.ControllerStats(),
		conns: make(map[uuid.UUID]*switchConn),
		slots: make(chan struct{}, cfg.NumSwitches),
	}
}

func (c *Controller) Init(s *state.State) error {
	l, err := link.Listen(s.Context, c.Cfg.Port)
	if err != nil {
		return err
	}
	c.listener = l
	s.Log.Info("listening for switches", "addr", l.Addr(), "switches", c.Cfg.NumSwitches)
	go c.acceptLoop(s.Env)
	return nil
}

func (c *Controller) Cleanup(s *state.State) error {
	if c.listener != nil {
		c.listener.Close()
	}
	for _, conn := range c.conns {
		conn.peer.Close()
	}
	return nil
}

// acceptLoop holds at most NumSwitches connections open, further dials wait in the listen backlog.
func (c *Controller) acceptLoop(e *state.Env) {
	for {
		select {
		case c.slots <- struct{}{}:
		case <-e.Context.Done():
			return
		}
		conn, err := c.listener.Accept()
		if err != nil {
			<-c.slots
			if e.Context.Err() != nil {
				return
			}
			e.Log.Warn("failed to accept connection", "err", err)
			continue
		}
		sl := link.NewStreamLink(conn)
		e.Dispatch(func(s *state.State) error {
			c.addConn(s, sl)
			return nil
		})
		go readLoop(e, sl, func(s *state.State, p protocol.Packet) error {
			return c.HandlePacket(s, sl.Id(), p)
		}, func(s *state.State, err error) error {
			c.removeConn(s, sl.Id(), err)
			return nil
		})
	}
}

func (c *Controller) addConn(s *state.State, peer Peer) {
	c.conns[peer.Id()] = &switchConn{peer: peer}
	s.Log.Debug("accepted connection", "link", peer.Id(), "open", len(c.conns))
}

func (c *Controller) removeConn(s *state.State, id uuid.UUID, cause error) {
	conn, ok := c.conns[id]
	if !ok {
		return
	}
	delete(c.conns, id)
	conn.peer.Close()
	select {
	case <-c.slots:
	default:
	}
	if conn.number != 0 {
		c.Topology.Remove(conn.number)
		s.Log.Info("switch disconnected", "switch", state.SwitchName(conn.number), "reason", cause)
	} else {
		s.Log.Debug("connection closed before joining", "link", id, "reason", cause)
	}
}

func (c *Controller) connFor(number int32) *switchConn {
	for _, conn := range c.conns {
		if conn.number == number {
			return conn
		}
	}
	return nil
}

// Complete reports whether every expected switch has joined.
func (c *Controller) Complete() bool {
	return c.Topology.Len() == c.Cfg.NumSwitches
}

func (c *Controller) HandlePacket(s *state.State, from uuid.UUID, p protocol.Packet) error {
	conn, ok := c.conns[from]
	if !ok {
		return nil
	}
	s.Log.Debug("received", "packet", p, "switch", state.SwitchName(conn.number))
	switch p.Kind {
	case protocol.Open:
		c.Stats.Rx(protocol.Open)
		return c.handleOpen(s, conn, *p.Open())
	case protocol.Query:
		c.Stats.Rx(protocol.Query)
		c.handleQuery(s, conn, p)
	case protocol.Exit:
		s.Log.Warn("switch forced the controller to exit", "switch", state.SwitchName(conn.number))
		return state.ErrExitPacket
	default:
		s.Log.Warn("ignoring unexpected packet", "packet", p, "switch", state.SwitchName(conn.number))
	}
	return nil
}

func (c *Controller) exit(s *state.State, conn *switchConn) {
	if err := send(s, c.Stats, conn.peer, protocol.NewExit(), protocol.Exit); err != nil {
		s.Log.Warn("failed to send exit", "link", conn.peer.Id(), "err", err)
	}
}

func (c *Controller) handleOpen(s *state.State, conn *switchConn, o protocol.OpenPayload) error {
	rec := state.SwitchRecord{Number: o.SwitchNumber, Port1: o.Port1, Port2: o.Port2, IPLow: o.IPLow, IPHigh: o.IPHigh}
	if conn.number != 0 {
		s.Log.Warn("ignoring second open on connection", "switch", state.SwitchName(conn.number), "open", rec)
		return nil
	}
	if c.Topology.Contains(rec.Number) {
		s.Log.Warn("rejecting duplicate switch", "switch", state.SwitchName(rec.Number))
		c.exit(s, conn)
		conn.peer.Close()
		return nil
	}
	if c.Complete() {
		s.Log.Warn("rejecting switch, network is full", "switch", state.SwitchName(rec.Number))
		c.exit(s, conn)
		conn.peer.Close()
		return nil
	}

	if err := c.Topology.Place(rec); err != nil {
		for _, other := range c.conns {
			c.exit(s, other)
		}
		return err
	}
	conn.number = rec.Number
	s.Log.Info("switch joined", "record", rec, "joined", c.Topology.Len(), "expected", c.Cfg.NumSwitches)
	if err := send(s, c.Stats, conn.peer, protocol.NewAck(), protocol.Ack); err != nil {
		s.Log.Warn("failed to acknowledge switch", "switch", state.SwitchName(rec.Number), "err", err)
	}

	if !c.Complete() {
		return nil
	}
	if err := c.Topology.Verify(); err != nil {
		if s.StrictVerify {
			for _, other := range c.conns {
				c.exit(s, other)
			}
			return err
		}
		s.Log.Warn("network is complete but inconsistent", "err", err)
	} else {
		s.Log.Info("network is complete")
	}
	n := c.Queue.Drain(func(p protocol.Packet) {
		c.handleQueuedQuery(s, p)
	})
	perf.DrainSize.Add(float64(n))
	return nil
}

// handleQuery resolves a QUERY for the switch on conn. The asking switch is the
// connection's, whatever the payload claims.
func (c *Controller) handleQuery(s *state.State, conn *switchConn, p protocol.Packet) {
	if conn.number == 0 {
		s.Log.Warn("ignoring query from a switch that has not joined", "packet", p, "link", conn.peer.Id())
		return
	}
	q := *p.QueryRelay()
	if q.SendingSwitch != conn.number {
		s.Log.Debug("query names another switch, using the connection's", "claimed", q.SendingSwitch, "switch", state.SwitchName(conn.number))
		q.SendingSwitch = conn.number
	}
	if !c.Complete() {
		queued := protocol.NewQueryRelay(protocol.QueuedQuery, q.SendingSwitch, q.SrcIP, q.DestIP)
		c.Queue.Push(queued)
		perf.PacketsQueued.Add(1)
		s.Log.Info("queued", "packet", queued, "switch", state.SwitchName(q.SendingSwitch))
		return
	}
	c.answer(s, conn, q)
}

func (c *Controller) handleQueuedQuery(s *state.State, p protocol.Packet) {
	q := *p.QueryRelay()
	conn := c.connFor(q.SendingSwitch)
	if conn == nil {
		s.Log.Warn("dropped query, switch is gone", "packet", p, "switch", state.SwitchName(q.SendingSwitch))
		return
	}
	c.answer(s, conn, q)
}

func (c *Controller) answer(s *state.State, conn *switchConn, q protocol.QueryRelayPayload) {
	rule := state.Resolve(&c.Topology, q.SrcIP, q.DestIP, q.SendingSwitch)
	s.Log.Info("resolved query", "switch", state.SwitchName(q.SendingSwitch), "query", &q, "rule", &rule)
	if err := send(s, c.Stats, conn.peer, protocol.NewAdd(rule), protocol.Add); err != nil {
		s.Log.Warn("failed to send rule", "switch", state.SwitchName(q.SendingSwitch), "err", err)
	}
}

func (c *Controller) Dump(w io.Writer) {
	fmt.Fprintln(w, "Switch information:")
	for _, rec := range c.Topology.Records() {
		fmt.Fprintln(w, rec)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, c.Stats)
}
