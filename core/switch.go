package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/encodeous/chainsdn/link"
	"github.com/encodeous/chainsdn/perf"
	"github.com/encodeous/chainsdn/protocol"
	"github.com/encodeous/chainsdn/state"
)

// Switch relays traffic along the chain using rules learned from the controller.
type Switch struct {
	Cfg     state.SwitchCfg
	Table   *state.FlowTable
	Queue   state.DeferredQueue[protocol.Packet]
	Pending *state.PendingQuerySet
	Stats   *state.PacketStats
	// Acked is set once the controller has accepted our OPEN
	Acked bool

	controller Peer
	// neighbours is keyed by the local port, 1 or 2
	neighbours map[int32]Peer
	fifos      []*link.FifoLink
	traffic    *state.TrafficReader
	closers    []io.Closer
}

func NewSwitch(cfg state.SwitchCfg, pendingTTL time.Duration) *Switch {
	return &Switch{
		Cfg:        cfg,
		Table:      state.NewFlowTable(state.LocalRule(cfg.IPLow, cfg.IPHigh)),
		Pending:    state.NewPendingQuerySet(pendingTTL),
		Stats:      state.SwitchStats(),
		neighbours: make(map[int32]Peer),
	}
}

func (sw *Switch) Init(s *state.State) error {
	f, err := os.Open(sw.Cfg.TrafficFile)
	if err != nil {
		return fmt.Errorf("failed to open traffic file: %w", err)
	}
	sw.closers = append(sw.closers, f)
	sw.traffic = state.NewTrafficReader(f, sw.Cfg.Number)

	for port, peer := range map[int32]int32{state.Port1: sw.Cfg.Port1, state.Port2: sw.Cfg.Port2} {
		if peer == state.NullPort {
			continue
		}
		fl, err := link.OpenFifoLink(s.FifoDir, sw.Cfg.Number, peer)
		if err != nil {
			return err
		}
		sw.closers = append(sw.closers, fl)
		sw.fifos = append(sw.fifos, fl)
		sw.neighbours[port] = fl
	}

	s.Log.Info("connecting to controller", "addr", sw.Cfg.ControllerAddr())
	cl, err := link.Connect(s.Context, sw.Cfg.ControllerAddr(), s.Connect, s.Log)
	if err != nil {
		return err
	}
	sw.closers = append(sw.closers, cl)
	sw.controller = cl

	err = send(s, sw.Stats, cl, protocol.NewOpen(protocol.OpenPayload{
		SwitchNumber: sw.Cfg.Number,
		Port1:        sw.Cfg.Port1,
		Port2:        sw.Cfg.Port2,
		IPLow:        sw.Cfg.IPLow,
		IPHigh:       sw.Cfg.IPHigh,
	}), protocol.Open)
	if err != nil {
		return fmt.Errorf("failed to send open: %w", err)
	}
	go readLoop(s.Env, cl, func(s *state.State, p protocol.Packet) error {
		return sw.HandlePacket(s, state.ControllerId, p)
	}, func(s *state.State, err error) error {
		s.Log.Warn("lost connection to controller", "err", err)
		return state.ErrControllerLost
	})
	return nil
}

func (sw *Switch) Cleanup(s *state.State) error {
	var errs []error
	for _, c := range sw.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// startNeighbours begins reading the neighbour fifos, once the controller has acknowledged us.
func (sw *Switch) startNeighbours(e *state.Env) {
	for _, fl := range sw.fifos {
		go readLoop(e, fl, func(s *state.State, p protocol.Packet) error {
			return sw.HandlePacket(s, fl.Peer, p)
		}, func(s *state.State, err error) error {
			s.Log.Warn("neighbour link failed", "neighbour", state.SwitchName(fl.Peer), "err", err)
			return nil
		})
	}
}

// HandlePacket runs the switch's reaction to p, received from the controller (ControllerId) or a neighbour.
func (sw *Switch) HandlePacket(s *state.State, from int32, p protocol.Packet) error {
	s.Log.Debug("received", "packet", p, "from", state.SwitchName(from))
	switch p.Kind {
	case protocol.Ack:
		sw.Stats.Rx(protocol.Ack)
		if sw.Acked {
			return nil
		}
		sw.Acked = true
		s.Log.Info("joined the network")
		sw.startNeighbours(s.Env)
		s.ScheduleTask(sw.replayNext, 0)
		if s.PendingTTL > 0 {
			s.RepeatTask(sw.requery, s.PendingTTL)
		}
	case protocol.Add:
		sw.Stats.Rx(protocol.Add)
		sw.install(s, *p.Rule())
	case protocol.Relay:
		sw.Stats.Rx(protocol.RelayIn)
		s.Log.Debug("relay arrived", "packet", p, "relayed_by", state.SwitchName(p.QueryRelay().SendingSwitch))
		sw.route(s, p)
	case protocol.Admit:
		sw.Stats.Rx(protocol.Admit)
		sw.route(s, p)
	case protocol.Exit:
		sw.Stats.Rx(protocol.Exit)
		s.Log.Warn("controller requested exit")
		return state.ErrExitPacket
	default:
		s.Log.Warn("ignoring unexpected packet", "packet", p, "from", state.SwitchName(from))
	}
	return nil
}

func (sw *Switch) install(s *state.State, rule protocol.FlowRule) {
	if sw.Table.Install(rule) {
		s.Log.Info("installed rule", "rule", &rule)
	} else {
		s.Log.Debug("rule already installed", "rule", &rule)
	}
	n := sw.Queue.Drain(func(p protocol.Packet) {
		sw.replayQueued(s, p)
	})
	perf.DrainSize.Add(float64(n))
}

// route matches a RELAY or ADMIT, deferring it with a single outstanding query on a miss.
func (sw *Switch) route(s *state.State, p protocol.Packet) {
	q := p.QueryRelay()
	port, ok := sw.Table.Match(q.SrcIP, q.DestIP)
	if ok {
		sw.forward(s, *q, port)
		return
	}
	queued := p.WithKind(protocol.QueuedRelay)
	sw.Queue.Push(queued)
	perf.PacketsQueued.Add(1)
	s.Log.Info("queued", "packet", queued)

	if !sw.Pending.Add(state.KeyFor(q.SrcIP, q.DestIP)) {
		return
	}
	query := protocol.NewQueryRelay(protocol.Query, sw.Cfg.Number, q.SrcIP, q.DestIP)
	if err := send(s, sw.Stats, sw.controller, query, protocol.Query); err != nil {
		s.Log.Warn("failed to query controller", "packet", query, "err", err)
	}
}

// requery sends a fresh QUERY for queued packets whose pending query has expired.
func (sw *Switch) requery(s *state.State) error {
	for _, p := range sw.Queue.Items() {
		q := p.QueryRelay()
		if !sw.Pending.Add(state.KeyFor(q.SrcIP, q.DestIP)) {
			continue
		}
		query := protocol.NewQueryRelay(protocol.Query, sw.Cfg.Number, q.SrcIP, q.DestIP)
		s.Log.Info("query expired, asking again", "packet", query)
		if err := send(s, sw.Stats, sw.controller, query, protocol.Query); err != nil {
			s.Log.Warn("failed to query controller", "packet", query, "err", err)
		}
	}
	return nil
}

// replayQueued handles a QUEUEDRELAY taken off the queue by a drain.
func (sw *Switch) replayQueued(s *state.State, p protocol.Packet) {
	q := p.QueryRelay()
	port, ok := sw.Table.Match(q.SrcIP, q.DestIP)
	if !ok {
		sw.Queue.Push(p)
		return
	}
	sw.Pending.Remove(state.KeyFor(q.SrcIP, q.DestIP))
	sw.forward(s, *q, port)
}

func (sw *Switch) forward(s *state.State, q protocol.QueryRelayPayload, port int32) {
	switch port {
	case state.PortLocal:
		perf.PacketsDelivered.Add(1)
		s.Log.Info("delivered", "src", q.SrcIP, "dst", q.DestIP)
	case state.Port1, state.Port2:
		peer, ok := sw.neighbours[port]
		if !ok {
			perf.PacketsDropped.Add(1)
			s.Log.Warn("dropped, no neighbour on port", "src", q.SrcIP, "dst", q.DestIP, "port", port)
			return
		}
		relay := protocol.NewQueryRelay(protocol.Relay, sw.Cfg.Number, q.SrcIP, q.DestIP)
		if err := send(s, sw.Stats, peer, relay, protocol.RelayOut); err != nil {
			perf.PacketsDropped.Add(1)
			s.Log.Warn("dropped, relay failed", "src", q.SrcIP, "dst", q.DestIP, "port", port, "err", err)
			return
		}
		s.Log.Info("relayed", "src", q.SrcIP, "dst", q.DestIP, "port", port)
	default:
		perf.PacketsDropped.Add(1)
		s.Log.Info("dropped", "src", q.SrcIP, "dst", q.DestIP)
	}
}

// replayNext processes one traffic file directive and schedules the next.
func (sw *Switch) replayNext(s *state.State) error {
	d, err := sw.traffic.Next()
	if err != nil {
		var te *state.TrafficError
		switch {
		case errors.Is(err, io.EOF):
			s.Log.Info("finished processing traffic file")
		case errors.As(err, &te):
			s.Log.Warn("skipping malformed traffic line", "err", err)
			s.ScheduleTask(sw.replayNext, 0)
		default:
			s.Log.Error("failed to read traffic file", "err", err)
		}
		return nil
	}

	if d.Kind == state.DirectiveDelay {
		s.Log.Info("delaying traffic", "delay", d.Delay)
		s.ScheduleTask(sw.replayNext, d.Delay)
		return nil
	}
	err = sw.HandlePacket(s, sw.Cfg.Number, protocol.NewQueryRelay(protocol.Admit, 0, d.SrcIP, d.DestIP))
	s.ScheduleTask(sw.replayNext, 0)
	return err
}

func (sw *Switch) Dump(w io.Writer) {
	fmt.Fprintln(w, "Flow table:")
	for i, rule := range sw.Table.Rules() {
		fmt.Fprintf(w, "[%d] %s\n", i, &rule)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, sw.Stats)
}
