package core

import (
	"errors"

	"github.com/encodeous/chainsdn/link"
	"github.com/encodeous/chainsdn/perf"
	"github.com/encodeous/chainsdn/protocol"
	"github.com/encodeous/chainsdn/state"
	"github.com/google/uuid"
)

// Peer is the sending half of a link, all the packet handlers need.
type Peer interface {
	Id() uuid.UUID
	WritePacket(p protocol.Packet) error
	Close() error
}

// send writes p to peer and counts it under label.
func send(s *state.State, stats *state.PacketStats, peer Peer, p protocol.Packet, label protocol.Kind) error {
	err := peer.WritePacket(p)
	if err != nil {
		return err
	}
	stats.Tx(label)
	perf.PacketsSent.Add(1)
	s.Log.Debug("sent", "packet", p)
	return nil
}

// readLoop reads packets from l until it closes, running handle for each on the main loop.
// closed runs once when the link fails, unless the node is already stopping.
func readLoop(e *state.Env, l link.Link, handle func(*state.State, protocol.Packet) error, closed func(*state.State, error) error) {
	for {
		p, err := l.ReadPacket()
		if err != nil {
			var de *protocol.DecodeError
			if errors.As(err, &de) {
				e.Log.Warn("discarding malformed packet", "link", l.Id(), "err", err)
				continue
			}
			if e.Context.Err() != nil {
				return
			}
			e.Dispatch(func(s *state.State) error {
				return closed(s, err)
			})
			return
		}
		perf.PacketsReceived.Add(1)
		e.Dispatch(func(s *state.State) error {
			return handle(s, p)
		})
	}
}
