package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/encodeous/chainsdn/protocol"
)

// PacketStats counts received and transmitted packets per kind.
type PacketStats struct {
	Received    map[protocol.Kind]int
	Transmitted map[protocol.Kind]int
}

func ControllerStats() *PacketStats {
	return newStats(
		[]protocol.Kind{protocol.Open, protocol.Query},
		[]protocol.Kind{protocol.Ack, protocol.Add, protocol.Exit},
	)
}

func SwitchStats() *PacketStats {
	return newStats(
		[]protocol.Kind{protocol.Admit, protocol.Ack, protocol.Add, protocol.RelayIn, protocol.Exit},
		[]protocol.Kind{protocol.Open, protocol.Query, protocol.RelayOut},
	)
}

func newStats(rx, tx []protocol.Kind) *PacketStats {
	st := &PacketStats{
		Received:    make(map[protocol.Kind]int),
		Transmitted: make(map[protocol.Kind]int),
	}
	for _, k := range rx {
		st.Received[k] = 0
	}
	for _, k := range tx {
		st.Transmitted[k] = 0
	}
	return st
}

func (p *PacketStats) Rx(kind protocol.Kind) {
	p.Received[kind]++
}

func (p *PacketStats) Tx(kind protocol.Kind) {
	p.Transmitted[kind]++
}

func formatCounts(m map[protocol.Kind]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s:%d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}

func (p *PacketStats) String() string {
	sb := strings.Builder{}
	sb.WriteString("Packet Stats:\n")
	sb.WriteString("   Received:    " + formatCounts(p.Received) + "\n")
	sb.WriteString("   Transmitted: " + formatCounts(p.Transmitted) + "\n")
	return sb.String()
}
