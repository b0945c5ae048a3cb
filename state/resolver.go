package state

import "github.com/encodeous/chainsdn/protocol"

// Resolve computes the rule the controller sends back for a QUERY from querying about (src, dst).
func Resolve(t *Topology, src, dst, querying int32) protocol.FlowRule {
	if src > MaxIP {
		return protocol.FlowRule{
			SrcLow: src, SrcHigh: src,
			DestLow: dst, DestHigh: dst,
			Action:   protocol.Drop,
			Priority: MinPriority,
		}
	}

	// destBeforeSwitch is overwritten by every record it applies to, the last one wins
	destBeforeSwitch := false
	var dest *SwitchRecord
	for i := range t.chain {
		rec := &t.chain[i]
		if rec.Number == querying {
			destBeforeSwitch = true
		} else if rec.ContainsIP(dst) {
			destBeforeSwitch = false
			dest = rec
		}
	}

	if dest == nil {
		return protocol.FlowRule{
			SrcLow: 0, SrcHigh: MaxIP,
			DestLow: dst, DestHigh: dst,
			Action:   protocol.Drop,
			Priority: MinPriority,
		}
	}
	port := int32(Port2)
	if destBeforeSwitch {
		port = Port1
	}
	return protocol.FlowRule{
		SrcLow: 0, SrcHigh: MaxIP,
		DestLow: dest.IPLow, DestHigh: dest.IPHigh,
		Action:   protocol.Forward,
		OutPort:  port,
		Priority: MinPriority,
	}
}
