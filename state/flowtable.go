package state

import (
	"slices"

	"github.com/encodeous/chainsdn/protocol"
)

// FlowTable is a switch's ordered rule list. Rules are only ever appended.
type FlowTable struct {
	rules []protocol.FlowRule
}

// LocalRule is the rule every switch starts with: deliver anything addressed to its own range.
func LocalRule(ipLow, ipHigh int32) protocol.FlowRule {
	return protocol.FlowRule{
		SrcLow: 0, SrcHigh: MaxIP,
		DestLow: ipLow, DestHigh: ipHigh,
		Action:   protocol.Forward,
		OutPort:  PortLocal,
		Priority: MinPriority,
	}
}

func NewFlowTable(initial ...protocol.FlowRule) *FlowTable {
	return &FlowTable{rules: slices.Clone(initial)}
}

func (t *FlowTable) Len() int {
	return len(t.rules)
}

// Rules returns a copy of the table in insertion order.
func (t *FlowTable) Rules() []protocol.FlowRule {
	return slices.Clone(t.rules)
}

// Match finds the rule for (src, dst) and counts the hit. Among rules of equal
// priority the one installed last wins.
func (t *FlowTable) Match(src, dst int32) (int32, bool) {
	found := -1
	for i, r := range t.rules {
		if !r.Matches(src, dst) {
			continue
		}
		if found == -1 || r.Priority >= t.rules[found].Priority {
			found = i
		}
	}
	if found == -1 {
		return PortDrop, false
	}
	rule := &t.rules[found]
	rule.HitCount++
	if rule.Action == protocol.Drop {
		return PortDrop, true
	}
	return rule.OutPort, true
}

// Install appends rule unless a structurally identical rule is present.
func (t *FlowTable) Install(rule protocol.FlowRule) bool {
	if slices.ContainsFunc(t.rules, rule.SameAs) {
		return false
	}
	t.rules = append(t.rules, rule)
	return true
}
