package state

import (
	"fmt"
	"slices"
)

// SwitchRecord is the controller's view of one connected switch.
type SwitchRecord struct {
	Number int32
	Port1  int32
	Port2  int32
	IPLow  int32
	IPHigh int32
}

func (r SwitchRecord) String() string {
	return fmt.Sprintf("[sw%d] port1= %d, port2= %d, port3= %d-%d", r.Number, r.Port1, r.Port2, r.IPLow, r.IPHigh)
}

// ContainsIP reports whether ip falls within the switch's configured range.
func (r SwitchRecord) ContainsIP(ip int32) bool {
	return ip >= r.IPLow && ip <= r.IPHigh
}

// Topology is the chain of switches ordered from the port1 end to the port2 end.
type Topology struct {
	chain []SwitchRecord
}

func (t *Topology) Len() int {
	return len(t.chain)
}

// Records returns a copy of the chain in order.
func (t *Topology) Records() []SwitchRecord {
	return slices.Clone(t.chain)
}

func (t *Topology) Contains(number int32) bool {
	return t.indexOf(number) != -1
}

func (t *Topology) Get(number int32) (SwitchRecord, bool) {
	idx := t.indexOf(number)
	if idx == -1 {
		return SwitchRecord{}, false
	}
	return t.chain[idx], true
}

func (t *Topology) indexOf(number int32) int {
	return slices.IndexFunc(t.chain, func(r SwitchRecord) bool {
		return r.Number == number
	})
}

// Remove deletes a switch from the chain so it may rejoin later.
func (t *Topology) Remove(number int32) bool {
	idx := t.indexOf(number)
	if idx == -1 {
		return false
	}
	t.chain = slices.Delete(t.chain, idx, idx+1)
	return true
}

func (t *Topology) insert(idx int, rec SwitchRecord) {
	t.chain = slices.Insert(t.chain, idx, rec)
}

// Place inserts rec into the chain next to the switches it claims as neighbours.
// The chain is left untouched when an error is returned.
func (t *Topology) Place(rec SwitchRecord) error {
	fail := func(reason string) error {
		return &PlacementError{Switch: rec, Reason: reason}
	}
	if t.Contains(rec.Number) {
		return fail("switch number already in use")
	}
	if len(t.chain) == 0 {
		t.chain = append(t.chain, rec)
		return nil
	}

	p1Null, p2Null := rec.Port1 == NullPort, rec.Port2 == NullPort
	switch {
	case p1Null && p2Null:
		return fail("both ports are null but the network already has switches")
	case p1Null:
		if t.chain[0].Port1 == NullPort {
			return fail(fmt.Sprintf("sw%d already has a null port1", t.chain[0].Number))
		}
		t.insert(0, rec)
		return nil
	case p2Null:
		last := t.chain[len(t.chain)-1]
		if last.Port2 == NullPort {
			return fail(fmt.Sprintf("sw%d already has a null port2", last.Number))
		}
		t.chain = append(t.chain, rec)
		return nil
	}

	for i, cur := range t.chain {
		if cur.Port1 == NullPort && cur.Port2 == NullPort {
			return fail(fmt.Sprintf("sw%d has no ports to connect to", cur.Number))
		}
		if rec.Number == cur.Port1 {
			if rec.Port2 != cur.Number {
				return fail(fmt.Sprintf("sw%d expects sw%d on port1, but sw%d does not list it on port2", cur.Number, rec.Number, rec.Number))
			}
			t.insert(i, rec)
			return nil
		}
		if rec.Number == cur.Port2 {
			if rec.Port1 != cur.Number {
				return fail(fmt.Sprintf("sw%d expects sw%d on port2, but sw%d does not list it on port1", cur.Number, rec.Number, rec.Number))
			}
			t.insert(i+1, rec)
			return nil
		}
	}

	// no neighbour has joined yet, order by switch number and let Verify judge the result
	idx := slices.IndexFunc(t.chain, func(r SwitchRecord) bool {
		return r.Number > rec.Number
	})
	if idx == -1 {
		idx = len(t.chain)
	}
	t.insert(idx, rec)
	return nil
}

// Verify walks the chain and reports null endpoints or adjacency that do not line up.
func (t *Topology) Verify() error {
	var problems []string
	n := len(t.chain)
	if n == 0 {
		return nil
	}
	if t.chain[0].Port1 != NullPort {
		problems = append(problems, fmt.Sprintf("first switch sw%d has port1= %d, expected null", t.chain[0].Number, t.chain[0].Port1))
	}
	if t.chain[n-1].Port2 != NullPort {
		problems = append(problems, fmt.Sprintf("last switch sw%d has port2= %d, expected null", t.chain[n-1].Number, t.chain[n-1].Port2))
	}
	for i := 0; i+1 < n; i++ {
		a, b := t.chain[i], t.chain[i+1]
		if a.Port2 != b.Number || b.Port1 != a.Number {
			problems = append(problems, fmt.Sprintf("sw%d and sw%d are adjacent but not linked", a.Number, b.Number))
		}
	}
	if len(problems) != 0 {
		return &VerifyError{Problems: problems}
	}
	return nil
}
