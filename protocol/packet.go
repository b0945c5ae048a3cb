package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Kind identifies the payload carried by a Packet.
type Kind uint8

const (
	Open Kind = iota
	Ack
	Query
	Add
	Relay
	Admit
	// RelayIn and RelayOut only label statistics for Relay, they never appear on the wire.
	RelayIn
	RelayOut
	QueuedQuery
	QueuedRelay
	Exit

	numKinds
)

var kindNames = [numKinds]string{
	"OPEN", "ACK", "QUERY", "ADD", "RELAY", "ADMIT",
	"RELAYIN", "RELAYOUT", "QUEUEDQUERY", "QUEUEDRELAY", "EXIT",
}

func (k Kind) String() string {
	if k >= numKinds {
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
	return kindNames[k]
}

// Valid reports whether k is a kind that may be encoded on the wire.
func (k Kind) Valid() bool {
	return k < numKinds && k != RelayIn && k != RelayOut
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

type Action int32

const (
	Drop Action = iota
	Forward
)

func (a Action) String() string {
	switch a {
	case Drop:
		return "DROP"
	case Forward:
		return "FORWARD"
	}
	return fmt.Sprintf("ACTION(%d)", int32(a))
}

// Payload is implemented by OpenPayload, QueryRelayPayload and FlowRule.
type Payload interface {
	fmt.Stringer
	putSlots(slots *[slotCount]int32)
	getSlots(slots *[slotCount]int32)
}

// OpenPayload is sent by a switch when it joins the network.
type OpenPayload struct {
	SwitchNumber int32
	Port1        int32
	Port2        int32
	IPLow        int32
	IPHigh       int32
}

func (o *OpenPayload) String() string {
	return fmt.Sprintf("(sw%d port1= %d, port2= %d, port3= %d-%d)", o.SwitchNumber, o.Port1, o.Port2, o.IPLow, o.IPHigh)
}

func (o *OpenPayload) putSlots(s *[slotCount]int32) {
	s[0], s[1], s[2], s[3], s[4] = o.SwitchNumber, o.Port1, o.Port2, o.IPLow, o.IPHigh
}

func (o *OpenPayload) getSlots(s *[slotCount]int32) {
	o.SwitchNumber, o.Port1, o.Port2, o.IPLow, o.IPHigh = s[0], s[1], s[2], s[3], s[4]
}

// QueryRelayPayload is shared by QUERY, RELAY, ADMIT, QUEUEDQUERY and QUEUEDRELAY.
// SendingSwitch is only meaningful for queries.
type QueryRelayPayload struct {
	SendingSwitch int32
	SrcIP         int32
	DestIP        int32
}

func (q *QueryRelayPayload) String() string {
	return fmt.Sprintf("(srcIP= %d, destIP= %d)", q.SrcIP, q.DestIP)
}

func (q *QueryRelayPayload) putSlots(s *[slotCount]int32) {
	s[0], s[1], s[2] = q.SendingSwitch, q.SrcIP, q.DestIP
}

func (q *QueryRelayPayload) getSlots(s *[slotCount]int32) {
	q.SendingSwitch, q.SrcIP, q.DestIP = s[0], s[1], s[2]
}

// FlowRule is a flow table entry, and the payload of ADD.
type FlowRule struct {
	SrcLow   int32
	SrcHigh  int32
	DestLow  int32
	DestHigh int32
	Action   Action
	OutPort  int32
	Priority int32
	HitCount int32
}

func (r *FlowRule) String() string {
	return fmt.Sprintf("(srcIP= %d-%d, destIP= %d-%d, action= %s:%d, pri= %d, pktCount= %d)",
		r.SrcLow, r.SrcHigh, r.DestLow, r.DestHigh, r.Action, r.OutPort, r.Priority, r.HitCount)
}

// SameAs compares every field except HitCount.
func (r FlowRule) SameAs(o FlowRule) bool {
	r.HitCount = o.HitCount
	return r == o
}

// Matches reports whether (src, dst) falls within both of the rule's ranges.
func (r FlowRule) Matches(src, dst int32) bool {
	return src >= r.SrcLow && src <= r.SrcHigh && dst >= r.DestLow && dst <= r.DestHigh
}

func (r *FlowRule) putSlots(s *[slotCount]int32) {
	s[0], s[1], s[2], s[3] = r.SrcLow, r.SrcHigh, r.DestLow, r.DestHigh
	s[4], s[5], s[6], s[7] = int32(r.Action), r.OutPort, r.Priority, r.HitCount
}

func (r *FlowRule) getSlots(s *[slotCount]int32) {
	r.SrcLow, r.SrcHigh, r.DestLow, r.DestHigh = s[0], s[1], s[2], s[3]
	r.Action, r.OutPort, r.Priority, r.HitCount = Action(s[4]), s[5], s[6], s[7]
}

// Packet is a tagged union of a Kind and the payload that kind carries.
// ACK and EXIT carry no payload.
type Packet struct {
	Kind    Kind
	Payload Payload
}

func NewOpen(o OpenPayload) Packet {
	return Packet{Kind: Open, Payload: &o}
}

func NewAck() Packet {
	return Packet{Kind: Ack}
}

func NewExit() Packet {
	return Packet{Kind: Exit}
}

func NewAdd(rule FlowRule) Packet {
	return Packet{Kind: Add, Payload: &rule}
}

// NewQueryRelay builds a packet of one of the query/relay kinds.
func NewQueryRelay(kind Kind, sending, src, dst int32) Packet {
	return Packet{Kind: kind, Payload: &QueryRelayPayload{SendingSwitch: sending, SrcIP: src, DestIP: dst}}
}

// Open returns the OPEN payload, or nil if the packet carries something else.
func (p Packet) Open() *OpenPayload {
	o, _ := p.Payload.(*OpenPayload)
	return o
}

func (p Packet) QueryRelay() *QueryRelayPayload {
	q, _ := p.Payload.(*QueryRelayPayload)
	return q
}

func (p Packet) Rule() *FlowRule {
	r, _ := p.Payload.(*FlowRule)
	return r
}

// WithKind returns a copy of p re-tagged as kind, sharing a copied payload.
func (p Packet) WithKind(kind Kind) Packet {
	out := Packet{Kind: kind}
	switch v := p.Payload.(type) {
	case *OpenPayload:
		c := *v
		out.Payload = &c
	case *QueryRelayPayload:
		c := *v
		out.Payload = &c
	case *FlowRule:
		c := *v
		out.Payload = &c
	}
	return out
}

func (p Packet) String() string {
	if p.Payload == nil {
		return "[" + p.Kind.String() + "]"
	}
	return "[" + p.Kind.String() + "] " + p.Payload.String()
}

// payloadFor returns an empty payload of the shape that kind carries.
func payloadFor(kind Kind) Payload {
	switch kind {
	case Open:
		return &OpenPayload{}
	case Query, Relay, Admit, QueuedQuery, QueuedRelay:
		return &QueryRelayPayload{}
	case Add:
		return &FlowRule{}
	}
	return nil
}

func payloadMatches(kind Kind, payload Payload) bool {
	switch payload.(type) {
	case nil:
		return kind == Ack || kind == Exit
	case *OpenPayload:
		return kind == Open
	case *QueryRelayPayload:
		return kind == Query || kind == Relay || kind == Admit || kind == QueuedQuery || kind == QueuedRelay
	case *FlowRule:
		return kind == Add
	}
	return false
}

const (
	// Version is written into every record.
	Version = 1

	headerSize = 4
	slotCount  = 8
	// RecordSize is the fixed size of an encoded packet.
	RecordSize = headerSize + slotCount*4
)

// DecodeError describes a record that could not be decoded.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "invalid packet: " + e.Reason
}

func (p Packet) MarshalBinary() ([]byte, error) {
	if !p.Kind.Valid() {
		return nil, &DecodeError{Reason: fmt.Sprintf("kind %s cannot be sent", p.Kind)}
	}
	if !payloadMatches(p.Kind, p.Payload) {
		return nil, &DecodeError{Reason: fmt.Sprintf("kind %s with payload %T", p.Kind, p.Payload)}
	}

	v := make([]byte, RecordSize)
	v[0] = Version
	v[1] = uint8(p.Kind)
	var slots [slotCount]int32
	if p.Payload != nil {
		p.Payload.putSlots(&slots)
	}
	for i, s := range slots {
		binary.BigEndian.PutUint32(v[headerSize+i*4:], uint32(s))
	}
	return v, nil
}

func (p *Packet) UnmarshalBinary(data []byte) error {
	if len(data) < RecordSize {
		return &DecodeError{Reason: fmt.Sprintf("short record of %d bytes", len(data))}
	}
	if data[0] != Version {
		return &DecodeError{Reason: fmt.Sprintf("unsupported version %d", data[0])}
	}
	kind := Kind(data[1])
	if !kind.Valid() {
		return &DecodeError{Reason: fmt.Sprintf("unknown kind %d", data[1])}
	}
	var slots [slotCount]int32
	for i := range slots {
		slots[i] = int32(binary.BigEndian.Uint32(data[headerSize+i*4:]))
	}
	p.Kind = kind
	p.Payload = payloadFor(kind)
	if p.Payload != nil {
		p.Payload.getSlots(&slots)
	}
	return nil
}

// ReadPacket reads exactly one record from r.
func ReadPacket(r io.Reader) (Packet, error) {
	buf := make([]byte, RecordSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Packet{}, err
	}
	var p Packet
	err := p.UnmarshalBinary(buf)
	return p, err
}

// WritePacket writes p to w as a single record.
func WritePacket(w io.Writer, p Packet) error {
	out, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
