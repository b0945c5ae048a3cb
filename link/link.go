package link

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"github.com/encodeous/chainsdn/protocol"
	"github.com/google/uuid"
)

// Link carries packets between two nodes. ReadPacket must only be called from one goroutine,
// WritePacket may be called from any.
type Link interface {
	Id() uuid.UUID
	ReadPacket() (protocol.Packet, error)
	WritePacket(p protocol.Packet) error
	Close() error
}

// IsClosed reports whether err means the other side went away or the link was closed locally.
func IsClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed)
}

// StreamLink frames packets over a byte stream such as a TCP connection.
type StreamLink struct {
	id      uuid.UUID
	channel io.ReadWriteCloser
	reader  *bufio.Reader
	mutex   sync.Mutex
}

func NewStreamLink(channel io.ReadWriteCloser) *StreamLink {
	return &StreamLink{
		id:      uuid.New(),
		channel: channel,
		reader:  bufio.NewReaderSize(channel, protocol.RecordSize*64),
	}
}

func (s *StreamLink) Id() uuid.UUID {
	return s.id
}

func (s *StreamLink) ReadPacket() (protocol.Packet, error) {
	return protocol.ReadPacket(s.reader)
}

func (s *StreamLink) WritePacket(p protocol.Packet) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return protocol.WritePacket(s.channel, p)
}

func (s *StreamLink) Close() error {
	return s.channel.Close()
}

// RemoteAddr returns the peer address when the stream is a network connection.
func (s *StreamLink) RemoteAddr() string {
	if c, ok := s.channel.(net.Conn); ok {
		return c.RemoteAddr().String()
	}
	return ""
}
