package link

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/encodeous/chainsdn/protocol"
	"github.com/google/uuid"
)

// FifoName is the path of the pipe carrying packets from switch from to switch to.
func FifoName(dir string, from, to int32) string {
	return filepath.Join(dir, fmt.Sprintf("fifo-%d-%d", from, to))
}

// FifoLink joins two neighbouring switches with a pair of named pipes.
type FifoLink struct {
	id    uuid.UUID
	Peer  int32
	in    *os.File
	out   *os.File
	mutex sync.Mutex
}

// OpenFifoLink opens the pipes between self and peer in dir, creating them when missing.
// Opening never waits for the peer to appear.
func OpenFifoLink(dir string, self, peer int32) (*FifoLink, error) {
	in, err := openFifo(FifoName(dir, peer, self))
	if err != nil {
		return nil, err
	}
	out, err := openFifo(FifoName(dir, self, peer))
	if err != nil {
		in.Close()
		return nil, err
	}
	return &FifoLink{id: uuid.New(), Peer: peer, in: in, out: out}, nil
}

func (f *FifoLink) Id() uuid.UUID {
	return f.id
}

func (f *FifoLink) ReadPacket() (protocol.Packet, error) {
	return protocol.ReadPacket(f.in)
}

func (f *FifoLink) WritePacket(p protocol.Packet) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return protocol.WritePacket(f.out, p)
}

func (f *FifoLink) Close() error {
	err := f.in.Close()
	if err2 := f.out.Close(); err == nil {
		err = err2
	}
	return err
}
