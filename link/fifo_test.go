//go:build unix

package link

import (
	"os"
	"testing"

	"github.com/encodeous/chainsdn/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFifoLinkPair(t *testing.T) {
	dir := t.TempDir()

	// opening succeeds before the neighbour exists
	a, err := OpenFifoLink(dir, 1, 2)
	require.NoError(t, err)
	b, err := OpenFifoLink(dir, 2, 1)
	require.NoError(t, err)

	for _, name := range []string{FifoName(dir, 1, 2), FifoName(dir, 2, 1)} {
		st, err := os.Stat(name)
		require.NoError(t, err)
		assert.Equal(t, os.ModeNamedPipe, st.Mode().Type())
	}

	relay := protocol.NewQueryRelay(protocol.Relay, 0, 10, 600)
	require.NoError(t, a.WritePacket(relay))
	got, err := b.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, relay, got)

	require.NoError(t, b.WritePacket(protocol.NewQueryRelay(protocol.Relay, 0, 600, 10)))
	got, err = a.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, int32(600), got.QueryRelay().SrcIP)
	assert.Equal(t, int32(2), a.Peer)

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
}

func TestFifoCloseUnblocksReader(t *testing.T) {
	a, err := OpenFifoLink(t.TempDir(), 3, 4)
	require.NoError(t, err)

	done := make(chan error)
	go func() {
		_, err := a.ReadPacket()
		done <- err
	}()
	require.NoError(t, a.Close())
	assert.True(t, IsClosed(<-done))
}

func TestFifoName(t *testing.T) {
	assert.Equal(t, "x/fifo-1-2", FifoName("x", 1, 2))
}
