package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLocalConfigDefaults(t *testing.T) {
	cfg, err := ReadLocalConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocalCfg(), cfg)
	assert.Equal(t, ".", cfg.FifoDir)
	assert.Equal(t, ConnectMaxRetries, cfg.Connect.MaxRetries)
}

func TestReadLocalConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fifo_dir: /tmp/fifos
strict_verify: true
pending_query_ttl: 5s
connect:
  max_retries: 3
`), 0600))

	cfg, err := ReadLocalConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/fifos", cfg.FifoDir)
	assert.True(t, cfg.StrictVerify)
	assert.Equal(t, 5*time.Second, cfg.PendingTTL)
	assert.Equal(t, uint64(3), cfg.Connect.MaxRetries)
	assert.Equal(t, ConnectInitialInterval, cfg.Connect.InitialInterval)
	assert.Empty(t, cfg.LogPath)
}

func TestReadLocalConfigErrors(t *testing.T) {
	_, err := ReadLocalConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strict_verify: [1, 2\n"), 0600))
	_, err = ReadLocalConfig(path)
	assert.Error(t, err)
}
