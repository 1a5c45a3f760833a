package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 30*time.Second, cfg.Master.HeartbeatInterval)
	assert.Equal(t, 90*time.Second, cfg.Master.OfflineThreshold())
	assert.Equal(t, 5*time.Minute, cfg.Master.FailureTimeout)
	assert.Equal(t, "sub", cfg.Agent.Role)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PICCOLO_MASTER_IP", "192.168.10.1")
	t.Setenv("PICCOLO_NODE_ROLE", "master")
	t.Setenv("PICCOLO_HEARTBEAT_INTERVAL", "10")

	cfg, err := FromEnv(Default())
	require.NoError(t, err)
	assert.Equal(t, "192.168.10.1:47001", cfg.Agent.MasterAddr)
	assert.Equal(t, "master", cfg.Agent.Role)
	assert.Equal(t, 10*time.Second, cfg.Agent.HeartbeatInterval)
	assert.Equal(t, 30*time.Second, cfg.Master.OfflineThreshold())
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("PICCOLO_NODE_ROLE", "worker")
	_, err := FromEnv(Default())
	assert.Error(t, err)

	t.Setenv("PICCOLO_NODE_ROLE", "sub")
	t.Setenv("PICCOLO_HEARTBEAT_INTERVAL", "-5")
	_, err = FromEnv(Default())
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "piccolo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
master:
  etcd_endpoints: ["10.0.0.5:2379"]
  grpc_addr: ":48001"
log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.5:2379"}, cfg.Master.EtcdEndpoints)
	assert.Equal(t, ":48001", cfg.Master.GRPCAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Master.GRPCAddr, cfg.Master.GRPCAddr)
}
