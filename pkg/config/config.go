package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for timing and addressing. The heartbeat interval drives the
// offline threshold: a node is Offline after OfflineFactor missed intervals.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultScanInterval      = 10 * time.Second
	DefaultFailureTimeout    = 5 * time.Minute
	DefaultMetadataTimeout   = 30 * time.Second
	DefaultReconcileCeiling  = 5 * time.Minute
	DefaultConnectTimeout    = 5 * time.Second
	DefaultRequestTimeout    = 10 * time.Second

	OfflineFactor = 3

	DefaultGRPCAddr  = ":47001"
	DefaultRESTAddr  = ":47099"
	DefaultAgentAddr = ":47002"
)

// Master holds configuration for the master-side components.
type Master struct {
	EtcdEndpoints []string `yaml:"etcd_endpoints"`
	GRPCAddr      string   `yaml:"grpc_addr"`
	RESTAddr      string   `yaml:"rest_addr"`

	// ActionControllerAddr is the gRPC endpoint reconcile requests are
	// dispatched to. Empty disables dispatch (dev mode).
	ActionControllerAddr string `yaml:"action_controller_addr"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ScanInterval      time.Duration `yaml:"scan_interval"`
	FailureTimeout    time.Duration `yaml:"failure_timeout"`
	MetadataTimeout   time.Duration `yaml:"metadata_timeout"`
	ReconcileCeiling  time.Duration `yaml:"reconcile_ceiling"`
}

// OfflineThreshold is how long a node may go without a heartbeat before the
// liveness scanner marks it Offline.
func (m Master) OfflineThreshold() time.Duration {
	return OfflineFactor * m.HeartbeatInterval
}

// Agent holds configuration for the node agent.
type Agent struct {
	MasterAddr        string        `yaml:"master_addr"`
	NodeName          string        `yaml:"node_name"`
	Role              string        `yaml:"role"`
	ListenAddr        string        `yaml:"listen_addr"`
	DataDir           string        `yaml:"data_dir"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// Config is the immutable process configuration, passed by value into
// component constructors.
type Config struct {
	Master Master `yaml:"master"`
	Agent  Agent  `yaml:"agent"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Master: Master{
			EtcdEndpoints:     []string{"127.0.0.1:2379"},
			GRPCAddr:          DefaultGRPCAddr,
			RESTAddr:          DefaultRESTAddr,
			HeartbeatInterval: DefaultHeartbeatInterval,
			ScanInterval:      DefaultScanInterval,
			FailureTimeout:    DefaultFailureTimeout,
			MetadataTimeout:   DefaultMetadataTimeout,
			ReconcileCeiling:  DefaultReconcileCeiling,
		},
		Agent: Agent{
			ListenAddr:        DefaultAgentAddr,
			DataDir:           "/var/lib/piccolo",
			Role:              "sub",
			HeartbeatInterval: DefaultHeartbeatInterval,
		},
		LogLevel: "info",
	}
}

// FromEnv layers PICCOLO_* environment variables over cfg and returns the
// result. Unset variables leave the existing value untouched.
func FromEnv(cfg Config) (Config, error) {
	if v := os.Getenv("PICCOLO_ETCD_ENDPOINTS"); v != "" {
		cfg.Master.EtcdEndpoints = strings.Split(v, ",")
	}
	if v := os.Getenv("PICCOLO_GRPC_ADDR"); v != "" {
		cfg.Master.GRPCAddr = v
	}
	if v := os.Getenv("PICCOLO_REST_ADDR"); v != "" {
		cfg.Master.RESTAddr = v
	}
	if v := os.Getenv("PICCOLO_MASTER_IP"); v != "" {
		// The agent talks to the master's gRPC port on this host.
		cfg.Agent.MasterAddr = v + DefaultGRPCAddr
	}
	if v := os.Getenv("PICCOLO_NODE_ROLE"); v != "" {
		if v != "sub" && v != "master" {
			return cfg, fmt.Errorf("PICCOLO_NODE_ROLE must be 'sub' or 'master', got %q", v)
		}
		cfg.Agent.Role = v
	}
	if v := os.Getenv("PICCOLO_HEARTBEAT_INTERVAL"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return cfg, fmt.Errorf("PICCOLO_HEARTBEAT_INTERVAL must be a positive integer of seconds, got %q", v)
		}
		cfg.Agent.HeartbeatInterval = time.Duration(secs) * time.Second
		cfg.Master.HeartbeatInterval = time.Duration(secs) * time.Second
	}
	return cfg, nil
}

// Load reads a YAML config file over the defaults. A missing path is not an
// error; env vars are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	return FromEnv(cfg)
}
