package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/cuemby/muster/internal/errs"
	toml "github.com/pelletier/go-toml/v2"
)

// CoordinatorSection holds process timing and listener addresses.
type CoordinatorSection struct {
	RPCAddr             string        `toml:"rpc_addr"`
	ControlPlaneAddr    string        `toml:"control_plane_addr"`
	HeartbeatTimeout    time.Duration `toml:"heartbeat_timeout"`
	ShutdownGracePeriod time.Duration `toml:"shutdown_grace_period"`
	RingVirtualNodes    int           `toml:"ring_virtual_nodes"`
	CollectorInterval   time.Duration `toml:"collector_interval"`
}

// StorageSection selects and configures the checkpoint-index backend.
type StorageSection struct {
	Backend string `toml:"backend"` // "file" or "bolt"
	DataDir string `toml:"data_dir"`
}

// LimitsSection holds the rate limiter's token-bucket parameters.
type LimitsSection struct {
	RateLimitBurst           int     `toml:"rate_limit_burst"`
	RateLimitRefillPerSecond float64 `toml:"rate_limit_refill_per_second"`
}

// Config is the coordinator's full startup configuration, decoded from
// coordinator.toml and then overridden by environment variables.
type Config struct {
	Coordinator CoordinatorSection `toml:"coordinator"`
	Storage     StorageSection     `toml:"storage"`
	Limits      LimitsSection      `toml:"limits"`
	DemoMode    bool               `toml:"-"`
}

// Defaults returns the configuration used when coordinator.toml is absent
// and no environment overrides are set.
func Defaults() *Config {
	return &Config{
		Coordinator: CoordinatorSection{
			RPCAddr:             "0.0.0.0:9090",
			ControlPlaneAddr:    "0.0.0.0:8080",
			HeartbeatTimeout:    30 * time.Second,
			ShutdownGracePeriod: 10 * time.Second,
			RingVirtualNodes:    150,
			CollectorInterval:   15 * time.Second,
		},
		Storage: StorageSection{
			Backend: "file",
			DataDir: "./data",
		},
		Limits: LimitsSection{
			RateLimitBurst:           64,
			RateLimitRefillPerSecond: 32,
		},
	}
}

// Load reads path (if it exists — a missing file is not an error, the
// coordinator falls back to Defaults), applies environment overrides, and
// validates the result. An empty path skips the file read entirely.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, errs.Wrap(errs.Invalid, "parse "+path, err)
			}
		case os.IsNotExist(err):
			// Fall through to defaults plus env overrides.
		default:
			return nil, errs.Wrap(errs.Internal, "read "+path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("MUSTER_RPC_ADDR"); ok {
		cfg.Coordinator.RPCAddr = v
	}
	if v, ok := os.LookupEnv("MUSTER_CONTROL_PLANE_ADDR"); ok {
		cfg.Coordinator.ControlPlaneAddr = v
	}
	if v, ok := os.LookupEnv("MUSTER_HEARTBEAT_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Coordinator.HeartbeatTimeout = d
		}
	}
	if v, ok := os.LookupEnv("MUSTER_SHUTDOWN_GRACE_PERIOD"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Coordinator.ShutdownGracePeriod = d
		}
	}
	if v, ok := os.LookupEnv("MUSTER_RING_VIRTUAL_NODES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Coordinator.RingVirtualNodes = n
		}
	}
	if v, ok := os.LookupEnv("MUSTER_STORAGE_BACKEND"); ok {
		cfg.Storage.Backend = v
	}
	if v, ok := os.LookupEnv("MUSTER_DATA_DIR"); ok {
		cfg.Storage.DataDir = v
	}
	if v, ok := os.LookupEnv("MUSTER_RATE_LIMIT_BURST"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.RateLimitBurst = n
		}
	}
	if v, ok := os.LookupEnv("MUSTER_RATE_LIMIT_REFILL_PER_SECOND"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Limits.RateLimitRefillPerSecond = f
		}
	}
	if v, ok := os.LookupEnv("MUSTER_DEMO_MODE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DemoMode = b
		}
	}
}

// Validate rejects a configuration before any listener opens: an
// unparseable bind address, a non-positive timeout, or an unrecognized
// storage backend are all fail-fast configuration errors, never surfaced
// as a later runtime failure.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Coordinator.RPCAddr); err != nil {
		return errs.Wrap(errs.Invalid, "coordinator.rpc_addr is not a valid address", err)
	}
	if _, _, err := net.SplitHostPort(c.Coordinator.ControlPlaneAddr); err != nil {
		return errs.Wrap(errs.Invalid, "coordinator.control_plane_addr is not a valid address", err)
	}
	if c.Coordinator.HeartbeatTimeout <= 0 {
		return errs.New(errs.Invalid, "coordinator.heartbeat_timeout must be positive")
	}
	if c.Coordinator.ShutdownGracePeriod <= 0 {
		return errs.New(errs.Invalid, "coordinator.shutdown_grace_period must be positive")
	}
	if c.Coordinator.RingVirtualNodes <= 0 {
		return errs.New(errs.Invalid, "coordinator.ring_virtual_nodes must be positive")
	}
	if c.Coordinator.CollectorInterval <= 0 {
		return errs.New(errs.Invalid, "coordinator.collector_interval must be positive")
	}
	switch c.Storage.Backend {
	case "file", "bolt":
	default:
		return errs.Newf(errs.Invalid, "storage.backend %q is not one of file, bolt", c.Storage.Backend)
	}
	if c.Storage.DataDir == "" {
		return errs.New(errs.Invalid, "storage.data_dir must not be empty")
	}
	if c.Limits.RateLimitBurst <= 0 {
		return errs.New(errs.Invalid, "limits.rate_limit_burst must be positive")
	}
	if c.Limits.RateLimitRefillPerSecond <= 0 {
		return errs.New(errs.Invalid, "limits.rate_limit_refill_per_second must be positive")
	}
	return nil
}
