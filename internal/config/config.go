package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nearhome/stream-gateway/internal/platform/paths"
)

// Defaults for the data plane. Every knob is overridable via STREAM_* env
// vars; a YAML file (STREAM_CONFIG_FILE) may supply base values that env
// vars override.
const (
	DefaultListenAddr    = ":8090"
	DefaultTokenSecret   = "dev-secret-do-not-use-in-prod"
	DefaultProbeInterval = 5000 * time.Millisecond
	DefaultIdleTTL       = 60000 * time.Millisecond
	DefaultSweepInterval = 5000 * time.Millisecond
	DefaultReadRetryBase = 25 * time.Millisecond
	DefaultReadRetryMax  = 250 * time.Millisecond
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	StorageDir string `yaml:"storage_dir"`

	TokenSecret     string `yaml:"token_secret"`
	TokenSecretFile string `yaml:"token_secret_file"`

	ProbeInterval time.Duration `yaml:"-"`
	IdleTTL       time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`

	ReadRetries   int           `yaml:"read_retries"`
	ReadRetryBase time.Duration `yaml:"-"`
	ReadRetryMax  time.Duration `yaml:"-"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	NATSURL       string `yaml:"nats_url"`
	NATSSubject   string `yaml:"nats_subject"`

	// Millisecond fields for the YAML form; merged into the Duration
	// fields during Load.
	ProbeIntervalMs int `yaml:"probe_interval_ms"`
	IdleTTLMs       int `yaml:"session_idle_ttl_ms"`
	SweepIntervalMs int `yaml:"session_sweep_ms"`
	ReadRetryBaseMs int `yaml:"read_retry_base_ms"`
	ReadRetryMaxMs  int `yaml:"read_retry_max_ms"`
}

// Load resolves configuration from the optional YAML file, then env vars,
// then defaults. It never fails on a missing file path from the default
// location; an explicit STREAM_CONFIG_FILE that cannot be parsed is an error.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("STREAM_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.ListenAddr = envStr("STREAM_LISTEN_ADDR", cfg.ListenAddr, DefaultListenAddr)
	cfg.StorageDir = paths.ResolveStorageRoot(cfg.StorageDir)
	cfg.TokenSecret = envStr("STREAM_TOKEN_SECRET", cfg.TokenSecret, DefaultTokenSecret)
	cfg.TokenSecretFile = envStr("STREAM_TOKEN_SECRET_FILE", cfg.TokenSecretFile, "")

	cfg.ProbeInterval = envMs("STREAM_PROBE_INTERVAL_MS", cfg.ProbeIntervalMs, DefaultProbeInterval)
	cfg.IdleTTL = envMs("STREAM_SESSION_IDLE_TTL_MS", cfg.IdleTTLMs, DefaultIdleTTL)
	cfg.SweepInterval = envMs("STREAM_SESSION_SWEEP_MS", cfg.SweepIntervalMs, DefaultSweepInterval)

	cfg.ReadRetries = envInt("STREAM_PLAYBACK_READ_RETRIES", cfg.ReadRetries, 0)
	cfg.ReadRetryBase = envMs("STREAM_PLAYBACK_READ_RETRY_BASE_MS", cfg.ReadRetryBaseMs, DefaultReadRetryBase)
	cfg.ReadRetryMax = envMs("STREAM_PLAYBACK_READ_RETRY_MAX_MS", cfg.ReadRetryMaxMs, DefaultReadRetryMax)

	cfg.RedisAddr = envStr("STREAM_REDIS_ADDR", cfg.RedisAddr, "")
	cfg.RedisPassword = envStr("STREAM_REDIS_PASSWORD", cfg.RedisPassword, "")
	cfg.NATSURL = envStr("STREAM_NATS_URL", cfg.NATSURL, "")
	cfg.NATSSubject = envStr("STREAM_NATS_SUBJECT", cfg.NATSSubject, "nearhome.stream.events")

	return cfg, nil
}

func envStr(key, fileVal, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if fileVal != "" {
		return fileVal
	}
	return def
}

func envInt(key string, fileVal, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	if fileVal > 0 {
		return fileVal
	}
	return def
}

func envMs(key string, fileValMs int, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	if fileValMs > 0 {
		return time.Duration(fileValMs) * time.Millisecond
	}
	return def
}
