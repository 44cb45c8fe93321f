package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvPrefix prefixes every environment variable the tool reads
const EnvPrefix = "GLUSTER_RECONCILER_"

// Config holds the tool settings. Values come from defaults, then the
// optional YAML file, then the environment.
type Config struct {
	// Gluster is the gluster admin CLI to run
	Gluster string `yaml:"gluster" env:"GLUSTER_RECONCILER_GLUSTER" env-default:"gluster"`

	// DataDir holds the run history database
	DataDir string `yaml:"dataDir" env:"GLUSTER_RECONCILER_DATA_DIR" env-default:"/var/lib/gluster-reconciler"`

	// HistoryLimit is the number of runs kept; negative disables history
	HistoryLimit int `yaml:"historyLimit" env:"GLUSTER_RECONCILER_HISTORY_LIMIT" env-default:"100"`

	Log struct {
		Level string `yaml:"level" env:"GLUSTER_RECONCILER_LOG_LEVEL" env-default:"info"`
		JSON  bool   `yaml:"json" env:"GLUSTER_RECONCILER_LOG_JSON" env-default:"false"`
	} `yaml:"log"`

	// Peer confirmation polling after a probe
	Confirm struct {
		Attempts uint          `yaml:"attempts" env:"GLUSTER_RECONCILER_CONFIRM_ATTEMPTS" env-default:"10"`
		Delay    time.Duration `yaml:"delay" env:"GLUSTER_RECONCILER_CONFIRM_DELAY" env-default:"2s"`
	} `yaml:"confirm"`

	// LocalPeerAliases are prepended to the discovered host facts
	LocalPeerAliases []string `yaml:"localPeerAliases" env:"GLUSTER_RECONCILER_LOCAL_PEER_ALIASES" env-separator:","`

	Watch struct {
		Interval    time.Duration `yaml:"interval" env:"GLUSTER_RECONCILER_WATCH_INTERVAL" env-default:"30s"`
		MetricsAddr string        `yaml:"metricsAddr" env:"GLUSTER_RECONCILER_METRICS_ADDR" env-default:":9105"`
	} `yaml:"watch"`
}

// Load reads the settings. path may be empty, in which case only defaults
// and environment are used.
func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the types cannot express
func (c *Config) Validate() error {
	if c.Gluster == "" {
		return fmt.Errorf("gluster binary must not be empty")
	}
	if c.Confirm.Attempts == 0 {
		return fmt.Errorf("confirm.attempts must be at least 1")
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive")
	}
	return nil
}

// HistoryEnabled reports whether runs are recorded
func (c *Config) HistoryEnabled() bool {
	return c.HistoryLimit >= 0
}

// Usage describes the environment variables, for --help output
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
