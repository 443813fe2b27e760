package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"netexplorer/core-go/internal/graphs"
)

const (
	DefaultHTTPAddr        = ":8081"
	DefaultLogLevel        = "info"
	DefaultTrackerTimeout  = 10 * time.Second
	DefaultRefreshInterval = 60 * time.Second
	DefaultSearchLimit     = 100
	DefaultSNMPPort        = 161
	DefaultSNMPTimeout     = 900 * time.Millisecond
)

// Config holds every setting of the explorer core process.
type Config struct {
	HTTPAddr        string         `yaml:"http_addr"`
	LogLevel        string         `yaml:"log_level"`
	DatabaseURL     string         `yaml:"database_url"`
	Trackers        TrackersConfig `yaml:"trackers"`
	RefreshInterval time.Duration  `yaml:"refresh_interval"`
	SearchLimit     int            `yaml:"search_limit"`
	Graphs          GraphsConfig   `yaml:"graphs"`
	SNMP            SNMPConfig     `yaml:"snmp"`
}

type TrackerConfig struct {
	ID   string `yaml:"id"`
	HTTP string `yaml:"http"`
	WS   string `yaml:"ws"`
}

// TrackersConfig selects where trackers come from. The first non-empty of
// Static, RegistryURL and DNSSRV is used.
type TrackersConfig struct {
	Static      []TrackerConfig `yaml:"static"`
	RegistryURL string          `yaml:"registry_url"`
	DNSSRV      string          `yaml:"dns_srv"`
	DNSServer   string          `yaml:"dns_server"`
	Timeout     time.Duration   `yaml:"timeout"`
}

type GraphsConfig struct {
	Intervals []string `yaml:"intervals"`
	Initial   string   `yaml:"initial"`
	Disabled  bool     `yaml:"disabled"`
}

// SNMPConfig enables SNMP stats for nodes listed in Targets (node id to
// management address).
type SNMPConfig struct {
	Community string            `yaml:"community"`
	Version   string            `yaml:"version"`
	Port      uint16            `yaml:"port"`
	Timeout   time.Duration     `yaml:"timeout"`
	Retries   int               `yaml:"retries"`
	Targets   map[string]string `yaml:"targets"`
}

// Load reads a YAML config file. An empty path yields the defaults. Env
// overrides and defaults are applied.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	ApplyEnv(&cfg, os.Getenv)
	ApplyDefaults(&cfg)
	return cfg, nil
}

// ApplyEnv overrides file settings with non-empty environment values.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getenv("TRACKER_REGISTRY_URL"); v != "" {
		cfg.Trackers.RegistryURL = v
	}
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Trackers.Timeout <= 0 {
		cfg.Trackers.Timeout = DefaultTrackerTimeout
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if len(cfg.Graphs.Intervals) == 0 {
		for _, i := range graphs.AllIntervals {
			cfg.Graphs.Intervals = append(cfg.Graphs.Intervals, string(i))
		}
	}
	if cfg.Graphs.Initial == "" {
		cfg.Graphs.Initial = string(graphs.Interval24Hours)
	}
	if cfg.SNMP.Community == "" {
		cfg.SNMP.Community = "public"
	}
	if cfg.SNMP.Version == "" {
		cfg.SNMP.Version = "2c"
	}
	if cfg.SNMP.Port == 0 {
		cfg.SNMP.Port = DefaultSNMPPort
	}
	if cfg.SNMP.Timeout <= 0 {
		cfg.SNMP.Timeout = DefaultSNMPTimeout
	}
}

// Validate checks a config after defaults were applied.
func Validate(cfg Config) error {
	var errs []error

	options, err := cfg.Intervals()
	if err != nil {
		errs = append(errs, err)
	}
	initial, err := graphs.ParseInterval(cfg.Graphs.Initial)
	if err != nil {
		errs = append(errs, fmt.Errorf("graphs.initial: %w", err))
	} else if options != nil && !containsInterval(options, initial) {
		errs = append(errs, fmt.Errorf("graphs.initial %q is not one of graphs.intervals", initial))
	}

	if len(cfg.Trackers.Static) == 0 && strings.TrimSpace(cfg.Trackers.RegistryURL) == "" && strings.TrimSpace(cfg.Trackers.DNSSRV) == "" {
		errs = append(errs, errors.New("one of trackers.static, trackers.registry_url or trackers.dns_srv is required"))
	}
	for i, t := range cfg.Trackers.Static {
		if strings.TrimSpace(t.HTTP) == "" {
			errs = append(errs, fmt.Errorf("trackers.static[%d].http is required", i))
		}
	}

	switch strings.ToLower(cfg.SNMP.Version) {
	case "", "1", "v1", "2c", "v2c":
	default:
		errs = append(errs, fmt.Errorf("snmp.version %q is not supported", cfg.SNMP.Version))
	}

	return errors.Join(errs...)
}

// Intervals parses graphs.intervals.
func (c Config) Intervals() ([]graphs.Interval, error) {
	out := make([]graphs.Interval, 0, len(c.Graphs.Intervals))
	for _, s := range c.Graphs.Intervals {
		i, err := graphs.ParseInterval(s)
		if err != nil {
			return nil, fmt.Errorf("graphs.intervals: %w", err)
		}
		out = append(out, i)
	}
	return out, nil
}

func containsInterval(list []graphs.Interval, i graphs.Interval) bool {
	for _, o := range list {
		if o == i {
			return true
		}
	}
	return false
}
