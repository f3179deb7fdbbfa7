// Package config loads forgecore's component defaults from a YAML
// file, falling back to each component's built-in defaults when the
// file is absent or a section is omitted.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/forgecore/pkg/artifactstore"
	"github.com/cuemby/forgecore/pkg/failover"
	"github.com/cuemby/forgecore/pkg/idle"
	"github.com/cuemby/forgecore/pkg/jobtracker"
	"github.com/cuemby/forgecore/pkg/types"
)

// Config is the top-level, file-backed configuration for a forgecore
// node. Durations are expressed in milliseconds in the file to match
// the millisecond fields already used on the wire types
// (RegionConfig.CheckIntervalMs, and so on).
type Config struct {
	DataDir string `yaml:"dataDir"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	JobTracker struct {
		MaxHistory int `yaml:"maxHistory"`
	} `yaml:"jobTracker"`

	ArtifactStore struct {
		MaxAgeMs             int64 `yaml:"maxAgeMs"`
		MaxTotalSizeBytes    int64 `yaml:"maxTotalSizeBytes"`
		MaxPerJob            int   `yaml:"maxPerJob"`
		MaxArtifactSizeBytes int64 `yaml:"maxArtifactSizeBytes"`
	} `yaml:"artifactStore"`

	Idle struct {
		IdleTimeoutMs      int64 `yaml:"idleTimeoutMs"`
		MinSleepDurationMs int64 `yaml:"minSleepDurationMs"`
		WakeUpTimeMs       int64 `yaml:"wakeUpTimeMs"`
	} `yaml:"idle"`

	Failover struct {
		MaxEventHistory int              `yaml:"maxEventHistory"`
		Regions         []types.RegionConfig `yaml:"regions"`
	} `yaml:"failover"`

	Quotas []types.QuotaDefinition `yaml:"quotas"`
}

// Load reads and parses a YAML config file. A missing path is not an
// error: Default() is returned instead, since every component already
// knows its own defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a Config with every component's built-in defaults,
// equivalent to an empty YAML file.
func Default() *Config {
	cfg := &Config{DataDir: "./forgecore-data"}
	cfg.Log.Level = "info"
	cfg.JobTracker.MaxHistory = jobtracker.DefaultMaxHistory
	cfg.ArtifactStore.MaxAgeMs = artifactstore.DefaultMaxAge.Milliseconds()
	cfg.ArtifactStore.MaxTotalSizeBytes = artifactstore.DefaultMaxTotalSizeBytes
	cfg.ArtifactStore.MaxPerJob = artifactstore.DefaultMaxPerJob
	cfg.ArtifactStore.MaxArtifactSizeBytes = artifactstore.DefaultMaxArtifactSizeByte
	cfg.Idle.IdleTimeoutMs = idle.DefaultIdleTimeout.Milliseconds()
	cfg.Idle.MinSleepDurationMs = idle.DefaultMinSleepDuration.Milliseconds()
	cfg.Idle.WakeUpTimeMs = idle.DefaultWakeUpTime.Milliseconds()
	cfg.Failover.MaxEventHistory = failover.DefaultMaxEventHistory
	cfg.Metrics.Addr = "127.0.0.1:9090"
	return cfg
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ArtifactStoreConfig builds an artifactstore.Config from the loaded
// values.
func (c *Config) ArtifactStoreConfig() artifactstore.Config {
	return artifactstore.Config{
		MaxAge:               msToDuration(c.ArtifactStore.MaxAgeMs),
		MaxTotalSizeBytes:    c.ArtifactStore.MaxTotalSizeBytes,
		MaxPerJob:            c.ArtifactStore.MaxPerJob,
		MaxArtifactSizeBytes: c.ArtifactStore.MaxArtifactSizeBytes,
	}
}

// IdleConfig builds an idle.Config from the loaded values.
func (c *Config) IdleConfig() idle.Config {
	return idle.Config{
		IdleTimeout:      msToDuration(c.Idle.IdleTimeoutMs),
		MinSleepDuration: msToDuration(c.Idle.MinSleepDurationMs),
		WakeUpTime:       msToDuration(c.Idle.WakeUpTimeMs),
	}
}

// FailoverConfig builds a failover.Config from the loaded values.
func (c *Config) FailoverConfig() failover.Config {
	return failover.Config{MaxEventHistory: c.Failover.MaxEventHistory}
}

// JobTrackerConfig builds a jobtracker.Config from the loaded values.
func (c *Config) JobTrackerConfig() jobtracker.Config {
	return jobtracker.Config{MaxHistory: c.JobTracker.MaxHistory}
}
