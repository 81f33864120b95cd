// Package config defines the coordinator and worker settings, their defaults,
// and YAML loading.
package config

import (
	"fmt"
	"time"

	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/pool"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/prime"
)

// DefaultPort is the worker listening port when none is specified.
const DefaultPort = 65000

// DefaultRunMinutes is how long a timed coordinator run lasts. The actual
// run is slightly longer: shutdown waits for threads to finish their current
// work before exiting.
const DefaultRunMinutes = 1.0

// MasterConfig configures the coordinator program.
type MasterConfig struct {
	// Bits is the candidate bit length.
	Bits int `yaml:"bits"`

	// Certainty is the number of primality test rounds.
	Certainty int `yaml:"certainty"`

	// RunMinutes is the timed-run duration in minutes.
	RunMinutes float64 `yaml:"run_minutes"`

	// Workers is the local testing goroutine count. Zero means one per
	// available core, reserving one for coordination.
	Workers int `yaml:"workers"`

	// QueueSize bounds the work queues. Zero means equal to Workers.
	QueueSize int `yaml:"queue_size"`

	// Peers lists worker addresses as host[:port]. Empty means local-only.
	Peers []string `yaml:"peers"`

	// MetricsAddr enables the metrics/status endpoint when non-empty.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultMasterConfig returns the coordinator defaults.
func DefaultMasterConfig() MasterConfig {
	return MasterConfig{
		Bits:       prime.DefaultBits,
		Certainty:  prime.DefaultCertainty,
		RunMinutes: DefaultRunMinutes,
	}
}

// Normalize fills derived zero values in place.
func (c *MasterConfig) Normalize() {
	if c.Workers < 1 {
		c.Workers = pool.DefaultWorkers()
	}
	if c.QueueSize < 1 {
		c.QueueSize = c.Workers
	}
}

// Validate reports the first invalid setting.
func (c *MasterConfig) Validate() error {
	if c.Bits < 8 {
		return fmt.Errorf("bits must be at least 8, got %d", c.Bits)
	}
	if c.Certainty < 1 {
		return fmt.Errorf("certainty must be positive, got %d", c.Certainty)
	}
	if c.RunMinutes <= 0 {
		return fmt.Errorf("run_minutes must be positive, got %g", c.RunMinutes)
	}
	return nil
}

// RunDuration returns the timed-run duration.
func (c *MasterConfig) RunDuration() time.Duration {
	return time.Duration(c.RunMinutes * float64(time.Minute))
}

// WorkerConfig configures the worker program.
type WorkerConfig struct {
	// Port is the listening port.
	Port int `yaml:"port"`

	// Certainty is the number of primality test rounds.
	Certainty int `yaml:"certainty"`

	// Workers is the local testing goroutine count. Zero means one per
	// available core, reserving one for coordination.
	Workers int `yaml:"workers"`

	// QueueSize bounds the work queues. Zero means equal to Workers.
	QueueSize int `yaml:"queue_size"`

	// MetricsAddr enables the metrics/status endpoint when non-empty.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultWorkerConfig returns the worker defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Port:      DefaultPort,
		Certainty: prime.DefaultCertainty,
	}
}

// Normalize fills derived zero values in place.
func (c *WorkerConfig) Normalize() {
	if c.Workers < 1 {
		c.Workers = pool.DefaultWorkers()
	}
	if c.QueueSize < 1 {
		c.QueueSize = c.Workers
	}
}

// Validate reports the first invalid setting.
func (c *WorkerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in [0, 65535], got %d", c.Port)
	}
	if c.Certainty < 1 {
		return fmt.Errorf("certainty must be positive, got %d", c.Certainty)
	}
	return nil
}

// LoadMaster loads a coordinator config file over the defaults.
func LoadMaster(path string) (MasterConfig, error) {
	cfg := DefaultMasterConfig()
	if err := LoadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadWorker loads a worker config file over the defaults.
func LoadWorker(path string) (WorkerConfig, error) {
	cfg := DefaultWorkerConfig()
	if err := LoadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
