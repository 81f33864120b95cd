// The worker program runs alongside the master program to test candidate
// values for primality. Run one worker per machine; with no arguments it
// listens on the default port, otherwise on the port given as the first
// argument. It exits 1 if the port cannot be bound and 2 if accepting the
// coordinator connection fails.
package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/config"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/core"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/worker"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		certainty   = flag.Int("certainty", 0, "primality test rounds (overrides config)")
		workers     = flag.Int("workers", 0, "local worker count (overrides config)")
		metricsAddr = flag.String("metrics", "", "metrics endpoint address (overrides config)")
	)
	flag.Parse()

	logger := core.NewLogger("worker")

	cfg := config.DefaultWorkerConfig()
	if *configPath != "" {
		loaded, err := config.LoadWorker(*configPath)
		if err != nil {
			logger.Error(err)
			os.Exit(1)
		}
		cfg = loaded
	}
	// An unparseable or out-of-range port argument falls back to the default,
	// matching the forgiving CLI contract.
	if args := flag.Args(); len(args) > 0 {
		if p, err := strconv.Atoi(args[0]); err == nil && p >= 0 && p <= 65535 {
			cfg.Port = p
		}
	}
	if *certainty > 0 {
		cfg.Certainty = *certainty
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	w := worker.New(cfg, logger)
	if err := w.Listen(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
	if err := w.Accept(); err != nil {
		logger.Error(err)
		os.Exit(2)
	}
	if err := w.Run(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
