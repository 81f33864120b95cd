// The master program coordinates a search for large probable primes. With no
// arguments it searches on this computer only, for a fixed amount of time.
// With one or more host[:port] arguments it streams candidates to the worker
// program running on those machines and records the primes they report.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/config"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/core"
	"github.com/kemalturksonmez/Large-Primes-Calculator/pkg/master"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		bits        = flag.Int("bits", 0, "candidate bit length (overrides config)")
		certainty   = flag.Int("certainty", 0, "primality test rounds (overrides config)")
		minutes     = flag.Float64("minutes", 0, "run duration in minutes (overrides config)")
		workers     = flag.Int("workers", 0, "local worker count (overrides config)")
		metricsAddr = flag.String("metrics", "", "metrics endpoint address (overrides config)")
	)
	flag.Parse()

	logger := core.NewLogger("master")

	cfg := config.DefaultMasterConfig()
	if *configPath != "" {
		loaded, err := config.LoadMaster(*configPath)
		if err != nil {
			logger.Error(err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *bits > 0 {
		cfg.Bits = *bits
	}
	if *certainty > 0 {
		cfg.Certainty = *certainty
	}
	if *minutes > 0 {
		cfg.RunMinutes = *minutes
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.Peers = args
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}

	m := master.New(cfg, logger)
	if err := m.Run(context.Background()); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
