package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dd0wney/mesh-exposure/pkg/config"
	"github.com/dd0wney/mesh-exposure/pkg/logging"
	"github.com/dd0wney/mesh-exposure/pkg/metrics"
	"github.com/dd0wney/mesh-exposure/pkg/pipeline"
	"github.com/dd0wney/mesh-exposure/pkg/sink"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	attacker := flag.Int("attacker", 0, "Attacker node id (overrides config)")
	root := flag.Int("root", 0, "Root node id (overrides config)")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	sendersFile := flag.String("senders", "", "CSV of sender node ids, one per line")
	endTS := flag.Int64("end-ts", -1, "Override for the run end timestamp in ms")
	reconcileOnly := flag.Bool("reconcile-only", false, "Rebuild the comparison table from existing artifacts")
	flag.Parse()

	if err := run(*configPath, *attacker, *root, *outputDir, *sendersFile, *endTS, *reconcileOnly, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "mesh-exposure: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, attacker, root int, outputDir, sendersFile string, endTS int64, reconcileOnly bool, traces []string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	if attacker != 0 {
		cfg.AttackerID = attacker
	}
	if root != 0 {
		cfg.RootID = root
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if sendersFile != "" {
		cfg.SendersFile = sendersFile
	}
	if endTS >= 0 {
		cfg.EndTimestampMS = &endTS
	}
	// Reconcile-only reads previously written artifacts and needs no node
	// identities, so it skips full validation.
	if !reconcileOnly {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	reg := metrics.NewRegistry(prometheus.NewRegistry())

	ctx := context.Background()

	var resultSink pipeline.ResultSink
	if cfg.PostgresDSN != "" {
		pg, err := sink.NewPGSink(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		resultSink = pg
	}

	p := pipeline.New(cfg, log, reg, resultSink)

	if reconcileOnly {
		rows, _, err := p.ReconcileOnly(ctx)
		if err != nil {
			return err
		}
		log.Info("comparison rebuilt", logging.Int("rows", len(rows)))
		return nil
	}

	if len(traces) == 0 {
		return fmt.Errorf("no trace files given; usage: mesh-exposure [flags] <trace>...")
	}

	batch, err := p.Run(ctx, traces)
	if err != nil {
		return err
	}
	if batch.Failed > 0 {
		return fmt.Errorf("%d of %d traces failed analysis", batch.Failed, batch.Failed+len(batch.Runs))
	}
	return nil
}
