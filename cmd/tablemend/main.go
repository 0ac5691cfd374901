package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/santedata/tablemend/pkg/config"
)

var (
	version = "0.1.0-dev"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "", "Path to pipeline config (JSON, YAML or TOML)")
	inputPath := flag.String("input", "", "Input path, overriding the config")
	outputPath := flag.String("output", "", "Output path, overriding the config")
	chunkSize := flag.Int("chunk-size", 0, "Enable streaming with chunk size (rows per chunk). 0 disables streaming.")
	watchMode := flag.Bool("watch", false, "Keep running and reprocess the input when it changes")
	profileOnly := flag.Bool("profile", false, "Print the dataset profile and exit without writing output")
	flag.Parse()

	if *showVersion {
		fmt.Println("tablemend", version)
		return
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "no config provided; nothing to do. try --config <file> or --version")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *inputPath != "" {
		cfg.Input.Path = *inputPath
	}
	if *outputPath != "" {
		cfg.Output.Path = *outputPath
	}
	if *profileOnly {
		cfg.Profile.Enabled = true
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	switch {
	case *watchMode:
		err = watchLoop(ctx, cfg, logger, *chunkSize, *profileOnly)
	case *chunkSize > 0:
		err = runStream(ctx, cfg, logger, *chunkSize)
	default:
		err = runBatch(ctx, cfg, logger, *profileOnly)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
