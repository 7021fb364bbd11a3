/*
NAME
  main.go

DESCRIPTION
  dsp2hps combines a left and right DSP ADPCM file into a looping stereo HPS
  stream, or converts pairs as they appear in a watched directory.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dsp2hps is a command line tool for building HPS streams.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/hps/config"
	"github.com/ausocean/hps/transcode"
	"github.com/ausocean/hps/watch"
	"github.com/ausocean/utils/logging"
)

// Logging configuration.
const (
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = false
)

// flagKeys maps command line flags to config variable names.
var flagKeys = map[string]string{
	"l":           config.KeyLeftPath,
	"left":        config.KeyLeftPath,
	"r":           config.KeyRightPath,
	"right":       config.KeyRightPath,
	"o":           config.KeyOutputPath,
	"output":      config.KeyOutputPath,
	"sample-rate": config.KeySampleRate,
	"loop-point":  config.KeyLoopPoint,
	"block-size":  config.KeyBlockSize,
	"log-level":   config.KeyLogging,
	"log-file":    config.KeyLogPath,
	"watch":       config.KeyWatchDir,
	"out-dir":     config.KeyOutDir,
}

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "dsp2hps:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("dsp2hps", flag.ContinueOnError)
	var left, right, output string
	fs.StringVar(&left, "l", "", "Path to the left channel DSP file.")
	fs.StringVar(&left, "left", "", "Path to the left channel DSP file.")
	fs.StringVar(&right, "r", "", "Path to the right channel DSP file.")
	fs.StringVar(&right, "right", "", "Path to the right channel DSP file.")
	fs.StringVar(&output, "o", "", "Path of the HPS file to write.")
	fs.StringVar(&output, "output", "", "Path of the HPS file to write.")
	fs.Uint("sample-rate", 32000, "Sample rate in Hz.")
	fs.Float64("loop-point", 0, "Loop point in seconds. A LOOP<seconds> token in the left file name takes precedence.")
	fs.String("block-size", "0x10000", "Block payload size, a multiple of 64.")
	fs.String("log-level", "Info", "Log level: Debug, Info, Warning, Error or Fatal.")
	fs.String("log-file", "", "Optional path of a rotated log file.")
	fs.String("watch", "", "Directory to watch for <name>_L.dsp and <name>_R.dsp pairs.")
	fs.String("out-dir", "", "Directory for HPS files written in watch mode. Defaults to the watched directory.")
	cfgPath := fs.String("config", "", "Optional file of Key=Value config variables, overridden by flags.")
	err := fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	vars := make(map[string]string)
	if *cfgPath != "" {
		vars, err = readVars(*cfgPath)
		if err != nil {
			return err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			vars[key] = f.Value.String()
		}
	})

	// Explicit values fail here rather than being defaulted by Validate.
	err = config.CheckVars(vars)
	if err != nil {
		return err
	}

	// Variables are parsed with a stderr logger until the configured one
	// can be built.
	cfg := &config.Config{
		Logger:   logging.New(logging.Warning, os.Stderr, logSuppress),
		LogLevel: logging.Info,
	}
	cfg.Update(vars)
	err = cfg.Validate()
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if cfg.LogPath != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    logMaxSize,
			MaxBackups: logMaxBackup,
			MaxAge:     logMaxAge,
		})
	}
	cfg.Logger = logging.New(cfg.LogLevel, w, cfg.Suppress)

	if cfg.WatchDir != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watch.New(cfg).Run(ctx)
	}

	blocks, err := transcode.Run(cfg, transcode.PairFromConfig(cfg))
	if err != nil {
		return err
	}
	cfg.Logger.Info("finished", "output", cfg.OutputPath, "blocks", len(blocks))
	return nil
}

func readVars(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open config file")
	}
	defer f.Close()
	return config.ReadVars(f)
}
