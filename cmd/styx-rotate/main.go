// Command styx-rotate reads stdin and forwards it to a rotating async sink.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/agilira/flash-flags"

	"github.com/agilira/styx"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flashflags.New("styx-rotate")
	file := fs.String("file", "", "log file path (required)")
	size := fs.String("size", "100MB", "max file size before rotation (K/M/G suffixes)")
	maxFiles := fs.Int("max-files", 10, "max number of log files to keep, including the active one")
	flush := fs.String("flush", "1ms", "flush period (ms/s/min/hour suffixes)")
	strategy := fs.String("strategy", "rename", "rotation strategy: rename or incremental")
	rotateOnOpen := fs.Bool("rotate-on-open", false, "rotate immediately on startup")
	fifoSize := fs.Int("fifo-size", 4096, "ring buffer capacity in bytes")
	useZstd := fs.Bool("zstd", false, "compress the active file with streaming zstd")
	zstdParams := fs.String("zstd-params", "", "comma-separated k=v overrides for the zstd writer (level,windowLog,chainLog,hashLog,maxFrame)")
	watchConfig := fs.String("watch-config", "", "path to a hot-reloadable rotation config file")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, "styx-rotate:", err)
		return 2
	}

	if *file == "" {
		fmt.Fprintln(os.Stderr, "styx-rotate: -file is required")
		return 2
	}

	cfg := &styx.Config{
		Filename:       *file,
		MaxSizeStr:     *size,
		MaxFiles:       *maxFiles,
		FlushPeriodStr: *flush,
		Strategy:       *strategy,
		RotateOnOpen:   *rotateOnOpen,
		RingCapacity:   *fifoSize,
		ErrorCallback: func(op string, err error) {
			fmt.Fprintf(os.Stderr, "styx-rotate: %s: %v\n", op, err)
		},
	}
	if *useZstd {
		cfg.Writer = styx.WriterZstd
		cfg.ZstdParams = styx.DefaultZstdParams()
	}
	if *zstdParams != "" {
		params, err := parseZstdParams(*zstdParams, cfg.ZstdParams)
		if err != nil {
			fmt.Fprintln(os.Stderr, "styx-rotate: -zstd-params:", err)
			return 2
		}
		cfg.ZstdParams = params
	}

	p, err := styx.NewWithConfig(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "styx-rotate:", err)
		return 1
	}
	defer p.Close()

	if *watchConfig != "" {
		watcher, err := styx.WatchConfig(*watchConfig, p.RotatingSink(), cfg.ErrorCallback)
		if err != nil {
			fmt.Fprintln(os.Stderr, "styx-rotate: watch-config:", err)
		} else {
			defer watcher.Close()
		}
	}

	reader := bufio.NewReaderSize(os.Stdin, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if _, werr := p.Write(line); werr != nil {
				fmt.Fprintln(os.Stderr, "styx-rotate: write:", werr)
			}
		}
		if err != nil {
			break
		}
	}

	if !p.Flush(0) {
		return 1
	}
	return 0
}

// parseZstdParams parses a comma-separated k=v list (level, windowLog,
// chainLog, hashLog, maxFrame) into a copy of base, overriding only the
// keys present.
func parseZstdParams(s string, base styx.ZstdParams) (styx.ZstdParams, error) {
	params := base
	for _, kv := range strings.Split(s, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return params, fmt.Errorf("invalid zstd-params entry %q (want k=v)", kv)
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "level":
			n, err := strconv.Atoi(val)
			if err != nil {
				return params, fmt.Errorf("zstd-params level: %w", err)
			}
			params.Level = n
		case "windowLog":
			n, err := strconv.Atoi(val)
			if err != nil {
				return params, fmt.Errorf("zstd-params windowLog: %w", err)
			}
			params.WindowLog = n
		case "chainLog":
			n, err := strconv.Atoi(val)
			if err != nil {
				return params, fmt.Errorf("zstd-params chainLog: %w", err)
			}
			params.ChainLog = n
		case "hashLog":
			n, err := strconv.Atoi(val)
			if err != nil {
				return params, fmt.Errorf("zstd-params hashLog: %w", err)
			}
			params.HashLog = n
		case "maxFrame":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return params, fmt.Errorf("zstd-params maxFrame: %w", err)
			}
			params.MaxFrame = n
		default:
			return params, fmt.Errorf("unknown zstd-params key %q", key)
		}
	}
	return params, nil
}
