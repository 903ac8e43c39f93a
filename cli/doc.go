// Package cli contains the command line interface for rulectl.
//
// # Usage
//
// The CLI provides three subcommands on top of shared logging and
// profiling configuration:
//
//	rulectl validate rules.yaml
//	rulectl eval --formula '0.5' --rollout-id user-1
//	rulectl serve --rules rules.yaml --db rollout.db
//
// # Logging Options
//
//   - --log-level: Set minimum log level (debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, RFC3339Nano, etc.)
//   - --log-caller: Include caller information in log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o rulectl ./cmd/rulectl
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default: the user cache
//     directory joined with the executable name and "pprof", e.g.
//     ~/.cache/rulectl/pprof)
//
// # Examples
//
//	# Debug logging with CPU profiling
//	rulectl --log-level=debug --pprof-mode=cpu serve
//
//	# Text format logging
//	rulectl --log-format=text validate rules.yaml
package cli
