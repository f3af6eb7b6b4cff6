// Package logger owns the process-wide zerolog logger.
//
// main calls Init exactly once with the configured level; everything that
// cannot take a logger through its constructor falls back to Get.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options selects level and output format at startup.
type Options struct {
	// Level is the minimum level emitted: trace, debug, info, warn or
	// error. Anything else means info.
	Level string
	// Pretty switches to the coloured console writer for local
	// development; production keeps JSON.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
}

var (
	mu       sync.Mutex
	instance *zerolog.Logger
)

// Init builds the shared logger. Repeat calls return the logger from the
// first call unchanged.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return *instance
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := parseLevel(opts.Level)
	zerolog.SetGlobalLevel(level)

	log := zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()
	instance = &log
	return log
}

// Get returns the shared logger. It panics when Init has not run, which
// points at a wiring bug rather than hiding it behind a silent default.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		panic("logger: Get called before Init")
	}
	return *instance
}

// Reset discards the shared logger so the next Init rebuilds it. Test use
// only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
