// Package obs holds the module's ambient observability surface: a single
// zerolog logger construction and a small set of Prometheus collectors that
// a component (currently the monitor) accepts rather than reaching for
// package-level globals.
package obs

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the module's logger. When pretty is set it wraps w in
// zerolog's console writer (human-friendly, colorized); otherwise it emits
// newline-delimited JSON, mirroring the dual human/machine output modes the
// CLI surface offers for data (--table vs --json).
func NewLogger(w io.Writer, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// Default returns a logger writing to stderr, pretty when stderr is a
// terminal. Components do not fall back to it on their own: one that is not
// handed a logger keeps whatever default it defines (the health prober's is
// a no-op logger).
func Default() zerolog.Logger {
	pretty := isTerminal(os.Stderr)
	return NewLogger(os.Stderr, pretty)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
