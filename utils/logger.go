package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/inconshreveable/log15/v3"
)

// NewLogger builds the root logger. format is one of logfmt, json or terminal.
func NewLogger(level, format string) (log15.Logger, error) {
	return newLogger(os.Stderr, level, format)
}

func newLogger(w io.Writer, level, format string) (log15.Logger, error) {
	lvl, err := log15.LvlFromString(level)
	if err != nil {
		return nil, fmt.Errorf("NewLogger: %w", err)
	}

	var f log15.Format
	switch format {
	case "", "logfmt":
		f = log15.LogfmtFormat()
	case "json":
		f = log15.JsonFormat()
	case "terminal":
		f = log15.TerminalFormat()
	default:
		return nil, fmt.Errorf("NewLogger: unknown format %q", format)
	}

	logger := log15.New("app", "todaybrief")
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, f)))
	return logger, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() log15.Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())
	return l
}
