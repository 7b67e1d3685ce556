// Package logging builds the process logger: a logr.Logger backed by zap.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/imamik/stratus/internal/config"
)

// New creates a logger writing to w.
//
// An empty format selects console output when w is a terminal and JSON
// otherwise. logr verbosity maps onto zap levels, so V(1) lines appear
// only at the debug level.
func New(cfg config.LogConfig, w io.Writer) (logr.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return logr.Discard(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	tty := isTerminal(w)
	format := cfg.Format
	if format == "" {
		format = "json"
		if tty {
			format = "console"
		}
	}

	var encoder zapcore.Encoder
	switch format {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "console":
		encCfg := zap.NewDevelopmentEncoderConfig()
		if tty {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return logr.Discard(), fmt.Errorf("invalid log format %q", format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zapr.NewLogger(zap.New(core, zap.AddCaller())), nil
}

// NewStderr creates the logger used by the CLI and the server.
func NewStderr(cfg config.LogConfig) (logr.Logger, error) {
	return New(cfg, os.Stderr)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
