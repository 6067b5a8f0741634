package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the sink and encoding for New.
type Options struct {
	Component Component
	Level     zapcore.Level
	// JSON switches to zap's production JSON encoding.
	JSON   bool
	Colors bool
	// Output defaults to stdout.
	Output zapcore.WriteSyncer
}

// New builds a logger from opts.
func New(opts Options) *ColoredLogger {
	out := opts.Output
	if out == nil {
		out = zapcore.AddSync(os.Stdout)
	}

	encoder := coloredConsoleEncoder(opts.Colors && !opts.JSON)
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	logger := zap.New(zapcore.NewCore(encoder, out, opts.Level), zap.AddCaller(), zap.AddCallerSkip(1))
	if opts.Component != "" {
		logger = logger.With(zap.String("component", string(opts.Component)))
	}
	return &ColoredLogger{Logger: logger, enableColors: opts.Colors && !opts.JSON}
}
