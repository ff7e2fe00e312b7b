package cli

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the process logger. Logs go to stderr so stdout stays a
// clean event stream: JSON in ndjson mode, console lines in text mode.
func newLogger(globals *Globals) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if globals.Level != "" {
		l, err := zapcore.ParseLevel(globals.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", globals.Level, err)
		}
		level = l
	}
	if globals.Verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if globals.Format == "ndjson" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(globals.Stderr)), level)
	return zap.New(core, zap.AddStacktrace(zapcore.DPanicLevel)), nil
}
