// Package logging builds the process logger. Log lines go to the
// workspace log file so the viewer can show them next to the output.
package logging

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/livid/errors"
)

// ParseLevel accepts zap level names, case-insensitively. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return 0, errors.InvalidEnum(errors.PhaseConfig, "log.level", s, "log level")
	}
	return lvl, nil
}

// New returns a console-encoded logger writing to w at level. w is
// truncated between reloads, so timestamps are short and local.
func New(w zapcore.WriteSyncer, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	enc.EncodeCaller = nil
	enc.CallerKey = ""
	enc.StacktraceKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(w), lvl)
	return zap.New(core), nil
}
