// Package log is a thin wrapper over a zap SugaredLogger shared by every
// package of the engine. Errors passed as arguments to the Error and Warn
// families get their tracerr stack trace appended to the log line.
package log

import (
	"fmt"
	"strings"
	"time"

	"github.com/hermeznetwork/tracerr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

func init() {
	Init("info", []string{"stdout"})
}

// Init (re)configures the logger with the given level ("debug", "info",
// "warn", "error", "fatal") and output paths. "stdout" and "stderr" are
// accepted as outputs together with file paths.
func Init(levelStr string, outputs []string) {
	var level zap.AtomicLevel
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		panic(fmt.Errorf("invalid log level %q: %w", levelStr, err))
	}
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	cfg := zap.Config{
		Level:            level,
		Encoding:         "console",
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:  "message",
			LevelKey:    "level",
			EncodeLevel: zapcore.CapitalLevelEncoder,
			TimeKey:     "timestamp",
			EncodeTime: func(ts time.Time, enc zapcore.PrimitiveArrayEncoder) {
				enc.AppendString(ts.Local().Format(time.RFC3339))
			},
			EncodeDuration: zapcore.SecondsDurationEncoder,
			CallerKey:      "caller",
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	// skip this wrapper so the caller field points to the real call site
	log = logger.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

func sprintStackTrace(st []tracerr.Frame) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, f := range st {
		b.WriteString(fmt.Sprintf("%s:%d %s()\n", f.Path, f.Line, f.Func))
	}
	return b.String()
}

func appendStackTraceMaybeArgs(args []interface{}) []interface{} {
	for i := range args {
		if err, ok := args[i].(error); ok {
			st := tracerr.StackTrace(tracerr.Wrap(err))
			return append(args, sprintStackTrace(st))
		}
	}
	return args
}

func appendStackTraceMaybeKV(kv []interface{}) []interface{} {
	for i := range kv {
		if err, ok := kv[i].(error); ok {
			st := tracerr.StackTrace(tracerr.Wrap(err))
			return append(kv, "stacktrace", sprintStackTrace(st))
		}
	}
	return kv
}

// Debug calls log.Debug
func Debug(args ...interface{}) {
	log.Debug(args...)
}

// Info calls log.Info
func Info(args ...interface{}) {
	log.Info(args...)
}

// Warn calls log.Warn
func Warn(args ...interface{}) {
	log.Warn(appendStackTraceMaybeArgs(args)...)
}

// Error calls log.Error, appending the stack trace of any error argument
func Error(args ...interface{}) {
	log.Error(appendStackTraceMaybeArgs(args)...)
}

// Fatal calls log.Fatal
func Fatal(args ...interface{}) {
	log.Fatal(appendStackTraceMaybeArgs(args)...)
}

// Debugf calls log.Debugf
func Debugf(template string, args ...interface{}) {
	log.Debugf(template, args...)
}

// Infof calls log.Infof
func Infof(template string, args ...interface{}) {
	log.Infof(template, args...)
}

// Warnf calls log.Warnf
func Warnf(template string, args ...interface{}) {
	log.Warnf(template, args...)
}

// Errorf calls log.Errorf
func Errorf(template string, args ...interface{}) {
	log.Errorf(template, args...)
}

// Fatalf calls log.Fatalf
func Fatalf(template string, args ...interface{}) {
	log.Fatalf(template, args...)
}

// Debugw calls log.Debugw
func Debugw(template string, kv ...interface{}) {
	log.Debugw(template, kv...)
}

// Infow calls log.Infow
func Infow(template string, kv ...interface{}) {
	log.Infow(template, kv...)
}

// Warnw calls log.Warnw
func Warnw(template string, kv ...interface{}) {
	log.Warnw(template, appendStackTraceMaybeKV(kv)...)
}

// Errorw calls log.Errorw, appending the stack trace of any error argument
func Errorw(template string, kv ...interface{}) {
	log.Errorw(template, appendStackTraceMaybeKV(kv)...)
}

// Fatalw calls log.Fatalw
func Fatalw(template string, kv ...interface{}) {
	log.Fatalw(template, appendStackTraceMaybeKV(kv)...)
}
