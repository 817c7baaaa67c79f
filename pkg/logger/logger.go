package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "lewas-chat"

// Log is replaced by Init; until then everything goes to a no-op logger so
// packages can log from tests without setup.
var Log = zap.NewNop()

// Init builds the process logger and installs it as Log.
func Init(level, format, outputPath string) error {
	l, err := Build(level, format, outputPath)
	if err != nil {
		return err
	}
	Log = l.WithOptions(zap.AddCallerSkip(1))
	return nil
}

// Build returns a logger tagged with the service name. outputPath is
// "stdout", "stderr", a file path, or a comma-separated list of those.
// Format "json" selects the JSON encoder; anything else is console output.
func Build(level, format, outputPath string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	sink, err := openSinks(outputPath)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, sink, zapLevel)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", serviceName)),
	), nil
}

func openSinks(outputPath string) (zapcore.WriteSyncer, error) {
	var sinks []zapcore.WriteSyncer
	for _, path := range strings.Split(outputPath, ",") {
		switch path = strings.TrimSpace(path); path {
		case "", "stdout":
			sinks = append(sinks, zapcore.Lock(os.Stdout))
		case "stderr":
			sinks = append(sinks, zapcore.Lock(os.Stderr))
		default:
			file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, fmt.Errorf("failed to open log file: %w", err)
			}
			sinks = append(sinks, zapcore.AddSync(file))
		}
	}
	return zapcore.NewMultiWriteSyncer(sinks...), nil
}

// GetLogger returns the process logger for components that take a *zap.Logger.
func GetLogger() *zap.Logger {
	return Log.WithOptions(zap.AddCallerSkip(-1))
}

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { Log.Fatal(msg, fields...) }

func Sync() {
	_ = Log.Sync()
}
