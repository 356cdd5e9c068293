package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// timeEncoder formats timestamps with the configured layout.
func timeEncoder(config Config) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(config.TimeFormat))
	}
}

// GetEncoder returns a zapcore.Encoder based on the config format.
func GetEncoder(config Config) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    config.ZapEncodeLevel(),
		EncodeTime:     timeEncoder(config),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if config.Format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// getZapCores creates one core per sink, each enabled for levels >= config.Level.
// File entries are always JSON-free of color codes.
func getZapCores(config Config) []zapcore.Core {
	level := config.TransportLevel()
	cores := make([]zapcore.Core, 0, 2)

	if config.LogInTerminal {
		cores = append(cores, zapcore.NewCore(GetEncoder(config), terminalSyncer(), level))
	}

	if config.Director != "" {
		fileConfig := config
		fileConfig.EncodeLevel = "LowercaseLevelEncoder"
		cores = append(cores, zapcore.NewCore(GetEncoder(fileConfig), fileSyncer(config), level))
	}

	return cores
}
