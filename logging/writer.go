package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	fileWriters   = make(map[string]*lumberjack.Logger)
	fileWritersMu sync.Mutex
)

// fileSyncer returns the rotating writer for <Director>/<FileName>.log.
// Loggers built from the same config share one lumberjack.Logger so rotation
// is not raced by two writers on the same file.
func fileSyncer(config Config) zapcore.WriteSyncer {
	fileName := filepath.Join(config.Director, config.FileName+".log")

	fileWritersMu.Lock()
	defer fileWritersMu.Unlock()

	if writer, ok := fileWriters[fileName]; ok {
		return zapcore.AddSync(writer)
	}

	_ = os.MkdirAll(config.Director, 0755)
	writer := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
		LocalTime:  true,
	}
	fileWriters[fileName] = writer
	return zapcore.AddSync(writer)
}

// terminalSyncer writes to stderr so stdout stays free for reports.
func terminalSyncer() zapcore.WriteSyncer {
	return zapcore.Lock(zapcore.AddSync(os.Stderr))
}

// CloseAllWriters closes every rotating file opened by this package.
func CloseAllWriters() error {
	fileWritersMu.Lock()
	defer fileWritersMu.Unlock()

	var lastErr error
	for name, writer := range fileWriters {
		if err := writer.Close(); err != nil {
			lastErr = err
		}
		delete(fileWriters, name)
	}
	return lastErr
}
