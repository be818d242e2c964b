package runtime

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the runtime package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the runtime package's logger.
// This must be called before any runtime operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

func zapNamespace(ns string) zap.Field { return zap.String("namespace", ns) }

func zapName(name string) zap.Field { return zap.String("name", name) }
