package capi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-embed/handle"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the capi package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the capi package's logger.
// This must be called before any capi operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

// handleLogger reports handle lifecycle events at debug level.
type handleLogger struct{}

func (handleLogger) OnHandleEvent(e handle.Event) {
	Logger().Debug("handle "+e.Type.String(),
		zap.Uint64("handle", uint64(e.Handle)),
		zap.String("kind", string(e.Kind)),
	)
}
