package core

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// Logger returns the package-wide logger. It is a no-op logger until
// SetLogger installs one.
func Logger() *zap.Logger {
	return logger.Load()
}

// SetLogger installs l as the package-wide logger. A nil l restores the
// no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}
