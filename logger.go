package tokenmeter

import "go.uber.org/zap"

// Logger provides leveled printf-style logging for the tokenmeter package.
type Logger struct {
	s *zap.SugaredLogger
}

// newLogger builds a Logger from an optional caller-supplied zap logger.
// Without one, a production config is used; debug mode switches to the
// development config so Debug lines are visible.
func newLogger(debug bool, base *zap.Logger) *Logger {
	if base == nil {
		cfg := zap.NewProductionConfig()
		if debug {
			cfg = zap.NewDevelopmentConfig()
		}
		built, err := cfg.Build()
		if err != nil {
			built = zap.NewNop()
		}
		base = built
	}
	return &Logger{s: base.Named("tokenmeter").Sugar()}
}

// Debug logs a message at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.s.Debugf(msg, args...)
}

// Info logs a message at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.s.Infof(msg, args...)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.s.Warnf(msg, args...)
}

// Error logs a message at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.s.Errorf(msg, args...)
}
