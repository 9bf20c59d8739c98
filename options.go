package aibridge

import "log/slog"

// Option customizes a Bridge.
type Option func(*Bridge)

// WithLogger overrides the logger. The bridge wraps the logger's handler so
// session, stream and tool attributes attach automatically to records
// emitted below entry points.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// WithConfig overrides the environment-derived configuration.
func WithConfig(cfg Config) Option {
	return func(b *Bridge) {
		b.cfg = cfg
	}
}
