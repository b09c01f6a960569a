package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
)

// Dialer opens the network connection for an authenticated operator.
type Dialer func(ctx context.Context, cfg DialConfig) (ledger.Network, error)

// Option configures session settings using the functional options pattern.
type Option func(*settings)

type settings struct {
	logger  *zap.Logger
	dialer  Dialer
	metrics bool
}

// WithLogger sets a custom logger for the session and its network client.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithDialer overrides how the network connection is opened, primarily for tests.
func WithDialer(d Dialer) Option {
	return func(s *settings) { s.dialer = d }
}

// WithMetrics enables Prometheus instrumentation of network calls.
func WithMetrics(enabled bool) Option {
	return func(s *settings) { s.metrics = enabled }
}

func applyOptions(opts []Option) settings {
	s := settings{
		logger: zap.NewNop(),
		dialer: dialHedera,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
