package session

import (
	"errors"
	"time"
)

// Default resilience values applied to every network operation.
const (
	DefaultMinBackoff  = 10 * time.Millisecond
	DefaultMaxBackoff  = 100 * time.Millisecond
	DefaultMaxAttempts = 50
)

// Config contains what is needed to open a session.
type Config struct {
	// Network is the ledger network name (testnet, previewnet, mainnet, local).
	Network string

	// OperatorID is the account paying fees and funding new accounts.
	OperatorID string
	// OperatorKey is the operator's private key, raw or DER hex.
	OperatorKey string
	// OperatorKeyScheme is the scheme of OperatorKey. Empty means detect it
	// from the encoding; raw keys are then read as ED25519.
	OperatorKeyScheme string

	Resilience Resilience

	LocalNode   string
	LocalMirror string
}

// Resilience is the transport retry policy of a session. Operations under the
// session are retried by the transport; callers do not retry them manually.
type Resilience struct {
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	MaxAttempts int
}

// DefaultResilience returns the policy used when none is configured.
func DefaultResilience() Resilience {
	return Resilience{
		MinBackoff:  DefaultMinBackoff,
		MaxBackoff:  DefaultMaxBackoff,
		MaxAttempts: DefaultMaxAttempts,
	}
}

func (r Resilience) validate() error {
	if r.MaxAttempts < 1 {
		return errors.New("max_attempts must be at least 1")
	}
	if r.MinBackoff <= 0 {
		return errors.New("min_backoff must be positive")
	}
	if r.MaxBackoff < r.MinBackoff {
		return errors.New("max_backoff must not be lower than min_backoff")
	}
	return nil
}
