// Package session owns the single authenticated connection to the ledger
// network and the transport resilience policy shared by every provisioning step.
//
// A Session is opened once, is not mutated afterwards and is safe for
// concurrent submission. Close must be deferred right after Open succeeds.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger/hashgraph"
)

// Operator is the fee-paying identity of a session.
type Operator struct {
	AccountID string
	Key       *keys.KeyPair
}

// DialConfig is handed to a Dialer once the operator credentials are validated.
type DialConfig struct {
	Network     string
	Operator    Operator
	Resilience  Resilience
	LocalNode   string
	LocalMirror string
	Logger      *zap.Logger
}

// Session is an open, operator-authenticated network connection.
type Session struct {
	network  ledger.Network
	operator Operator
	policy   Resilience
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open validates the operator credentials and resilience policy, then dials the network.
// Credential problems are reported as configuration errors before any network call.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	s := applyOptions(opts)

	operator, err := parseOperator(cfg)
	if err != nil {
		return nil, err
	}

	policy := cfg.Resilience
	if policy == (Resilience{}) {
		policy = DefaultResilience()
	}
	if err := policy.validate(); err != nil {
		return nil, apperrors.ConfigError(err, "invalid resilience policy")
	}

	network, err := s.dialer(ctx, DialConfig{
		Network:     cfg.Network,
		Operator:    operator,
		Resilience:  policy,
		LocalNode:   cfg.LocalNode,
		LocalMirror: cfg.LocalMirror,
		Logger:      s.logger,
	})
	if err != nil {
		var svcErr *apperrors.ServiceError
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, apperrors.NetworkUnavailableError(err, "open network connection")
	}

	network = ledger.NewLog(network, s.logger)
	if s.metrics {
		network = ledger.NewMetered(network)
	}

	s.logger.Info("Network session opened",
		zap.String("network", cfg.Network),
		zap.String("operator_id", operator.AccountID),
	)

	return &Session{
		network:  network,
		operator: operator,
		policy:   policy,
		logger:   s.logger,
	}, nil
}

func parseOperator(cfg Config) (Operator, error) {
	if cfg.OperatorID == "" || cfg.OperatorKey == "" {
		return Operator{}, apperrors.ConfigError(nil, "operator account id and private key must be present")
	}

	id, err := hedera.AccountIDFromString(cfg.OperatorID)
	if err != nil {
		return Operator{}, apperrors.ConfigError(err, "malformed operator account id")
	}

	var key *keys.KeyPair
	if cfg.OperatorKeyScheme == "" {
		key, err = keys.Parse(cfg.OperatorKey)
	} else {
		scheme, serr := keys.ParseScheme(cfg.OperatorKeyScheme)
		if serr != nil {
			return Operator{}, apperrors.ConfigError(serr, "invalid operator key scheme")
		}
		key, err = keys.FromString(scheme, cfg.OperatorKey)
	}
	if err != nil {
		return Operator{}, apperrors.ConfigError(err, "malformed operator private key")
	}

	return Operator{AccountID: id.String(), Key: key}, nil
}

func dialHedera(_ context.Context, cfg DialConfig) (ledger.Network, error) {
	client, err := hashgraph.New(&hashgraph.Config{
		Network:     cfg.Network,
		OperatorID:  cfg.Operator.AccountID,
		OperatorKey: cfg.Operator.Key,
		MinBackoff:  cfg.Resilience.MinBackoff,
		MaxBackoff:  cfg.Resilience.MaxBackoff,
		MaxAttempts: cfg.Resilience.MaxAttempts,
		LocalNode:   cfg.LocalNode,
		LocalMirror: cfg.LocalMirror,
	}, hashgraph.WithLogger(cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("dial hedera: %w", err)
	}
	return client, nil
}

// Network returns the session's network capability.
func (s *Session) Network() ledger.Network { return s.network }

// Operator returns the fee-paying operator.
func (s *Session) Operator() Operator { return s.operator }

// Policy returns the transport resilience policy.
func (s *Session) Policy() Resilience { return s.policy }

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger { return s.logger }

// Close releases the connection. It is safe to call more than once; only the
// first call reaches the network client.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closeErr = s.network.Close()
		s.logger.Info("Network session closed")
	})
	return s.closeErr
}
