package hashgraph

import (
	"errors"
	"fmt"
	"time"

	"github.com/chainsafe/ledger-provisioner/pkg/keys"
)

// Network names accepted by Config.Network.
const (
	NetworkTestnet    = "testnet"
	NetworkPreviewnet = "previewnet"
	NetworkMainnet    = "mainnet"
	NetworkLocal      = "local"
)

// Config contains the configuration required to establish
// an operator-authenticated connection to a Hedera network.
type Config struct {
	Network     string
	OperatorID  string
	OperatorKey *keys.KeyPair

	// Transport retry policy applied by the SDK to every request.
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	MaxAttempts int

	// LocalNode and LocalMirror are only used with NetworkLocal.
	LocalNode   string
	LocalMirror string
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return errors.New("nil config")
	}
	switch cfg.Network {
	case NetworkTestnet, NetworkPreviewnet, NetworkMainnet:
	case NetworkLocal:
		if cfg.LocalNode == "" {
			return errors.New("local_node is required for the local network")
		}
	default:
		return fmt.Errorf("unknown network %q", cfg.Network)
	}
	if cfg.OperatorID == "" || cfg.OperatorKey == nil {
		return errors.New("operator id and key are required")
	}
	if cfg.MaxAttempts < 1 {
		return errors.New("max_attempts must be at least 1")
	}
	if cfg.MinBackoff <= 0 || cfg.MaxBackoff < cfg.MinBackoff {
		return errors.New("backoff bounds must satisfy 0 < min <= max")
	}
	return nil
}
