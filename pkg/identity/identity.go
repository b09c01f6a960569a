// Package identity turns key pairs into ledger accounts.
//
// Two creation strategies exist: Direct submits an explicit account-create
// transaction, Alias funds the alias reference derived from the public key and
// resolves it to the account the network auto-creates. Both report the account
// id only after a success receipt.
package identity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chainsafe/ledger-provisioner/pkg/keys"
)

// Account is a provisioned ledger account and the key that controls it.
type Account struct {
	ID     string
	Scheme keys.Scheme
	Key    *keys.KeyPair
	// Alias is the provisional reference the account was funded through.
	// Empty for directly created accounts.
	Alias string
}

// AccountProvisioner creates an account controlled by a key pair.
type AccountProvisioner interface {
	Create(ctx context.Context, kp *keys.KeyPair) (*Account, error)
}

// Provisioners holds one provisioner per creation strategy.
type Provisioners struct {
	Direct AccountProvisioner
	Alias  AccountProvisioner
}

// ProvisionerFor selects the creation strategy for a key scheme:
// ED25519 keys are created directly, ECDSA keys through their alias.
func (p Provisioners) ProvisionerFor(scheme keys.Scheme) (AccountProvisioner, error) {
	var prov AccountProvisioner
	switch scheme {
	case keys.SchemeED25519:
		prov = p.Direct
	case keys.SchemeECDSA:
		prov = p.Alias
	default:
		return nil, fmt.Errorf("no account provisioner for scheme %q", scheme)
	}
	if prov == nil {
		return nil, fmt.Errorf("account provisioner for scheme %q is not configured", scheme)
	}
	return prov, nil
}

// Option configures a provisioner using the functional options pattern.
type Option func(*settings)

type settings struct {
	logger *zap.Logger
	memo   string
}

// WithLogger sets a custom logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMemo sets the memo attached to creation and funding transactions.
func WithMemo(memo string) Option {
	return func(s *settings) { s.memo = memo }
}

func applyOptions(opts []Option) settings {
	s := settings{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
