package identity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
	"github.com/chainsafe/ledger-provisioner/pkg/session"
)

// Direct creates accounts with an explicit account-create transaction paid by
// the session operator.
type Direct struct {
	network        ledger.Network
	initialBalance ledger.Tinybar
	memo           string
	logger         *zap.Logger
}

var _ AccountProvisioner = (*Direct)(nil)

// NewDirect creates a provisioner funding every new account with initialBalance.
func NewDirect(sess *session.Session, initialBalance ledger.Tinybar, opts ...Option) *Direct {
	s := applyOptions(opts)
	return &Direct{
		network:        sess.Network(),
		initialBalance: initialBalance,
		memo:           s.memo,
		logger:         s.logger,
	}
}

// Create submits the account creation and returns the account from its receipt.
func (d *Direct) Create(ctx context.Context, kp *keys.KeyPair) (*Account, error) {
	if kp == nil {
		return nil, apperrors.GeneralError(errors.New("key pair is required"))
	}

	d.logger.Info("Creating account", zap.String("scheme", kp.Scheme().String()))

	receipt, err := ledger.Confirm(ctx, d.network, &ledger.AccountCreate{
		Key:            kp.Public(),
		InitialBalance: d.initialBalance,
		Memo:           d.memo,
	})
	if err != nil {
		return nil, err
	}
	if !receipt.Status.IsSuccess() {
		return nil, apperrors.CreationRejectedError(
			fmt.Errorf("receipt status %s", receipt.Status),
			"account creation rejected",
		)
	}
	if receipt.AccountID == "" {
		return nil, apperrors.GeneralError(fmt.Errorf("account creation %s succeeded without an account id", receipt.TransactionID))
	}

	d.logger.Info("Created account",
		zap.String("account_id", receipt.AccountID),
		zap.String("scheme", kp.Scheme().String()),
		zap.String("tx_id", receipt.TransactionID),
	)

	return &Account{
		ID:     receipt.AccountID,
		Scheme: kp.Scheme(),
		Key:    kp,
	}, nil
}
