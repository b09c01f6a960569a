// Package transfer moves native currency between two accounts in a single
// balanced transaction and classifies the receipt.
package transfer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
)

// Transferer moves value between two accounts.
type Transferer interface {
	Transfer(ctx context.Context, from, to string, amount ledger.Tinybar, opts ...CallOption) (*ledger.Receipt, error)
}

// CallOption adjusts a single transfer.
type CallOption func(*call)

type call struct {
	memo string
}

// Memo overrides the service memo for one transfer.
func Memo(memo string) CallOption {
	return func(c *call) { c.memo = memo }
}

// Service submits two-line transfers on a network.
type Service struct {
	network   ledger.Network
	coSigners []*keys.KeyPair
	memo      string
	logger    *zap.Logger
}

var _ Transferer = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCoSigners adds keys that sign every transfer in addition to the fee payer.
// Needed when the debited account is not the session operator.
func WithCoSigners(kps ...*keys.KeyPair) Option {
	return func(s *Service) { s.coSigners = append(s.coSigners, kps...) }
}

// WithMemo sets the memo attached to every transfer.
func WithMemo(memo string) Option {
	return func(s *Service) { s.memo = memo }
}

// New creates a transfer service.
func New(network ledger.Network, opts ...Option) *Service {
	s := &Service{network: network, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Transfer debits amount from "from" and credits it to "to".
//
// A non-success receipt is reported as CategoryTransferRejected, or
// CategoryInsufficientFunds when the network refused for lack of balance.
// The receipt is returned alongside a rejection error.
func (s *Service) Transfer(ctx context.Context, from, to string, amount ledger.Tinybar, opts ...CallOption) (*ledger.Receipt, error) {
	if amount <= 0 {
		return nil, apperrors.GeneralError(fmt.Errorf("transfer amount must be positive, got %s", amount))
	}
	if from == to {
		return nil, apperrors.GeneralError(errors.New("transfer source and destination must differ"))
	}

	c := call{memo: s.memo}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}

	tx := &ledger.Transfer{
		Lines: []ledger.TransferLine{
			{Account: from, Amount: -amount},
			{Account: to, Amount: amount},
		},
		Memo:      c.memo,
		CoSigners: s.coSigners,
	}

	receipt, err := ledger.Confirm(ctx, s.network, tx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer receipt",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("amount", amount.String()),
		zap.String("tx_id", receipt.TransactionID),
		zap.String("status", string(receipt.Status)),
	)

	if !receipt.Status.IsSuccess() {
		msg := fmt.Sprintf("transfer %s -> %s rejected", from, to)
		statusErr := fmt.Errorf("receipt status %s", receipt.Status)
		if receipt.Status.IsInsufficientFunds() {
			return receipt, apperrors.InsufficientFundsError(statusErr, msg)
		}
		return receipt, apperrors.TransferRejectedError(statusErr, msg)
	}
	return receipt, nil
}
