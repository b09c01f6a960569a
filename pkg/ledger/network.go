// Package ledger defines the capabilities consumed from the ledger network:
// submitting transactions, awaiting their receipts and querying account state.
//
// Implementations own transport retries and backoff. Callers treat every
// PendingOperation as untrusted until AwaitReceipt returns a receipt.
package ledger

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
)

// ErrAccountNotFound is returned by QueryAccount when the reference does not
// (yet) resolve to an account.
var ErrAccountNotFound = errors.New("account not found")

// Network is the submit-and-confirm and state-query capability of the ledger.
// Implementations must be safe for concurrent use.
type Network interface {
	// Submit sends the transaction and returns without waiting for consensus.
	Submit(ctx context.Context, tx Transaction) (*PendingOperation, error)

	// AwaitReceipt blocks until the operation reaches finality.
	// A non-success status is reported in the receipt, not as an error.
	AwaitReceipt(ctx context.Context, op *PendingOperation) (*Receipt, error)

	// QueryAccount resolves an account id or alias reference to the current account.
	QueryAccount(ctx context.Context, ref string) (*AccountInfo, error)

	// Close releases the connection.
	Close() error
}

// RejectedError is returned by Submit when the network refuses a transaction
// before consensus (precheck).
type RejectedError struct {
	Kind          Kind
	Status        Status
	TransactionID string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected at precheck with status %s", e.Kind, e.Status)
}

// Confirm submits tx and awaits its receipt.
//
// Precheck rejections are folded into a receipt carrying the rejection status so
// callers classify every business rejection from the receipt alone. Errors returned
// are transport failures.
func Confirm(ctx context.Context, n Network, tx Transaction) (*Receipt, error) {
	if err := tx.Validate(); err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("invalid %s: %w", tx.Kind(), err))
	}

	op, err := n.Submit(ctx, tx)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			return &Receipt{
				TransactionID: rejected.TransactionID,
				Kind:          tx.Kind(),
				Status:        rejected.Status,
			}, nil
		}
		return nil, err
	}

	receipt, err := n.AwaitReceipt(ctx, op)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperrors.GeneralError(fmt.Errorf("%s: network returned no receipt", tx.Kind()))
	}
	return receipt, nil
}
