package hashgraph

import (
	"context"
	"errors"
	"fmt"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
)

// classify converts an SDK error into a ledger or application error.
//
// Precheck rejections become *ledger.RejectedError. Statuses the SDK retries on
// its own only reach us once the attempt budget is spent, so they are
// NetworkUnavailable, as is any transport failure.
func classify(kind ledger.Kind, err error) error {
	if st, ok := precheckStatus(err); ok {
		if isTransient(st) {
			return apperrors.NetworkUnavailableError(err,
				fmt.Sprintf("%s: retry policy exhausted (%s)", kind, st.String()))
		}
		rejected := &ledger.RejectedError{Kind: kind, Status: ledger.Status(st.String())}
		var pre hedera.ErrHederaPreCheckStatus
		if errors.As(err, &pre) && pre.TxID.AccountID != nil {
			rejected.TransactionID = pre.TxID.String()
		}
		return rejected
	}

	if st, ok := receiptStatus(err); ok && isTransient(st) {
		return apperrors.NetworkUnavailableError(err,
			fmt.Sprintf("%s: receipt unavailable (%s)", kind, st.String()))
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NetworkUnavailableError(err, fmt.Sprintf("%s interrupted", kind))
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return apperrors.NetworkUnavailableError(err, fmt.Sprintf("%s: transport unavailable", kind))
		}
	}

	return apperrors.GeneralError(fmt.Errorf("%s: %w", kind, err))
}

// isTransient reports statuses the SDK treats as retryable.
func isTransient(st hedera.Status) bool {
	switch st {
	case hedera.StatusBusy,
		hedera.StatusPlatformTransactionNotCreated,
		hedera.StatusPlatformNotActive,
		hedera.StatusUnknown,
		hedera.StatusReceiptNotFound,
		hedera.StatusRecordNotFound:
		return true
	}
	return false
}

// precheckStatus extracts the status of a precheck rejection.
func precheckStatus(err error) (hedera.Status, bool) {
	var pre hedera.ErrHederaPreCheckStatus
	if errors.As(err, &pre) {
		return pre.Status, true
	}
	var preRef *hedera.ErrHederaPreCheckStatus
	if errors.As(err, &preRef) && preRef != nil {
		return preRef.Status, true
	}
	return 0, false
}

// receiptStatus extracts the status of a receipt the SDK reported as an error.
func receiptStatus(err error) (hedera.Status, bool) {
	var rs hedera.ErrHederaReceiptStatus
	if errors.As(err, &rs) {
		return rs.Status, true
	}
	var rsRef *hedera.ErrHederaReceiptStatus
	if errors.As(err, &rsRef) && rsRef != nil {
		return rsRef.Status, true
	}
	return 0, false
}

func isNotFound(st hedera.Status) bool {
	return st == hedera.StatusInvalidAccountID || st == hedera.StatusAccountDeleted
}
