package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// logNetwork wraps Network with logging of every call
type logNetwork struct {
	next   Network
	logger *zap.Logger
}

// NewLog creates a logging decorator for a Network.
// It logs submissions, receipts, queries, durations and errors. Keys are never logged.
func NewLog(next Network, logger *zap.Logger) Network {
	return &logNetwork{next: next, logger: logger}
}

func (l *logNetwork) Submit(ctx context.Context, tx Transaction) (op *PendingOperation, err error) {
	start := time.Now()

	l.logger.Debug("Submitting transaction",
		zap.String("kind", string(tx.Kind())),
		zap.Int("co_signers", len(tx.Signers())),
	)

	defer func() {
		if err != nil {
			l.logger.Warn("Transaction submission failed",
				zap.String("kind", string(tx.Kind())),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		l.logger.Debug("Transaction submitted",
			zap.String("kind", string(tx.Kind())),
			zap.String("tx_id", op.TransactionID),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	return l.next.Submit(ctx, tx)
}

func (l *logNetwork) AwaitReceipt(ctx context.Context, op *PendingOperation) (r *Receipt, err error) {
	start := time.Now()

	defer func() {
		if err != nil || r == nil {
			l.logger.Warn("Awaiting receipt failed",
				zap.String("kind", string(op.Kind)),
				zap.String("tx_id", op.TransactionID),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		l.logger.Info("Receipt received",
			zap.String("kind", string(op.Kind)),
			zap.String("tx_id", op.TransactionID),
			zap.String("status", string(r.Status)),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	return l.next.AwaitReceipt(ctx, op)
}

func (l *logNetwork) QueryAccount(ctx context.Context, ref string) (info *AccountInfo, err error) {
	start := time.Now()

	defer func() {
		if err != nil || info == nil {
			l.logger.Debug("Account query failed",
				zap.String("ref", ref),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		l.logger.Debug("Account query completed",
			zap.String("ref", ref),
			zap.String("account_id", info.AccountID),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	return l.next.QueryAccount(ctx, ref)
}

func (l *logNetwork) Close() error {
	l.logger.Debug("Closing network connection")
	return l.next.Close()
}
