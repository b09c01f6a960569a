package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chainsafe/ledger-provisioner/internal/metrics"
)

// meteredNetwork records submission, receipt and query metrics.
type meteredNetwork struct {
	next Network

	mu      sync.Mutex
	started map[*PendingOperation]time.Time
}

// NewMetered creates a metrics decorator for a Network.
func NewMetered(next Network) Network {
	return &meteredNetwork{next: next, started: make(map[*PendingOperation]time.Time)}
}

func (m *meteredNetwork) Submit(ctx context.Context, tx Transaction) (*PendingOperation, error) {
	start := time.Now()
	op, err := m.next.Submit(ctx, tx)
	metrics.OperationsSubmitted.WithLabelValues(string(tx.Kind())).Inc()
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			metrics.ReceiptsTotal.WithLabelValues(string(tx.Kind()), string(rejected.Status)).Inc()
		}
		return nil, err
	}

	m.mu.Lock()
	m.started[op] = start
	m.mu.Unlock()
	return op, nil
}

func (m *meteredNetwork) AwaitReceipt(ctx context.Context, op *PendingOperation) (*Receipt, error) {
	r, err := m.next.AwaitReceipt(ctx, op)

	m.mu.Lock()
	start, ok := m.started[op]
	delete(m.started, op)
	m.mu.Unlock()

	if ok {
		metrics.OperationDuration.WithLabelValues(string(op.Kind)).Observe(time.Since(start).Seconds())
	}
	if err != nil || r == nil {
		return r, err
	}
	metrics.ReceiptsTotal.WithLabelValues(string(op.Kind), string(r.Status)).Inc()
	return r, nil
}

func (m *meteredNetwork) QueryAccount(ctx context.Context, ref string) (*AccountInfo, error) {
	info, err := m.next.QueryAccount(ctx, ref)
	switch {
	case err == nil:
		metrics.QueriesTotal.WithLabelValues("found").Inc()
	case errors.Is(err, ErrAccountNotFound):
		metrics.QueriesTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.QueriesTotal.WithLabelValues("error").Inc()
	}
	return info, err
}

func (m *meteredNetwork) Close() error { return m.next.Close() }
