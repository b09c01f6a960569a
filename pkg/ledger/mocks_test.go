package ledger

import (
	"context"
)

// MockNetwork is a mock implementation of Network
type MockNetwork struct {
	SubmitFunc       func(ctx context.Context, tx Transaction) (*PendingOperation, error)
	AwaitReceiptFunc func(ctx context.Context, op *PendingOperation) (*Receipt, error)
	QueryAccountFunc func(ctx context.Context, ref string) (*AccountInfo, error)
	CloseFunc        func() error
}

func (m *MockNetwork) Submit(ctx context.Context, tx Transaction) (*PendingOperation, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, tx)
	}
	return &PendingOperation{TransactionID: "0.0.2@1", Kind: tx.Kind()}, nil
}

func (m *MockNetwork) AwaitReceipt(ctx context.Context, op *PendingOperation) (*Receipt, error) {
	if m.AwaitReceiptFunc != nil {
		return m.AwaitReceiptFunc(ctx, op)
	}
	return &Receipt{TransactionID: op.TransactionID, Kind: op.Kind, Status: StatusSuccess}, nil
}

func (m *MockNetwork) QueryAccount(ctx context.Context, ref string) (*AccountInfo, error) {
	if m.QueryAccountFunc != nil {
		return m.QueryAccountFunc(ctx, ref)
	}
	return nil, ErrAccountNotFound
}

func (m *MockNetwork) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
