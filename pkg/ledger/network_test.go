package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsafe/ledger-provisioner/internal/metrics"
	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
)

func transfer(amount Tinybar) *Transfer {
	return &Transfer{Lines: []TransferLine{
		{Account: "0.0.2", Amount: -amount},
		{Account: "0.0.3", Amount: amount},
	}}
}

func TestConfirm(t *testing.T) {
	var submitted, awaited int
	n := &MockNetwork{
		SubmitFunc: func(_ context.Context, tx Transaction) (*PendingOperation, error) {
			submitted++
			return &PendingOperation{TransactionID: "0.0.2@7", Kind: tx.Kind()}, nil
		},
		AwaitReceiptFunc: func(_ context.Context, op *PendingOperation) (*Receipt, error) {
			awaited++
			return &Receipt{TransactionID: op.TransactionID, Kind: op.Kind, Status: StatusSuccess}, nil
		},
	}

	r, err := Confirm(context.Background(), n, transfer(Hbar(1)))
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, "0.0.2@7", r.TransactionID)
	assert.Equal(t, 1, submitted)
	assert.Equal(t, 1, awaited)
}

func TestConfirm_InvalidTransactionIsNotSubmitted(t *testing.T) {
	n := &MockNetwork{
		SubmitFunc: func(context.Context, Transaction) (*PendingOperation, error) {
			t.Fatal("invalid transaction submitted")
			return nil, nil
		},
	}

	unbalanced := &Transfer{Lines: []TransferLine{{Account: "0.0.2", Amount: -2}, {Account: "0.0.3", Amount: 1}}}
	_, err := Confirm(context.Background(), n, unbalanced)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryGeneralError))
}

func TestConfirm_PrecheckRejectionBecomesReceipt(t *testing.T) {
	n := &MockNetwork{
		SubmitFunc: func(_ context.Context, tx Transaction) (*PendingOperation, error) {
			return nil, &RejectedError{Kind: tx.Kind(), Status: StatusInsufficientPayerBalance, TransactionID: "0.0.2@9"}
		},
		AwaitReceiptFunc: func(context.Context, *PendingOperation) (*Receipt, error) {
			t.Fatal("rejected transaction awaited")
			return nil, nil
		},
	}

	r, err := Confirm(context.Background(), n, transfer(Hbar(1)))
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientPayerBalance, r.Status)
	assert.Equal(t, KindTransfer, r.Kind)
	assert.Equal(t, "0.0.2@9", r.TransactionID)
}

func TestConfirm_TransportErrors(t *testing.T) {
	netErr := errors.New("connection reset")

	_, err := Confirm(context.Background(), &MockNetwork{
		SubmitFunc: func(context.Context, Transaction) (*PendingOperation, error) { return nil, netErr },
	}, transfer(Hbar(1)))
	require.ErrorIs(t, err, netErr)

	_, err = Confirm(context.Background(), &MockNetwork{
		AwaitReceiptFunc: func(context.Context, *PendingOperation) (*Receipt, error) { return nil, netErr },
	}, transfer(Hbar(1)))
	require.ErrorIs(t, err, netErr)

	_, err = Confirm(context.Background(), &MockNetwork{
		AwaitReceiptFunc: func(context.Context, *PendingOperation) (*Receipt, error) { return nil, nil },
	}, transfer(Hbar(1)))
	require.Error(t, err)
}

func TestTransactionValidate(t *testing.T) {
	kp, err := keys.Generate(keys.SchemeED25519)
	require.NoError(t, err)
	pub := kp.Public()

	tests := []struct {
		name    string
		tx      Transaction
		wantErr bool
	}{
		{"account create", &AccountCreate{Key: pub, InitialBalance: Hbar(10)}, false},
		{"account create without key", &AccountCreate{InitialBalance: Hbar(10)}, true},
		{"account create negative balance", &AccountCreate{Key: pub, InitialBalance: -1}, true},
		{"balanced transfer", transfer(Hbar(10)), false},
		{"single line transfer", &Transfer{Lines: []TransferLine{{Account: "0.0.2", Amount: 1}}}, true},
		{"zero line", &Transfer{Lines: []TransferLine{{Account: "0.0.2", Amount: 0}, {Account: "0.0.3", Amount: 0}}}, true},
		{"fungible create", &TokenCreate{
			Name: "F", Symbol: "F", Type: TokenTypeFungibleCommon, Decimals: 1, InitialSupply: 100,
			Treasury: "0.0.1001", SupplyKey: pub, CoSigners: []*keys.KeyPair{kp},
		}, false},
		{"nft with supply", &TokenCreate{
			Name: "N", Symbol: "N", Type: TokenTypeNonFungibleUnique, InitialSupply: 1,
			Treasury: "0.0.1001", SupplyKey: pub, CoSigners: []*keys.KeyPair{kp},
		}, true},
		{"create without treasury signature", &TokenCreate{
			Name: "F", Symbol: "F", Type: TokenTypeFungibleCommon, Treasury: "0.0.1001", SupplyKey: pub,
		}, true},
		{"create unknown type", &TokenCreate{
			Name: "F", Symbol: "F", Type: "SEMI", Treasury: "0.0.1001", SupplyKey: pub, CoSigners: []*keys.KeyPair{kp},
		}, true},
		{"mint", &TokenMint{TokenID: "0.0.5001", Metadata: [][]byte{[]byte("ipfs://x")}, CoSigners: []*keys.KeyPair{kp}}, false},
		{"mint empty entry", &TokenMint{TokenID: "0.0.5001", Metadata: [][]byte{{}}, CoSigners: []*keys.KeyPair{kp}}, true},
		{"mint unsigned", &TokenMint{TokenID: "0.0.5001", Metadata: [][]byte{[]byte("x")}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHbarFromDecimal(t *testing.T) {
	got, err := HbarFromDecimal(decimal.RequireFromString("10"))
	require.NoError(t, err)
	assert.Equal(t, Hbar(10), got)

	got, err = HbarFromDecimal(decimal.RequireFromString("0.00000001"))
	require.NoError(t, err)
	assert.Equal(t, Tinybar(1), got)

	_, err = HbarFromDecimal(decimal.RequireFromString("0.000000001"))
	assert.Error(t, err)

	_, err = HbarFromDecimal(decimal.RequireFromString("100000000000000"))
	assert.Error(t, err)

	assert.Equal(t, "1.5 ℏ", Tinybar(150_000_000).String())
}

func TestLogDecoratorPassesThrough(t *testing.T) {
	netErr := errors.New("boom")
	n := NewLog(&MockNetwork{
		QueryAccountFunc: func(context.Context, string) (*AccountInfo, error) { return nil, netErr },
		AwaitReceiptFunc: func(context.Context, *PendingOperation) (*Receipt, error) { return nil, nil },
	}, zap.NewNop())

	_, err := n.QueryAccount(context.Background(), "0.0.3")
	require.ErrorIs(t, err, netErr)

	op, err := n.Submit(context.Background(), transfer(Hbar(1)))
	require.NoError(t, err)

	r, err := n.AwaitReceipt(context.Background(), op)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestMeteredDecorator(t *testing.T) {
	n := NewMetered(&MockNetwork{
		SubmitFunc: func(_ context.Context, tx Transaction) (*PendingOperation, error) {
			if tx.Kind() == KindTokenMint {
				return nil, &RejectedError{Kind: tx.Kind(), Status: StatusInvalidSignature}
			}
			return &PendingOperation{TransactionID: "0.0.2@1", Kind: tx.Kind()}, nil
		},
	})

	submitted := testutil.ToFloat64(metrics.OperationsSubmitted.WithLabelValues(string(KindTransfer)))
	succeeded := testutil.ToFloat64(metrics.ReceiptsTotal.WithLabelValues(string(KindTransfer), string(StatusSuccess)))
	rejected := testutil.ToFloat64(metrics.ReceiptsTotal.WithLabelValues(string(KindTokenMint), string(StatusInvalidSignature)))
	notFound := testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("not_found"))

	_, err := Confirm(context.Background(), n, transfer(Hbar(1)))
	require.NoError(t, err)

	kp, err := keys.Generate(keys.SchemeED25519)
	require.NoError(t, err)
	r, err := Confirm(context.Background(), n, &TokenMint{TokenID: "0.0.5001", Metadata: [][]byte{[]byte("x")}, CoSigners: []*keys.KeyPair{kp}})
	require.NoError(t, err)
	assert.Equal(t, StatusInvalidSignature, r.Status)

	_, err = n.QueryAccount(context.Background(), "0.0.404")
	require.ErrorIs(t, err, ErrAccountNotFound)

	assert.Equal(t, submitted+1, testutil.ToFloat64(metrics.OperationsSubmitted.WithLabelValues(string(KindTransfer))))
	assert.Equal(t, succeeded+1, testutil.ToFloat64(metrics.ReceiptsTotal.WithLabelValues(string(KindTransfer), string(StatusSuccess))))
	assert.Equal(t, rejected+1, testutil.ToFloat64(metrics.ReceiptsTotal.WithLabelValues(string(KindTokenMint), string(StatusInvalidSignature))))
	assert.Equal(t, notFound+1, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("not_found")))
}
