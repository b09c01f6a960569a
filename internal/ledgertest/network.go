// Package ledgertest provides an in-memory ledger.Network for tests.
//
// The fake applies transaction effects at receipt time, records every call in
// order and lets tests inject rejection statuses, transport errors and
// delayed alias visibility.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
	"github.com/chainsafe/ledger-provisioner/pkg/session"
)

// OperatorID is the account id used by sessions opened with OpenSession.
const OperatorID = "0.0.2"

// Call is one recorded invocation of the fake.
type Call struct {
	Method string // "submit", "await" or "query"
	Kind   ledger.Kind
	Ref    string
}

// Network is a fake ledger.Network. The zero value is not usable; call New.
type Network struct {
	// StatusFunc decides the receipt status of a transaction. Nil means success.
	StatusFunc func(tx ledger.Transaction) ledger.Status
	// SubmitErrFunc injects an error on submission. Nil means no error.
	SubmitErrFunc func(tx ledger.Transaction) error
	// QueryErrFunc injects an error on account queries before the lookup.
	QueryErrFunc func(ref string) error
	// NotReady is the number of queries per alias answered with ErrAccountNotFound
	// after the alias was funded.
	NotReady int

	mu          sync.Mutex
	calls       []Call
	submitted   []ledger.Transaction
	pending     map[int]ledger.Transaction
	aliases     map[string]string
	accounts    map[string]bool
	queries     map[string]int
	minted      map[string][][]byte
	tokens      map[string]*ledger.TokenCreate
	nextAccount int
	nextToken   int
	closed      int
}

// New returns an empty fake network.
func New() *Network {
	return &Network{
		pending:     make(map[int]ledger.Transaction),
		aliases:     make(map[string]string),
		accounts:    map[string]bool{OperatorID: true},
		queries:     make(map[string]int),
		minted:      make(map[string][][]byte),
		tokens:      make(map[string]*ledger.TokenCreate),
		nextAccount: 1001,
		nextToken:   5001,
	}
}

var _ ledger.Network = (*Network)(nil)

func (n *Network) Submit(_ context.Context, tx ledger.Transaction) (*ledger.PendingOperation, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, Call{Method: "submit", Kind: tx.Kind()})
	if n.SubmitErrFunc != nil {
		if err := n.SubmitErrFunc(tx); err != nil {
			return nil, err
		}
	}

	idx := len(n.submitted)
	n.submitted = append(n.submitted, tx)
	n.pending[idx] = tx
	return &ledger.PendingOperation{
		TransactionID: fmt.Sprintf("%s@%d", OperatorID, idx),
		Kind:          tx.Kind(),
		Handle:        idx,
	}, nil
}

func (n *Network) AwaitReceipt(_ context.Context, op *ledger.PendingOperation) (*ledger.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, Call{Method: "await", Kind: op.Kind})

	idx, ok := op.Handle.(int)
	if !ok {
		return nil, fmt.Errorf("unknown pending operation %s", op.TransactionID)
	}
	tx, ok := n.pending[idx]
	if !ok {
		return nil, fmt.Errorf("pending operation %s already awaited", op.TransactionID)
	}
	delete(n.pending, idx)

	receipt := &ledger.Receipt{
		TransactionID: op.TransactionID,
		Kind:          op.Kind,
		Status:        ledger.StatusSuccess,
	}
	if n.StatusFunc != nil {
		receipt.Status = n.StatusFunc(tx)
	}
	if !receipt.Status.IsSuccess() {
		return receipt, nil
	}

	switch t := tx.(type) {
	case *ledger.AccountCreate:
		receipt.AccountID = n.newAccount()
	case *ledger.Transfer:
		for _, line := range t.Lines {
			if line.Amount > 0 && !n.accounts[line.Account] {
				if _, funded := n.aliases[line.Account]; !funded {
					n.aliases[line.Account] = n.newAccount()
				}
			}
		}
	case *ledger.TokenCreate:
		id := fmt.Sprintf("0.0.%d", n.nextToken)
		n.nextToken++
		n.tokens[id] = t
		receipt.TokenID = id
	case *ledger.TokenMint:
		start := len(n.minted[t.TokenID])
		n.minted[t.TokenID] = append(n.minted[t.TokenID], t.Metadata...)
		for i := range t.Metadata {
			receipt.Serials = append(receipt.Serials, int64(start+i+1))
		}
	}
	return receipt, nil
}

func (n *Network) newAccount() string {
	id := fmt.Sprintf("0.0.%d", n.nextAccount)
	n.nextAccount++
	n.accounts[id] = true
	return id
}

func (n *Network) QueryAccount(_ context.Context, ref string) (*ledger.AccountInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.calls = append(n.calls, Call{Method: "query", Kind: ledger.KindAccountQuery, Ref: ref})
	if n.QueryErrFunc != nil {
		if err := n.QueryErrFunc(ref); err != nil {
			return nil, err
		}
	}

	if n.accounts[ref] {
		return &ledger.AccountInfo{AccountID: ref}, nil
	}
	id, funded := n.aliases[ref]
	if !funded {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, ref)
	}
	n.queries[ref]++
	if n.queries[ref] <= n.NotReady {
		return nil, fmt.Errorf("%w: %s not yet visible", ledger.ErrAccountNotFound, ref)
	}
	return &ledger.AccountInfo{AccountID: id, Alias: ref}, nil
}

func (n *Network) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed++
	return nil
}

// Calls returns a copy of the recorded calls in order.
func (n *Network) Calls() []Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Call(nil), n.calls...)
}

// Submitted returns the submitted transactions in order.
func (n *Network) Submitted() []ledger.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ledger.Transaction(nil), n.submitted...)
}

// SubmittedOfKind returns the submitted transactions of one kind in order.
func (n *Network) SubmittedOfKind(kind ledger.Kind) []ledger.Transaction {
	var out []ledger.Transaction
	for _, tx := range n.Submitted() {
		if tx.Kind() == kind {
			out = append(out, tx)
		}
	}
	return out
}

// Minted returns the metadata minted for a token.
func (n *Network) Minted(tokenID string) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]byte(nil), n.minted[tokenID]...)
}

// Token returns the creation request of a token.
func (n *Network) Token(tokenID string) *ledger.TokenCreate {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[tokenID]
}

// Queries returns how many times an alias was queried after funding.
func (n *Network) Queries(ref string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.queries[ref]
}

// CloseCount returns how many times Close reached the fake.
func (n *Network) CloseCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// Dial is a session.Dialer returning the fake.
func (n *Network) Dial(_ context.Context, _ session.DialConfig) (ledger.Network, error) {
	return n, nil
}

// OpenSession opens a session backed by n with a freshly generated operator key.
// The session is closed when the test ends.
func OpenSession(t *testing.T, n *Network, opts ...session.Option) *session.Session {
	t.Helper()

	operatorKey, err := keys.Generate(keys.SchemeED25519)
	if err != nil {
		t.Fatalf("failed to generate operator key: %v", err)
	}

	opts = append([]session.Option{session.WithDialer(n.Dial)}, opts...)
	sess, err := session.Open(context.Background(), session.Config{
		Network:     "testnet",
		OperatorID:  OperatorID,
		OperatorKey: operatorKey.PrivateKeyString(),
	}, opts...)
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

// Signed reports whether kp is among the co-signers of tx.
func Signed(tx ledger.Transaction, kp *keys.KeyPair) bool {
	for _, s := range tx.Signers() {
		if s.Equal(kp) {
			return true
		}
	}
	return false
}
