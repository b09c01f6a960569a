// Package hashgraph implements ledger.Network on top of the Hedera Go SDK.
//
// It owns the operator-authenticated SDK client, applies the transport retry
// policy and translates ledger requests into SDK transactions, signing each
// with the co-signers the request names before execution.
package hashgraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"go.uber.org/zap"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
)

// sdkDefaultMaxBackoff is the SDK's max backoff before any override.
// Backoff setters reject a min above the current max, so order matters.
const sdkDefaultMaxBackoff = 8 * time.Second

// Client is the Hedera implementation of ledger.Network.
type Client struct {
	cfg    *Config
	logger *zap.Logger
	client *hedera.Client
}

var _ ledger.Network = (*Client)(nil)

// New creates a Hedera client for the configured network and operator.
// No request is sent until the first Submit or QueryAccount.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, apperrors.ConfigError(err, "invalid network config")
	}
	s := applyOptions(opts)

	operatorID, err := hedera.AccountIDFromString(cfg.OperatorID)
	if err != nil {
		return nil, apperrors.ConfigError(err, "invalid operator account id")
	}

	client, err := clientForNetwork(cfg)
	if err != nil {
		return nil, err
	}

	client.SetOperator(operatorID, cfg.OperatorKey.Hedera())
	client.SetMaxAttempts(cfg.MaxAttempts)
	if cfg.MinBackoff > sdkDefaultMaxBackoff {
		client.SetMaxBackoff(cfg.MaxBackoff)
		client.SetMinBackoff(cfg.MinBackoff)
	} else {
		client.SetMinBackoff(cfg.MinBackoff)
		client.SetMaxBackoff(cfg.MaxBackoff)
	}

	s.logger.Info("Connected to Hedera network",
		zap.String("network", cfg.Network),
		zap.String("operator_id", operatorID.String()),
		zap.Int("max_attempts", cfg.MaxAttempts),
		zap.Duration("min_backoff", cfg.MinBackoff),
		zap.Duration("max_backoff", cfg.MaxBackoff),
	)

	return &Client{cfg: cfg, logger: s.logger, client: client}, nil
}

func clientForNetwork(cfg *Config) (*hedera.Client, error) {
	switch cfg.Network {
	case NetworkTestnet:
		return hedera.ClientForTestnet(), nil
	case NetworkPreviewnet:
		return hedera.ClientForPreviewnet(), nil
	case NetworkMainnet:
		return hedera.ClientForMainnet(), nil
	case NetworkLocal:
		client := hedera.ClientForNetwork(map[string]hedera.AccountID{
			cfg.LocalNode: {Account: 3},
		})
		if cfg.LocalMirror != "" {
			client.SetMirrorNetwork([]string{cfg.LocalMirror})
		}
		return client, nil
	default:
		return nil, apperrors.ConfigError(nil, fmt.Sprintf("unknown network %q", cfg.Network))
	}
}

// Close closes the SDK client and its connections.
func (c *Client) Close() error {
	return c.client.Close()
}

// executable is the subset of SDK transaction methods shared by every transaction type.
type executable[T any] interface {
	FreezeWith(client *hedera.Client) (T, error)
	Sign(privateKey hedera.PrivateKey) T
	Execute(client *hedera.Client) (hedera.TransactionResponse, error)
}

func signAndExecute[T executable[T]](client *hedera.Client, tx T, signers []*keys.KeyPair) (hedera.TransactionResponse, error) {
	frozen, err := tx.FreezeWith(client)
	if err != nil {
		return hedera.TransactionResponse{}, fmt.Errorf("freeze transaction: %w", err)
	}
	for _, s := range signers {
		frozen = frozen.Sign(s.Hedera())
	}
	return frozen.Execute(client)
}

// Submit builds, signs and executes the SDK transaction for tx.
func (c *Client) Submit(ctx context.Context, tx ledger.Transaction) (*ledger.PendingOperation, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NetworkUnavailableError(err, "submit cancelled")
	}

	var (
		resp hedera.TransactionResponse
		err  error
	)

	switch t := tx.(type) {
	case *ledger.AccountCreate:
		resp, err = c.submitAccountCreate(t)
	case *ledger.Transfer:
		resp, err = c.submitTransfer(t)
	case *ledger.TokenCreate:
		resp, err = c.submitTokenCreate(t)
	case *ledger.TokenMint:
		resp, err = c.submitTokenMint(t)
	default:
		return nil, apperrors.GeneralError(fmt.Errorf("unsupported transaction %T", tx))
	}
	if err != nil {
		return nil, classify(tx.Kind(), err)
	}

	return &ledger.PendingOperation{
		TransactionID: resp.TransactionID.String(),
		Kind:          tx.Kind(),
		Handle:        resp,
	}, nil
}

func (c *Client) submitAccountCreate(t *ledger.AccountCreate) (hedera.TransactionResponse, error) {
	tx := hedera.NewAccountCreateTransaction().
		SetKey(t.Key.Hedera()).
		SetInitialBalance(hedera.HbarFromTinybar(int64(t.InitialBalance)))
	if t.Memo != "" {
		tx.SetTransactionMemo(t.Memo)
	}
	return signAndExecute(c.client, tx, t.Signers())
}

func (c *Client) submitTransfer(t *ledger.Transfer) (hedera.TransactionResponse, error) {
	tx := hedera.NewTransferTransaction()
	for _, line := range t.Lines {
		id, err := hedera.AccountIDFromString(line.Account)
		if err != nil {
			return hedera.TransactionResponse{}, fmt.Errorf("parse account %q: %w", line.Account, err)
		}
		tx.AddHbarTransfer(id, hedera.HbarFromTinybar(int64(line.Amount)))
	}
	if t.Memo != "" {
		tx.SetTransactionMemo(t.Memo)
	}
	return signAndExecute(c.client, tx, t.Signers())
}

func (c *Client) submitTokenCreate(t *ledger.TokenCreate) (hedera.TransactionResponse, error) {
	treasury, err := hedera.AccountIDFromString(t.Treasury)
	if err != nil {
		return hedera.TransactionResponse{}, fmt.Errorf("parse treasury %q: %w", t.Treasury, err)
	}

	tokenType := hedera.TokenTypeFungibleCommon
	if t.Type == ledger.TokenTypeNonFungibleUnique {
		tokenType = hedera.TokenTypeNonFungibleUnique
	}

	tx := hedera.NewTokenCreateTransaction().
		SetTokenName(t.Name).
		SetTokenSymbol(t.Symbol).
		SetTokenType(tokenType).
		SetTreasuryAccountID(treasury).
		SetSupplyKey(t.SupplyKey.Hedera())
	if t.Type == ledger.TokenTypeFungibleCommon {
		tx.SetDecimals(t.Decimals).SetInitialSupply(t.InitialSupply)
	}
	if t.AdminKey != nil {
		tx.SetAdminKey(t.AdminKey.Hedera())
	}
	if t.MaxFee > 0 {
		tx.SetMaxTransactionFee(hedera.HbarFromTinybar(int64(t.MaxFee)))
	}
	if t.Memo != "" {
		tx.SetTransactionMemo(t.Memo)
	}
	return signAndExecute(c.client, tx, t.Signers())
}

func (c *Client) submitTokenMint(t *ledger.TokenMint) (hedera.TransactionResponse, error) {
	tokenID, err := hedera.TokenIDFromString(t.TokenID)
	if err != nil {
		return hedera.TransactionResponse{}, fmt.Errorf("parse token id %q: %w", t.TokenID, err)
	}

	tx := hedera.NewTokenMintTransaction().
		SetTokenID(tokenID).
		SetMetadatas(t.Metadata)
	if t.Memo != "" {
		tx.SetTransactionMemo(t.Memo)
	}
	return signAndExecute(c.client, tx, t.Signers())
}

// AwaitReceipt blocks on the receipt query for op.
func (c *Client) AwaitReceipt(ctx context.Context, op *ledger.PendingOperation) (*ledger.Receipt, error) {
	if op == nil {
		return nil, apperrors.GeneralError(errors.New("nil pending operation"))
	}
	resp, ok := op.Handle.(hedera.TransactionResponse)
	if !ok {
		return nil, apperrors.GeneralError(fmt.Errorf("pending operation %s was not produced by this client", op.TransactionID))
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NetworkUnavailableError(err, "await receipt cancelled")
	}

	receipt, err := resp.GetReceipt(c.client)
	if err != nil {
		if st, ok := receiptStatus(err); ok && !isTransient(st) {
			return &ledger.Receipt{
				TransactionID: op.TransactionID,
				Kind:          op.Kind,
				Status:        ledger.Status(st.String()),
			}, nil
		}
		return nil, receiptError(op, classify(op.Kind, err))
	}

	out := &ledger.Receipt{
		TransactionID: op.TransactionID,
		Kind:          op.Kind,
		Status:        ledger.Status(receipt.Status.String()),
		Serials:       receipt.SerialNumbers,
	}
	if receipt.AccountID != nil {
		out.AccountID = receipt.AccountID.String()
	}
	if receipt.TokenID != nil {
		out.TokenID = receipt.TokenID.String()
	}
	return out, nil
}

// receiptError reports a precheck rejection of the receipt query itself. The
// status belongs to the query, not to the transaction, so it is not a receipt.
func receiptError(op *ledger.PendingOperation, err error) error {
	var rejected *ledger.RejectedError
	if errors.As(err, &rejected) {
		return apperrors.GeneralError(fmt.Errorf("%s %s: receipt query rejected with %s",
			op.Kind, op.TransactionID, rejected.Status))
	}
	return err
}

// QueryAccount runs an account info query. Aliases are accepted as references.
func (c *Client) QueryAccount(ctx context.Context, ref string) (*ledger.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NetworkUnavailableError(err, "account query cancelled")
	}

	id, err := hedera.AccountIDFromString(ref)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("parse account reference %q: %w", ref, err))
	}

	info, err := hedera.NewAccountInfoQuery().
		SetAccountID(id).
		Execute(c.client)
	if err != nil {
		if st, ok := precheckStatus(err); ok && isNotFound(st) {
			return nil, fmt.Errorf("%w: %s (%s)", ledger.ErrAccountNotFound, ref, st.String())
		}
		return nil, classify(ledger.KindAccountQuery, err)
	}

	return &ledger.AccountInfo{
		AccountID: info.AccountID.String(),
		Alias:     ref,
		Balance:   ledger.Tinybar(info.Balance.AsTinybar()),
	}, nil
}
