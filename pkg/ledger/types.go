package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/shopspring/decimal"
)

// Kind names the type of a submitted transaction.
type Kind string

const (
	KindAccountCreate Kind = "account_create"
	KindTransfer      Kind = "transfer"
	KindTokenCreate   Kind = "token_create"
	KindTokenMint     Kind = "token_mint"
	KindAccountQuery  Kind = "account_query"
)

// Status is the consensus status carried by a receipt.
type Status string

const (
	StatusSuccess                    Status = "SUCCESS"
	StatusInsufficientPayerBalance   Status = "INSUFFICIENT_PAYER_BALANCE"
	StatusInsufficientAccountBalance Status = "INSUFFICIENT_ACCOUNT_BALANCE"
	StatusInvalidSignature           Status = "INVALID_SIGNATURE"
)

// IsSuccess reports whether the status is a successful consensus outcome.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// IsInsufficientFunds reports whether the rejection was caused by a lack of balance.
func (s Status) IsInsufficientFunds() bool {
	return s == StatusInsufficientPayerBalance || s == StatusInsufficientAccountBalance
}

// TokenType distinguishes fungible from non-fungible token classes.
type TokenType string

const (
	TokenTypeFungibleCommon    TokenType = "FUNGIBLE_COMMON"
	TokenTypeNonFungibleUnique TokenType = "NON_FUNGIBLE_UNIQUE"
)

// TinybarsPerHbar is the fixed subdivision of one hbar.
const TinybarsPerHbar = 100_000_000

// Tinybar is an amount of the network's native currency in its smallest unit.
type Tinybar int64

// HbarFromDecimal converts a decimal hbar amount into tinybars.
// Amounts with more than eight fractional digits are rejected.
func HbarFromDecimal(d decimal.Decimal) (Tinybar, error) {
	scaled := d.Shift(8)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than 8 decimal places", d.String())
	}
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || scaled.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return Tinybar(scaled.IntPart()), nil
}

// Hbar returns whole hbars as tinybars.
func Hbar(n int64) Tinybar { return Tinybar(n * TinybarsPerHbar) }

// String formats the amount in hbar.
func (t Tinybar) String() string {
	return decimal.New(int64(t), -8).String() + " ℏ"
}

// Transaction is a request that can be submitted to the network.
// Signers lists the keys that must co-sign in addition to the fee payer.
type Transaction interface {
	Kind() Kind
	Signers() []*keys.KeyPair
	Validate() error
}

// AccountCreate creates an account owned by Key with an initial balance paid by the operator.
type AccountCreate struct {
	Key            keys.PublicKey
	InitialBalance Tinybar
	Memo           string
}

func (t *AccountCreate) Kind() Kind               { return KindAccountCreate }
func (t *AccountCreate) Signers() []*keys.KeyPair { return nil }

func (t *AccountCreate) Validate() error {
	if t.Key.String() == "" {
		return errors.New("key is required")
	}
	if t.InitialBalance < 0 {
		return errors.New("initial balance must not be negative")
	}
	return nil
}

// TransferLine is one debit (negative) or credit (positive) line of a transfer.
type TransferLine struct {
	Account string
	Amount  Tinybar
}

// Transfer moves native currency between accounts. Lines must sum to zero.
type Transfer struct {
	Lines     []TransferLine
	Memo      string
	CoSigners []*keys.KeyPair
}

func (t *Transfer) Kind() Kind               { return KindTransfer }
func (t *Transfer) Signers() []*keys.KeyPair { return t.CoSigners }

func (t *Transfer) Validate() error {
	if len(t.Lines) < 2 {
		return errors.New("transfer needs at least two lines")
	}
	var sum Tinybar
	for _, l := range t.Lines {
		if l.Account == "" {
			return errors.New("transfer line account is required")
		}
		if l.Amount == 0 {
			return errors.New("transfer line amount must not be zero")
		}
		sum += l.Amount
	}
	if sum != 0 {
		return fmt.Errorf("transfer is unbalanced by %s", sum)
	}
	return nil
}

// TokenCreate creates a token class. The treasury key must be among CoSigners.
type TokenCreate struct {
	Name          string
	Symbol        string
	Type          TokenType
	Decimals      uint
	InitialSupply uint64
	Treasury      string
	SupplyKey     keys.PublicKey
	AdminKey      *keys.PublicKey
	MaxFee        Tinybar
	Memo          string
	CoSigners     []*keys.KeyPair
}

func (t *TokenCreate) Kind() Kind               { return KindTokenCreate }
func (t *TokenCreate) Signers() []*keys.KeyPair { return t.CoSigners }

func (t *TokenCreate) Validate() error {
	if t.Name == "" || t.Symbol == "" {
		return errors.New("token name and symbol are required")
	}
	if t.Treasury == "" {
		return errors.New("treasury is required")
	}
	if t.SupplyKey.String() == "" {
		return errors.New("supply key is required")
	}
	switch t.Type {
	case TokenTypeFungibleCommon:
	case TokenTypeNonFungibleUnique:
		if t.Decimals != 0 || t.InitialSupply != 0 {
			return errors.New("non-fungible tokens have no decimals or initial supply")
		}
	default:
		return fmt.Errorf("unknown token type %q", t.Type)
	}
	if len(t.CoSigners) == 0 {
		return errors.New("token creation must be co-signed by the treasury")
	}
	return nil
}

// TokenMint mints one non-fungible unit per metadata entry in a single batch.
type TokenMint struct {
	TokenID   string
	Metadata  [][]byte
	Memo      string
	CoSigners []*keys.KeyPair
}

func (t *TokenMint) Kind() Kind               { return KindTokenMint }
func (t *TokenMint) Signers() []*keys.KeyPair { return t.CoSigners }

func (t *TokenMint) Validate() error {
	if t.TokenID == "" {
		return errors.New("token id is required")
	}
	if len(t.Metadata) == 0 {
		return errors.New("at least one metadata entry is required")
	}
	for i, m := range t.Metadata {
		if len(m) == 0 {
			return fmt.Errorf("metadata entry %d is empty", i)
		}
	}
	if len(t.CoSigners) == 0 {
		return errors.New("mint must be co-signed by the supply key")
	}
	return nil
}

// PendingOperation is a submitted transaction whose outcome is not yet known.
type PendingOperation struct {
	TransactionID string
	Kind          Kind

	// Handle is owned by the Network implementation that produced the operation.
	Handle any
}

// Receipt is the consensus outcome of a transaction.
// Extracted fields are only meaningful when Status is success.
type Receipt struct {
	TransactionID string
	Kind          Kind
	Status        Status
	AccountID     string
	TokenID       string
	Serials       []int64
}

// AccountInfo is the result of an account state query.
type AccountInfo struct {
	AccountID string
	Alias     string
	Balance   Tinybar
}
