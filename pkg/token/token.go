// Package token issues asset classes for a treasury account: one fungible
// class, one non-fungible class and a single batch mint of non-fungible units.
package token

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/identity"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
)

// Kind distinguishes fungible from non-fungible asset classes.
type Kind string

const (
	KindFungible    Kind = "fungible"
	KindNonFungible Kind = "non_fungible"
)

// AssetClass is a token class created on the ledger.
type AssetClass struct {
	ID        string
	Kind      Kind
	Treasury  string
	SupplyKey *keys.KeyPair
	// AdminKey is nil for classes without an admin key.
	AdminKey *keys.KeyPair
}

// MintedUnit is one non-fungible unit. Serial is zero when the network did not report it.
type MintedUnit struct {
	TokenID  string
	Serial   int64
	Metadata []byte
}

// Issued is the outcome of IssueAssets for one treasury.
type Issued struct {
	Fungible    AssetClass
	NonFungible AssetClass
	Minted      []MintedUnit
}

// KeySource produces the keys of new asset classes. label identifies the key
// within a run, e.g. "0.0.1001/nft/supply".
type KeySource func(scheme keys.Scheme, label string) (*keys.KeyPair, error)

// RandomKeys is the default KeySource: every key is freshly generated.
func RandomKeys(scheme keys.Scheme, _ string) (*keys.KeyPair, error) {
	return keys.Generate(scheme)
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithLogger sets the issuer logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Issuer) { i.logger = l }
}

// WithKeySource overrides how supply and admin keys are produced.
func WithKeySource(src KeySource) Option {
	return func(i *Issuer) { i.keySource = src }
}

// Issuer creates asset classes and mints units on a network.
type Issuer struct {
	network   ledger.Network
	cfg       Config
	metadata  [][]byte
	keySource KeySource
	logger    *zap.Logger
}

// NewIssuer validates cfg, including every metadata content reference.
func NewIssuer(network ledger.Network, cfg Config, opts ...Option) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, apperrors.ConfigError(err, "invalid token config")
	}
	metadata, err := EncodeMetadata(cfg.Metadata)
	if err != nil {
		return nil, apperrors.ConfigError(err, "invalid token metadata")
	}

	i := &Issuer{
		network:   network,
		cfg:       cfg,
		metadata:  metadata,
		keySource: RandomKeys,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i, nil
}

// IssueAssets creates the fungible class, then the non-fungible class, then
// mints the configured metadata batch into the non-fungible class. Steps run
// strictly in order; the first failure aborts the rest.
func (i *Issuer) IssueAssets(ctx context.Context, treasury identity.Account) (*Issued, error) {
	if treasury.ID == "" || treasury.Key == nil {
		return nil, apperrors.GeneralError(errors.New("treasury account id and key are required"))
	}

	logger := i.logger.With(zap.String("treasury", treasury.ID))

	fungible, err := i.createFungible(ctx, treasury, logger)
	if err != nil {
		return nil, err
	}

	nonFungible, err := i.createNonFungible(ctx, treasury, logger)
	if err != nil {
		return nil, err
	}

	minted, err := i.mint(ctx, nonFungible, logger)
	if err != nil {
		return nil, err
	}

	return &Issued{
		Fungible:    *fungible,
		NonFungible: *nonFungible,
		Minted:      minted,
	}, nil
}

func (i *Issuer) newKey(treasury identity.Account, label string) (*keys.KeyPair, error) {
	kp, err := i.keySource(keys.SchemeED25519, treasury.ID+"/"+label)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("generate %s key: %w", label, err))
	}
	if kp.Equal(treasury.Key) {
		return nil, apperrors.GeneralError(fmt.Errorf("%s key must differ from the treasury key", label))
	}
	return kp, nil
}

func (i *Issuer) createFungible(ctx context.Context, treasury identity.Account, logger *zap.Logger) (*AssetClass, error) {
	supplyKey, err := i.newKey(treasury, "ft/supply")
	if err != nil {
		return nil, err
	}

	logger.Info("Creating fungible token", zap.String("symbol", i.cfg.Fungible.Symbol))

	receipt, err := ledger.Confirm(ctx, i.network, &ledger.TokenCreate{
		Name:          i.cfg.Fungible.Name,
		Symbol:        i.cfg.Fungible.Symbol,
		Type:          ledger.TokenTypeFungibleCommon,
		Decimals:      i.cfg.Fungible.Decimals,
		InitialSupply: i.cfg.Fungible.InitialSupply,
		Treasury:      treasury.ID,
		SupplyKey:     supplyKey.Public(),
		MaxFee:        i.cfg.MaxFee,
		Memo:          i.cfg.Memo,
		CoSigners:     []*keys.KeyPair{treasury.Key},
	})
	if err := classCreated(receipt, err, "fungible"); err != nil {
		return nil, err
	}

	logger.Info("Fungible token created",
		zap.String("token_id", receipt.TokenID),
		zap.String("status", string(receipt.Status)),
	)

	return &AssetClass{
		ID:        receipt.TokenID,
		Kind:      KindFungible,
		Treasury:  treasury.ID,
		SupplyKey: supplyKey,
	}, nil
}

func (i *Issuer) createNonFungible(ctx context.Context, treasury identity.Account, logger *zap.Logger) (*AssetClass, error) {
	supplyKey, err := i.newKey(treasury, "nft/supply")
	if err != nil {
		return nil, err
	}

	coSigners := []*keys.KeyPair{treasury.Key}
	adminKey := treasury.Key
	if i.cfg.AdminPolicy == AdminPolicyDedicated {
		adminKey, err = i.newKey(treasury, "nft/admin")
		if err != nil {
			return nil, err
		}
		coSigners = append(coSigners, adminKey)
	}
	adminPublic := adminKey.Public()

	logger.Info("Creating non-fungible token",
		zap.String("symbol", i.cfg.NonFungible.Symbol),
		zap.String("admin_policy", string(i.cfg.AdminPolicy)),
	)

	receipt, err := ledger.Confirm(ctx, i.network, &ledger.TokenCreate{
		Name:      i.cfg.NonFungible.Name,
		Symbol:    i.cfg.NonFungible.Symbol,
		Type:      ledger.TokenTypeNonFungibleUnique,
		Treasury:  treasury.ID,
		SupplyKey: supplyKey.Public(),
		AdminKey:  &adminPublic,
		MaxFee:    i.cfg.MaxFee,
		Memo:      i.cfg.Memo,
		CoSigners: coSigners,
	})
	if err := classCreated(receipt, err, "non-fungible"); err != nil {
		return nil, err
	}

	logger.Info("Non-fungible token created",
		zap.String("token_id", receipt.TokenID),
		zap.String("status", string(receipt.Status)),
	)

	return &AssetClass{
		ID:        receipt.TokenID,
		Kind:      KindNonFungible,
		Treasury:  treasury.ID,
		SupplyKey: supplyKey,
		AdminKey:  adminKey,
	}, nil
}

func classCreated(receipt *ledger.Receipt, err error, what string) error {
	if err != nil {
		return err
	}
	if !receipt.Status.IsSuccess() {
		return apperrors.ClassCreationRejectedError(
			fmt.Errorf("receipt status %s", receipt.Status),
			what+" token creation rejected",
		)
	}
	if receipt.TokenID == "" {
		return apperrors.ClassCreationRejectedError(
			fmt.Errorf("transaction %s", receipt.TransactionID),
			what+" token creation succeeded without a token id",
		)
	}
	return nil
}

func (i *Issuer) mint(ctx context.Context, class *AssetClass, logger *zap.Logger) ([]MintedUnit, error) {
	logger.Info("Minting non-fungible units",
		zap.String("token_id", class.ID),
		zap.Int("count", len(i.metadata)),
	)

	receipt, err := ledger.Confirm(ctx, i.network, &ledger.TokenMint{
		TokenID:   class.ID,
		Metadata:  i.metadata,
		Memo:      i.cfg.Memo,
		CoSigners: []*keys.KeyPair{class.SupplyKey},
	})
	if err != nil {
		return nil, err
	}
	if !receipt.Status.IsSuccess() {
		return nil, apperrors.MintRejectedError(
			fmt.Errorf("receipt status %s", receipt.Status),
			fmt.Sprintf("mint into %s rejected", class.ID),
		)
	}
	if len(receipt.Serials) != 0 && len(receipt.Serials) != len(i.metadata) {
		return nil, apperrors.MintRejectedError(
			fmt.Errorf("got %d serials for %d metadata entries", len(receipt.Serials), len(i.metadata)),
			fmt.Sprintf("mint into %s incomplete", class.ID),
		)
	}

	logger.Info("Non-fungible units minted",
		zap.String("token_id", class.ID),
		zap.Int64s("serials", receipt.Serials),
		zap.String("status", string(receipt.Status)),
	)

	units := make([]MintedUnit, len(i.metadata))
	for n, m := range i.metadata {
		units[n] = MintedUnit{TokenID: class.ID, Metadata: m}
		if len(receipt.Serials) != 0 {
			units[n].Serial = receipt.Serials[n]
		}
	}
	return units, nil
}
