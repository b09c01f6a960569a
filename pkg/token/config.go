package token

import (
	"errors"
	"fmt"

	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
)

// AdminPolicy decides which key administers non-fungible classes.
type AdminPolicy string

const (
	// AdminPolicyTreasury uses the treasury account key as admin key.
	AdminPolicyTreasury AdminPolicy = "treasury"
	// AdminPolicyDedicated generates a fresh admin key per class.
	AdminPolicyDedicated AdminPolicy = "dedicated"
)

// ClassConfig names a token class.
type ClassConfig struct {
	Name          string
	Symbol        string
	Decimals      uint
	InitialSupply uint64
}

// Config contains the asset issuance parameters.
type Config struct {
	Fungible    ClassConfig
	NonFungible ClassConfig
	MaxFee      ledger.Tinybar
	AdminPolicy AdminPolicy
	Metadata    []string
	Memo        string
}

// DefaultConfig returns the issuance parameters used when none are configured.
func DefaultConfig() Config {
	return Config{
		Fungible: ClassConfig{
			Name:          "HederaFungible",
			Symbol:        "HFun",
			Decimals:      1,
			InitialSupply: 100,
		},
		NonFungible: ClassConfig{
			Name:   "HederaNFT",
			Symbol: "HNFT",
		},
		MaxFee:      ledger.Hbar(30),
		AdminPolicy: AdminPolicyTreasury,
		Metadata:    append([]string(nil), DefaultMetadata...),
	}
}

func (c *Config) validate() error {
	if c.Fungible.Name == "" || c.Fungible.Symbol == "" {
		return errors.New("fungible name and symbol are required")
	}
	if c.NonFungible.Name == "" || c.NonFungible.Symbol == "" {
		return errors.New("non-fungible name and symbol are required")
	}
	if c.NonFungible.Decimals != 0 || c.NonFungible.InitialSupply != 0 {
		return errors.New("non-fungible classes have no decimals or initial supply")
	}
	if c.MaxFee < 0 {
		return errors.New("max fee must not be negative")
	}
	switch c.AdminPolicy {
	case AdminPolicyTreasury, AdminPolicyDedicated:
	default:
		return fmt.Errorf("unknown admin policy %q", c.AdminPolicy)
	}
	if len(c.Metadata) != MetadataBatchSize {
		return fmt.Errorf("exactly %d metadata entries are required, got %d", MetadataBatchSize, len(c.Metadata))
	}
	return nil
}
