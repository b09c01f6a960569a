package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/identity"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
	"github.com/chainsafe/ledger-provisioner/pkg/provision"
	"github.com/chainsafe/ledger-provisioner/pkg/session"
	"github.com/chainsafe/ledger-provisioner/pkg/token"
)

// Environment variables overriding the file. The MY_* names are accepted for
// compatibility with existing .env files.
const (
	EnvOperatorID        = "OPERATOR_ID"
	EnvOperatorKey       = "OPERATOR_KEY"
	EnvOperatorKeyScheme = "OPERATOR_KEY_SCHEME"
	EnvLegacyAccountID   = "MY_ACCOUNT_ID"
	EnvLegacyPrivateKey  = "MY_PRIVATE_KEY"
	EnvNetwork           = "HEDERA_NETWORK"
	EnvLogLevel          = "LOG_LEVEL"
)

// Config represents the provisioner configuration
type Config struct {
	Network    NetworkConfig    `yaml:"network"`
	Operator   OperatorConfig   `yaml:"operator"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Accounts   AccountsConfig   `yaml:"accounts"`
	Tokens     TokensConfig     `yaml:"tokens"`
	Keys       KeysConfig       `yaml:"keys"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Parallel   bool             `yaml:"parallel"`
}

// NetworkConfig selects the ledger network
type NetworkConfig struct {
	Name        string `yaml:"name" default:"testnet" validate:"oneof=testnet previewnet mainnet local"`
	LocalNode   string `yaml:"local_node" validate:"required_if=Name local"`
	LocalMirror string `yaml:"local_mirror"`
}

// OperatorConfig contains the fee-paying account credentials
type OperatorConfig struct {
	AccountID  string `yaml:"account_id" validate:"required"`
	PrivateKey string `yaml:"private_key" validate:"required"`
	KeyScheme  string `yaml:"key_scheme" validate:"omitempty,oneof=ed25519 ecdsa secp256k1"`
}

// ResilienceConfig contains the transport retry policy
type ResilienceConfig struct {
	MinBackoff  time.Duration `yaml:"min_backoff" default:"10ms" validate:"gt=0"`
	MaxBackoff  time.Duration `yaml:"max_backoff" default:"100ms" validate:"gtefield=MinBackoff"`
	MaxAttempts int           `yaml:"max_attempts" default:"50" validate:"min=1"`
}

// AccountsConfig contains account funding settings. Amounts are in hbar.
type AccountsConfig struct {
	InitialBalance  string        `yaml:"initial_balance" default:"10" validate:"nonnegative_amount"`
	AliasFunding    string        `yaml:"alias_funding" default:"10" validate:"positive_amount"`
	ResolveAttempts int           `yaml:"resolve_attempts" default:"5" validate:"min=1"`
	ResolveInterval time.Duration `yaml:"resolve_interval" default:"500ms" validate:"gt=0"`
}

// TokensConfig contains asset issuance settings
type TokensConfig struct {
	Fungible    FungibleConfig    `yaml:"fungible"`
	NonFungible NonFungibleConfig `yaml:"non_fungible"`
	MaxFee      string            `yaml:"max_fee" default:"30" validate:"nonnegative_amount"`
	AdminPolicy string            `yaml:"admin_policy" default:"treasury" validate:"oneof=treasury dedicated"`
	Metadata    []string          `yaml:"metadata" validate:"omitempty,len=5,dive,required"`
}

// FungibleConfig names the fungible class
type FungibleConfig struct {
	Name          string `yaml:"name" default:"HederaFungible" validate:"required"`
	Symbol        string `yaml:"symbol" default:"HFun" validate:"required"`
	Decimals      uint   `yaml:"decimals" default:"1"`
	InitialSupply uint64 `yaml:"initial_supply" default:"100"`
}

// NonFungibleConfig names the non-fungible class
type NonFungibleConfig struct {
	Name   string `yaml:"name" default:"HederaNFT" validate:"required"`
	Symbol string `yaml:"symbol" default:"HNFT" validate:"required"`
}

// KeysConfig contains key generation settings
type KeysConfig struct {
	// Seed is a hex seed making every generated key deterministic. Empty means random keys.
	Seed string `yaml:"seed" validate:"omitempty,hexadecimal,min=64"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stderr"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	PushURL string `yaml:"push_url" validate:"omitempty,url"`
	Job     string `yaml:"job" default:"ledger_provisioner"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func getValidator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	return validate, errValidate
}

func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	amount := func(accept func(decimal.Decimal) bool) validator.Func {
		return func(fl validator.FieldLevel) bool {
			str := fl.Field().String()
			if str == "" {
				return true // Let required tag handle empty strings
			}
			d, err := decimal.NewFromString(str)
			if err != nil {
				return false
			}
			return accept(d)
		}
	}

	if err := vld.RegisterValidation("positive_amount", amount(decimal.Decimal.IsPositive)); err != nil {
		return nil, fmt.Errorf("failed to register 'positive_amount': %w", err)
	}
	nonNegative := func(d decimal.Decimal) bool { return !d.IsNegative() }
	if err := vld.RegisterValidation("nonnegative_amount", amount(nonNegative)); err != nil {
		return nil, fmt.Errorf("failed to register 'nonnegative_amount': %w", err)
	}
	return vld, nil
}

// Load loads configuration from an optional YAML file and environment variables.
// Defaults are applied first, so explicit zero values in the file are kept.
// Environment variables take precedence over the file. Every failure is a
// CategoryConfig error.
func Load(configPath string) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, apperrors.ConfigError(err, "failed to apply config defaults")
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, apperrors.ConfigError(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, apperrors.ConfigError(err, "failed to parse config file")
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.ConfigError(err, "config validation failed")
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Operator.AccountID, EnvOperatorID, EnvLegacyAccountID)
	setFromEnv(&cfg.Operator.PrivateKey, EnvOperatorKey, EnvLegacyPrivateKey)
	setFromEnv(&cfg.Operator.KeyScheme, EnvOperatorKeyScheme)
	setFromEnv(&cfg.Network.Name, EnvNetwork)
	setFromEnv(&cfg.Logging.Level, EnvLogLevel)
}

// setFromEnv overwrites dst with the first non-empty variable among names.
func setFromEnv(dst *string, names ...string) {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
			return
		}
	}
}

// Validate checks the configuration against its validation tags.
func (c *Config) Validate() error {
	vld, err := getValidator()
	if err != nil {
		return err
	}
	if err := vld.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return fmt.Errorf("%s is required", fe.Namespace())
			}
			return fmt.Errorf("%s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return err
	}
	return nil
}

// Session returns the session settings.
func (c *Config) Session() session.Config {
	return session.Config{
		Network:           c.Network.Name,
		OperatorID:        c.Operator.AccountID,
		OperatorKey:       c.Operator.PrivateKey,
		OperatorKeyScheme: c.Operator.KeyScheme,
		Resilience: session.Resilience{
			MinBackoff:  c.Resilience.MinBackoff,
			MaxBackoff:  c.Resilience.MaxBackoff,
			MaxAttempts: c.Resilience.MaxAttempts,
		},
		LocalNode:   c.Network.LocalNode,
		LocalMirror: c.Network.LocalMirror,
	}
}

// Provision returns the run settings with amounts converted to tinybars.
func (c *Config) Provision() (provision.Config, error) {
	initial, err := parseHbar(c.Accounts.InitialBalance)
	if err != nil {
		return provision.Config{}, apperrors.ConfigError(err, "accounts.initial_balance")
	}
	funding, err := parseHbar(c.Accounts.AliasFunding)
	if err != nil {
		return provision.Config{}, apperrors.ConfigError(err, "accounts.alias_funding")
	}
	maxFee, err := parseHbar(c.Tokens.MaxFee)
	if err != nil {
		return provision.Config{}, apperrors.ConfigError(err, "tokens.max_fee")
	}

	var seed []byte
	if c.Keys.Seed != "" {
		seed, err = hex.DecodeString(strings.TrimPrefix(c.Keys.Seed, "0x"))
		if err != nil {
			return provision.Config{}, apperrors.ConfigError(err, "keys.seed")
		}
	}

	tokens := token.DefaultConfig()
	tokens.Fungible = token.ClassConfig{
		Name:          c.Tokens.Fungible.Name,
		Symbol:        c.Tokens.Fungible.Symbol,
		Decimals:      c.Tokens.Fungible.Decimals,
		InitialSupply: c.Tokens.Fungible.InitialSupply,
	}
	tokens.NonFungible = token.ClassConfig{
		Name:   c.Tokens.NonFungible.Name,
		Symbol: c.Tokens.NonFungible.Symbol,
	}
	tokens.MaxFee = maxFee
	tokens.AdminPolicy = token.AdminPolicy(c.Tokens.AdminPolicy)
	if len(c.Tokens.Metadata) > 0 {
		tokens.Metadata = append([]string(nil), c.Tokens.Metadata...)
	}

	return provision.Config{
		InitialBalance: initial,
		AliasFunding:   funding,
		Resolve: identity.RetryPolicy{
			Attempts: c.Accounts.ResolveAttempts,
			Interval: c.Accounts.ResolveInterval,
		},
		Tokens:   tokens,
		Parallel: c.Parallel,
		Seed:     seed,
	}, nil
}

func parseHbar(s string) (ledger.Tinybar, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid hbar amount %q: %w", s, err)
	}
	return ledger.HbarFromDecimal(d)
}
