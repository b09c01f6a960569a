package provisioner

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsafe/ledger-provisioner/internal/ledgertest"
	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/config"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
	"github.com/chainsafe/ledger-provisioner/pkg/session"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	kp, err := keys.Generate(keys.SchemeED25519)
	require.NoError(t, err)

	return &config.Config{
		Network:  config.NetworkConfig{Name: "testnet"},
		Operator: config.OperatorConfig{AccountID: ledgertest.OperatorID, PrivateKey: kp.PrivateKeyString(), KeyScheme: "ed25519"},
		Resilience: config.ResilienceConfig{
			MinBackoff: 10 * time.Millisecond, MaxBackoff: 100 * time.Millisecond, MaxAttempts: 50,
		},
		Accounts: config.AccountsConfig{
			InitialBalance: "10", AliasFunding: "10", ResolveAttempts: 5, ResolveInterval: time.Millisecond,
		},
		Tokens: config.TokensConfig{
			Fungible:    config.FungibleConfig{Name: "HederaFungible", Symbol: "HFun", Decimals: 1, InitialSupply: 100},
			NonFungible: config.NonFungibleConfig{Name: "HederaNFT", Symbol: "HNFT"},
			MaxFee:      "30",
			AdminPolicy: "treasury",
		},
		Logging: config.LoggingConfig{Level: "info", Format: "console"},
	}
}

func TestRunner_WritesReport(t *testing.T) {
	net := ledgertest.New()
	var out bytes.Buffer

	r := NewRunner(testConfig(t), &out, WithLogger(zap.NewNop()), WithSessionOptions(session.WithDialer(net.Dial)))
	require.NoError(t, r.Run(context.Background()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Contains(t, decoded, "ed25519")
	assert.Contains(t, decoded, "ecdsaWithAlias")
	assert.Equal(t, 1, net.CloseCount(), "session closed after the run")
}

func TestRunner_FailureWritesNothing(t *testing.T) {
	net := ledgertest.New()
	net.StatusFunc = func(tx ledger.Transaction) ledger.Status {
		if tx.Kind() == ledger.KindTokenMint {
			return ledger.StatusInvalidSignature
		}
		return ledger.StatusSuccess
	}
	var out bytes.Buffer

	err := NewRunner(testConfig(t), &out, WithLogger(zap.NewNop()), WithSessionOptions(session.WithDialer(net.Dial))).
		Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryMintRejected))
	assert.Zero(t, out.Len())
	assert.Equal(t, 1, net.CloseCount(), "session closed on the failure path")
}

func TestRunner_ConfigErrorBeforeDial(t *testing.T) {
	net := ledgertest.New()
	cfg := testConfig(t)
	cfg.Operator.PrivateKey = ""
	var out bytes.Buffer

	err := NewRunner(cfg, &out, WithLogger(zap.NewNop()), WithSessionOptions(session.WithDialer(net.Dial))).
		Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryConfig))
	assert.Empty(t, net.Calls())
	assert.Zero(t, net.CloseCount())
}
