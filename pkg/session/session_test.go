package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/ledger-provisioner/internal/ledgertest"
	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
	"github.com/chainsafe/ledger-provisioner/pkg/session"
)

func operatorKey(t *testing.T) string {
	t.Helper()
	kp, err := keys.Generate(keys.SchemeED25519)
	require.NoError(t, err)
	return kp.PrivateKeyString()
}

func failingDialer(t *testing.T) session.Dialer {
	return func(context.Context, session.DialConfig) (ledger.Network, error) {
		t.Fatal("dialer must not be called")
		return nil, nil
	}
}

func TestOpen_ConfigErrorsBeforeDial(t *testing.T) {
	key := operatorKey(t)

	tests := []struct {
		name string
		cfg  session.Config
	}{
		{"missing id", session.Config{OperatorKey: key}},
		{"missing key", session.Config{OperatorID: "0.0.2"}},
		{"malformed id", session.Config{OperatorID: "not-an-account", OperatorKey: key}},
		{"malformed key", session.Config{OperatorID: "0.0.2", OperatorKey: "zz"}},
		{"unknown scheme", session.Config{OperatorID: "0.0.2", OperatorKey: key, OperatorKeyScheme: "rsa"}},
		{"bad resilience", session.Config{OperatorID: "0.0.2", OperatorKey: key, Resilience: session.Resilience{
			MinBackoff: time.Second, MaxBackoff: time.Millisecond, MaxAttempts: 3,
		}}},
		{"zero attempts", session.Config{OperatorID: "0.0.2", OperatorKey: key, Resilience: session.Resilience{
			MinBackoff: time.Millisecond, MaxBackoff: time.Second,
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := session.Open(context.Background(), tt.cfg, session.WithDialer(failingDialer(t)))
			require.Error(t, err)
			assert.Nil(t, sess)
			assert.True(t, apperrors.Is(err, apperrors.CategoryConfig), "got %v", err)
		})
	}
}

func TestOpen_AppliesDefaultsAndOperator(t *testing.T) {
	net := ledgertest.New()
	var got session.DialConfig
	dial := func(ctx context.Context, cfg session.DialConfig) (ledger.Network, error) {
		got = cfg
		return net.Dial(ctx, cfg)
	}

	sess, err := session.Open(context.Background(), session.Config{
		Network:     "previewnet",
		OperatorID:  "0.0.1234",
		OperatorKey: operatorKey(t),
	}, session.WithDialer(dial))
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, "previewnet", got.Network)
	assert.Equal(t, "0.0.1234", got.Operator.AccountID)
	assert.Equal(t, session.DefaultResilience(), got.Resilience)
	assert.Equal(t, session.DefaultResilience(), sess.Policy())
	assert.Equal(t, "0.0.1234", sess.Operator().AccountID)
	assert.Equal(t, keys.SchemeED25519, sess.Operator().Key.Scheme())
	assert.Equal(t, session.DefaultMinBackoff, sess.Policy().MinBackoff)
	assert.Equal(t, 50, sess.Policy().MaxAttempts)
}

func TestOpen_ECDSAOperator(t *testing.T) {
	kp, err := keys.Generate(keys.SchemeECDSA)
	require.NoError(t, err)

	sess, err := session.Open(context.Background(), session.Config{
		OperatorID:        "0.0.2",
		OperatorKey:       kp.PrivateKeyString(),
		OperatorKeyScheme: "ecdsa",
	}, session.WithDialer(ledgertest.New().Dial))
	require.NoError(t, err)
	defer sess.Close()

	assert.True(t, sess.Operator().Key.Equal(kp))
}

func TestOpen_ECDSADerOperatorWithoutScheme(t *testing.T) {
	kp, err := keys.Generate(keys.SchemeECDSA)
	require.NoError(t, err)

	sess, err := session.Open(context.Background(), session.Config{
		OperatorID:  "0.0.2",
		OperatorKey: kp.Hedera().StringDer(),
	}, session.WithDialer(ledgertest.New().Dial))
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, keys.SchemeECDSA, sess.Operator().Key.Scheme())
	assert.True(t, sess.Operator().Key.Equal(kp))
}

func TestOpen_DialErrors(t *testing.T) {
	cfg := session.Config{OperatorID: "0.0.2", OperatorKey: operatorKey(t)}

	_, err := session.Open(context.Background(), cfg, session.WithDialer(
		func(context.Context, session.DialConfig) (ledger.Network, error) {
			return nil, errors.New("no route to host")
		}))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryNetworkUnavailable))

	_, err = session.Open(context.Background(), cfg, session.WithDialer(
		func(context.Context, session.DialConfig) (ledger.Network, error) {
			return nil, apperrors.ConfigError(nil, "unknown network")
		}))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryConfig))
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	net := ledgertest.New()
	sess, err := session.Open(context.Background(), session.Config{
		OperatorID:  "0.0.2",
		OperatorKey: operatorKey(t),
	}, session.WithDialer(net.Dial), session.WithMetrics(true))
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, 1, net.CloseCount())
}

func TestSession_NetworkIsDecorated(t *testing.T) {
	net := ledgertest.New()
	sess := ledgertest.OpenSession(t, net)

	info, err := sess.Network().QueryAccount(context.Background(), ledgertest.OperatorID)
	require.NoError(t, err)
	assert.Equal(t, ledgertest.OperatorID, info.AccountID)
	assert.Len(t, net.Calls(), 1)
}
