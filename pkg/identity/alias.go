package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/chainsafe/ledger-provisioner/internal/metrics"
	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
	"github.com/chainsafe/ledger-provisioner/pkg/session"
	"github.com/chainsafe/ledger-provisioner/pkg/transfer"
)

// Default alias resolution retry values.
const (
	DefaultResolveAttempts = 5
	DefaultResolveInterval = 500 * time.Millisecond
)

// RetryPolicy bounds how long a funded alias may stay invisible.
// Attempts counts every query, the first one included.
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultResolveAttempts, Interval: DefaultResolveInterval}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(p.Interval)
	if p.Attempts > 1 {
		b = backoff.WithMaxRetries(b, uint64(p.Attempts-1))
	} else {
		b = &backoff.StopBackOff{}
	}
	return backoff.WithContext(b, ctx)
}

// Alias creates accounts by funding the alias reference of the public key.
// The network materializes the account on first funding; the account id is
// then read back with an account query.
type Alias struct {
	network    ledger.Network
	transferer transfer.Transferer
	payer      string
	funding    ledger.Tinybar
	retry      RetryPolicy
	memo       string
	logger     *zap.Logger
}

var _ AccountProvisioner = (*Alias)(nil)

// NewAlias creates a provisioner funding every alias with fundingAmount from
// the session operator through t. WithMemo overrides the memo of t on funding
// transfers.
func NewAlias(sess *session.Session, t transfer.Transferer, fundingAmount ledger.Tinybar, retry RetryPolicy, opts ...Option) *Alias {
	s := applyOptions(opts)
	if retry == (RetryPolicy{}) {
		retry = DefaultRetryPolicy()
	}
	return &Alias{
		network:    sess.Network(),
		transferer: t,
		payer:      sess.Operator().AccountID,
		funding:    fundingAmount,
		retry:      retry,
		memo:       s.memo,
		logger:     s.logger,
	}
}

// Create funds the alias of kp and resolves it to the created account.
func (a *Alias) Create(ctx context.Context, kp *keys.KeyPair) (*Account, error) {
	if kp == nil {
		return nil, apperrors.GeneralError(errors.New("key pair is required"))
	}

	alias, err := kp.AliasReference()
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("derive alias: %w", err))
	}

	a.logger.Info("Funding alias", zap.String("alias", alias), zap.String("amount", a.funding.String()))

	var opts []transfer.CallOption
	if a.memo != "" {
		opts = append(opts, transfer.Memo(a.memo))
	}
	if _, err := a.transferer.Transfer(ctx, a.payer, alias, a.funding, opts...); err != nil {
		if apperrors.Is(err, apperrors.CategoryTransferRejected) || apperrors.Is(err, apperrors.CategoryInsufficientFunds) {
			return nil, apperrors.CreationRejectedError(err, fmt.Sprintf("funding alias %s", alias))
		}
		return nil, err
	}

	id, err := a.Resolve(ctx, alias)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Created account through alias",
		zap.String("account_id", id),
		zap.String("alias", alias),
		zap.String("scheme", kp.Scheme().String()),
	)

	return &Account{
		ID:     id,
		Scheme: kp.Scheme(),
		Key:    kp,
		Alias:  alias,
	}, nil
}

// Resolve returns the account id behind a funded alias, retrying while the
// account is not yet visible. Resolving the same alias again returns the same id.
func (a *Alias) Resolve(ctx context.Context, alias string) (string, error) {
	attempt := 0
	query := func() (string, error) {
		attempt++
		info, err := a.network.QueryAccount(ctx, alias)
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				return "", apperrors.ResolutionNotReadyError(err, fmt.Sprintf("alias %s not yet visible", alias))
			}
			return "", backoff.Permanent(err)
		}
		if info == nil || info.AccountID == "" {
			return "", backoff.Permanent(apperrors.GeneralError(fmt.Errorf("account query for %s returned no account id", alias)))
		}
		return info.AccountID, nil
	}

	notify := func(err error, next time.Duration) {
		metrics.ResolutionRetries.Inc()
		a.logger.Warn("Alias not yet resolvable, retrying",
			zap.String("alias", alias),
			zap.Int("attempt", attempt),
			zap.Duration("next", next),
			zap.Error(err),
		)
	}

	id, err := backoff.RetryNotifyWithData(query, a.retry.backOff(ctx), notify)
	if err == nil {
		return id, nil
	}
	if apperrors.Is(err, apperrors.CategoryResolutionNotReady) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", apperrors.NetworkUnavailableError(ctxErr, "alias resolution cancelled")
		}
		return "", apperrors.ResolutionNotReadyError(err, fmt.Sprintf("alias %s unresolved after %d attempts", alias, attempt))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", apperrors.NetworkUnavailableError(err, "alias resolution cancelled")
	}
	return "", err
}
