// Package provision orchestrates a full provisioning run: two identity groups
// (ED25519 created directly, ECDSA created through aliases), a sender and a
// receiver per group, asset issuance for each sender and the final report.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsafe/ledger-provisioner/internal/metrics"
	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/identity"
	"github.com/chainsafe/ledger-provisioner/pkg/keys"
	"github.com/chainsafe/ledger-provisioner/pkg/ledger"
	"github.com/chainsafe/ledger-provisioner/pkg/report"
	"github.com/chainsafe/ledger-provisioner/pkg/session"
	"github.com/chainsafe/ledger-provisioner/pkg/token"
	"github.com/chainsafe/ledger-provisioner/pkg/transfer"
)

// Config contains the run parameters.
type Config struct {
	// InitialBalance funds directly created accounts.
	InitialBalance ledger.Tinybar
	// AliasFunding is transferred to every alias to create its account.
	AliasFunding ledger.Tinybar
	Resolve      identity.RetryPolicy
	Tokens       token.Config
	// Parallel provisions both identity groups concurrently.
	Parallel bool
	// Seed makes every generated key deterministic when set.
	Seed []byte
}

// DefaultConfig returns the parameters of a standard run.
func DefaultConfig() Config {
	return Config{
		InitialBalance: ledger.Hbar(10),
		AliasFunding:   ledger.Hbar(10),
		Resolve:        identity.DefaultRetryPolicy(),
		Tokens:         token.DefaultConfig(),
	}
}

func (c *Config) validate() error {
	if c.InitialBalance < 0 {
		return fmt.Errorf("initial balance must not be negative")
	}
	if c.AliasFunding <= 0 {
		return fmt.Errorf("alias funding must be positive")
	}
	if c.Resolve.Attempts < 0 || c.Resolve.Interval < 0 {
		return fmt.Errorf("alias resolution retry must not be negative")
	}
	if len(c.Seed) > 0 && len(c.Seed) < keys.MinSeedLength {
		return fmt.Errorf("key seed must be at least %d bytes", keys.MinSeedLength)
	}
	return nil
}

type group struct {
	name   string
	scheme keys.Scheme
}

var (
	groupED25519 = group{name: "ed25519", scheme: keys.SchemeED25519}
	groupECDSA   = group{name: "ecdsaWithAlias", scheme: keys.SchemeECDSA}
)

// Runner executes provisioning runs on an open session.
// The caller owns the session and closes it.
type Runner struct {
	cfg          Config
	runID        string
	provisioners identity.Provisioners
	issuer       *token.Issuer
	keySource    token.KeySource
	logger       *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// NewRunner wires the identity provisioners and the asset issuer on sess.
// The runner logs through the session logger unless WithLogger is given.
func NewRunner(sess *session.Session, cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, apperrors.ConfigError(err, "invalid provisioning config")
	}

	r := &Runner{
		cfg:       cfg,
		runID:     uuid.NewString(),
		keySource: token.RandomKeys,
		logger:    sess.Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.With(zap.String("run_id", r.runID))

	if len(cfg.Seed) > 0 {
		seed := cfg.Seed
		r.keySource = func(scheme keys.Scheme, label string) (*keys.KeyPair, error) {
			return keys.Derive(scheme, seed, label)
		}
	}

	memo := "ledger-provisioner/" + r.runID
	network := sess.Network()

	transferer := transfer.New(network,
		transfer.WithLogger(r.logger.Named("transfer")),
		transfer.WithMemo(memo),
	)
	r.provisioners = identity.Provisioners{
		Direct: identity.NewDirect(sess, cfg.InitialBalance,
			identity.WithLogger(r.logger.Named("identity")),
			identity.WithMemo(memo),
		),
		Alias: identity.NewAlias(sess, transferer, cfg.AliasFunding, cfg.Resolve,
			identity.WithLogger(r.logger.Named("identity")),
			identity.WithMemo(memo),
		),
	}

	tokenCfg := cfg.Tokens
	tokenCfg.Memo = memo
	issuer, err := token.NewIssuer(network, tokenCfg,
		token.WithLogger(r.logger.Named("token")),
		token.WithKeySource(r.keySource),
	)
	if err != nil {
		return nil, err
	}
	r.issuer = issuer

	return r, nil
}

// RunID returns the id attached to every log line and memo of the run.
func (r *Runner) RunID() string { return r.runID }

// Run provisions both identity groups and assembles the report.
// Any failure aborts the run; no partial report is returned.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	start := time.Now()
	r.logger.Info("Provisioning run started", zap.Bool("parallel", r.cfg.Parallel))

	var (
		in  report.Input
		err error
	)
	if r.cfg.Parallel {
		in, err = r.runParallel(ctx)
	} else {
		in, err = r.runSequential(ctx)
	}
	if err != nil {
		return nil, r.fail("run", err)
	}

	out, err := step("report", func() (*report.Report, error) { return report.Assemble(in) })
	if err != nil {
		return nil, r.fail("report", err)
	}

	metrics.RunsTotal.WithLabelValues("success").Inc()
	r.logger.Info("Provisioning run completed", zap.Duration("duration", time.Since(start)))
	return out, nil
}

// runSequential creates all four accounts first, then issues assets for each
// sender, in group order.
func (r *Runner) runSequential(ctx context.Context) (report.Input, error) {
	var in report.Input

	ed, err := r.accounts(ctx, groupED25519)
	if err != nil {
		return in, err
	}
	ec, err := r.accounts(ctx, groupECDSA)
	if err != nil {
		return in, err
	}
	if ed.Assets, err = r.assets(ctx, groupED25519, ed.Sender); err != nil {
		return in, err
	}
	if ec.Assets, err = r.assets(ctx, groupECDSA, ec.Sender); err != nil {
		return in, err
	}

	in.ED25519, in.ECDSA = *ed, *ec
	return in, nil
}

// runParallel provisions each group end to end in its own goroutine.
// Each group writes to its own slot, so the report does not depend on timing.
func (r *Runner) runParallel(ctx context.Context) (report.Input, error) {
	var in report.Input

	g, gctx := errgroup.WithContext(ctx)
	slots := []struct {
		grp  group
		slot *report.GroupInput
	}{
		{groupED25519, &in.ED25519},
		{groupECDSA, &in.ECDSA},
	}
	for _, s := range slots {
		s := s
		g.Go(func() error {
			gi, err := r.accounts(gctx, s.grp)
			if err != nil {
				return err
			}
			if gi.Assets, err = r.assets(gctx, s.grp, gi.Sender); err != nil {
				return err
			}
			*s.slot = *gi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report.Input{}, err
	}
	return in, nil
}

func (r *Runner) accounts(ctx context.Context, g group) (*report.GroupInput, error) {
	prov, err := r.provisioners.ProvisionerFor(g.scheme)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}

	sender, err := r.account(ctx, g, "sender", prov)
	if err != nil {
		return nil, err
	}
	receiver, err := r.account(ctx, g, "receiver", prov)
	if err != nil {
		return nil, err
	}
	return &report.GroupInput{Sender: sender, Receiver: receiver}, nil
}

func (r *Runner) account(ctx context.Context, g group, role string, prov identity.AccountProvisioner) (*identity.Account, error) {
	label := g.name + "/" + role
	kp, err := r.keySource(g.scheme, label)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("generate %s key: %w", label, err))
	}

	acc, err := step(label, func() (*identity.Account, error) { return prov.Create(ctx, kp) })
	if err != nil {
		return nil, fmt.Errorf("create %s account: %w", label, err)
	}

	r.logger.Info("Account provisioned",
		zap.String("group", g.name),
		zap.String("role", role),
		zap.String("account_id", acc.ID),
	)
	return acc, nil
}

func (r *Runner) assets(ctx context.Context, g group, sender *identity.Account) (*token.Issued, error) {
	issued, err := step(g.name+"/assets", func() (*token.Issued, error) { return r.issuer.IssueAssets(ctx, *sender) })
	if err != nil {
		return nil, fmt.Errorf("issue %s assets: %w", g.name, err)
	}

	r.logger.Info("Assets issued",
		zap.String("group", g.name),
		zap.String("fungible_token_id", issued.Fungible.ID),
		zap.String("nft_token_id", issued.NonFungible.ID),
		zap.Int("minted", len(issued.Minted)),
	)
	return issued, nil
}

// step times fn under the step label.
func step[T any](name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	metrics.StepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return out, err
}

func (r *Runner) fail(component string, err error) error {
	cat := apperrors.CategoryOf(err)
	metrics.ErrorsTotal.WithLabelValues(component, cat.String()).Inc()
	metrics.RunsTotal.WithLabelValues("failure").Inc()
	r.logger.Error("Provisioning run failed", zap.String("category", cat.String()), zap.Error(err))
	return err
}
