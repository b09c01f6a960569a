// Package provisioner implements app.Runner for the provisioning process.
package provisioner

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/chainsafe/ledger-provisioner/internal/metrics"
	"github.com/chainsafe/ledger-provisioner/pkg/app"
	apperrors "github.com/chainsafe/ledger-provisioner/pkg/app/errors"
	"github.com/chainsafe/ledger-provisioner/pkg/config"
	"github.com/chainsafe/ledger-provisioner/pkg/provision"
	"github.com/chainsafe/ledger-provisioner/pkg/session"
)

// Runner executes one provisioning run and writes the report.
type Runner struct {
	cfg         *config.Config
	out         io.Writer
	logger      *zap.Logger
	sessionOpts []session.Option
}

var _ app.Runner = (*Runner)(nil)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger overrides the logger built from the logging config.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithSessionOptions passes extra options to session.Open.
func WithSessionOptions(opts ...session.Option) Option {
	return func(r *Runner) { r.sessionOpts = append(r.sessionOpts, opts...) }
}

// NewRunner initializes a provisioning Runner writing the report to out.
func NewRunner(cfg *config.Config, out io.Writer, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, out: out}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run opens the session, provisions every identity group and writes the report.
// The report is only written when the run succeeds as a whole.
func (r *Runner) Run(ctx context.Context) (err error) {
	if r.cfg == nil {
		return apperrors.ConfigError(nil, "missing configuration")
	}
	cfg := r.cfg
	if err := cfg.Validate(); err != nil {
		return apperrors.ConfigError(err, "config validation failed")
	}

	logger := r.logger
	if logger == nil {
		logger, err = config.NewLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()
	}

	runCfg, err := cfg.Provision()
	if err != nil {
		return err
	}

	logger.Info("Starting ledger provisioner", zap.String("network", cfg.Network.Name))

	opts := append([]session.Option{
		session.WithLogger(logger),
		session.WithMetrics(cfg.Metrics.Enabled),
	}, r.sessionOpts...)

	sess, err := session.Open(ctx, cfg.Session(), opts...)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("Failed to close session", zap.Error(cerr))
		}
	}()

	if cfg.Metrics.Enabled && cfg.Metrics.PushURL != "" {
		defer func() {
			if perr := metrics.Push(context.WithoutCancel(ctx), cfg.Metrics.PushURL, cfg.Metrics.Job); perr != nil {
				logger.Warn("Failed to push metrics", zap.Error(perr))
			}
		}()
	}

	runner, err := provision.NewRunner(sess, runCfg, provision.WithLogger(logger))
	if err != nil {
		return err
	}

	rep, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := rep.Write(&buf); err != nil {
		return err
	}
	if _, err := r.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Info("Report written", zap.String("run_id", runner.RunID()))
	return nil
}
