// Package dca contains the order-placement decision engine: the
// allocation procedure, the idempotency guard and the run orchestrator
// that drives one invocation end to end.
package dca

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jvdwalt/dcabot/config"
	"github.com/jvdwalt/dcabot/internal/domain"
	"github.com/jvdwalt/dcabot/internal/gateway"
	"github.com/jvdwalt/dcabot/internal/metrics"
)

// Runner drives one full DCA invocation: policy reload, time gate,
// account snapshot, and the sequential allocation fold over the
// configured currencies.
type Runner struct {
	exchange gateway.Exchange
	resolve  func() (config.Policy, error)
	logger   *zap.Logger
	journal  *Journal
	now      func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithJournal enables audit journaling of run outcomes.
func WithJournal(journal *Journal) RunnerOption {
	return func(r *Runner) { r.journal = journal }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner. resolve is called at the start of every
// run so a warm process sees a fresh immutable policy snapshot; the
// decision logic never reads ambient configuration.
func NewRunner(exchange gateway.Exchange, resolve func() (config.Policy, error), logger *zap.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		exchange: exchange,
		resolve:  resolve,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one invocation, honouring the execution-hour gate.
func (r *Runner) Run(ctx context.Context) ([]domain.RunOutcome, error) {
	return r.run(ctx, false)
}

// RunForced executes one invocation bypassing the execution-hour gate,
// used by the authenticated manual trigger. The idempotency guard
// still applies.
func (r *Runner) RunForced(ctx context.Context) ([]domain.RunOutcome, error) {
	return r.run(ctx, true)
}

func (r *Runner) run(ctx context.Context, force bool) ([]domain.RunOutcome, error) {
	policy, err := r.resolve()
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.RunConfigError).Inc()
		return nil, errors.Wrap(err, "configuration invalid at run start")
	}

	now := r.now().UTC()
	if !force && !policy.HourConfigured(now.Hour()) {
		r.logger.Info("not executing, current hour not configured",
			zap.Int("current_hour", now.Hour()),
			zap.Ints("execution_hours", policy.ExecutionHours))
		metrics.RunsTotal.WithLabelValues(metrics.RunOffHours).Inc()
		return []domain.RunOutcome{}, nil
	}

	snapshot, err := r.fetchSnapshot(ctx, policy)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.RunFailed).Inc()
		return nil, err
	}

	guard := NewGuard(r.exchange, policy.Granularity, r.logger)
	engine := NewEngine(r.exchange, guard, r.logger)

	outcomes, err := r.fold(ctx, engine, policy, snapshot, now)

	for _, o := range outcomes {
		metrics.OutcomesTotal.WithLabelValues(o.Currency, o.Outcome.String()).Inc()
		if o.Outcome.Placed() {
			metrics.OrdersPlacedTotal.WithLabelValues(o.Pair.Symbol()).Inc()
		}
	}

	if r.journal != nil {
		if jErr := r.journal.Append(now, outcomes); jErr != nil {
			r.logger.Error("failed to journal run outcomes", zap.Error(jErr))
		}
	}

	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.RunFailed).Inc()
		return outcomes, err
	}

	metrics.RunsTotal.WithLabelValues(metrics.RunCompleted).Inc()
	r.logger.Info("run completed", zap.Int("currencies", len(outcomes)))
	return outcomes, nil
}

// accountSnapshot is the exchange state fetched once per run.
type accountSnapshot struct {
	fiatAvailable decimal.Decimal
	pairs         map[string]domain.PairInfo
	quotes        map[string]domain.MarketQuote
}

func (r *Runner) fetchSnapshot(ctx context.Context, policy config.Policy) (accountSnapshot, error) {
	balances, err := r.exchange.Balances(ctx)
	if err != nil {
		return accountSnapshot{}, errors.Wrap(err, "failed to fetch balances")
	}

	var fiat *domain.Balance
	for i := range balances {
		if balances[i].Currency == policy.Fiat {
			fiat = &balances[i]
			break
		}
	}
	if fiat == nil {
		return accountSnapshot{}, errors.Errorf("no %s balance found", policy.Fiat)
	}

	pairList, err := r.exchange.CurrencyPairs(ctx)
	if err != nil {
		return accountSnapshot{}, errors.Wrap(err, "failed to fetch currency pairs")
	}
	pairs := make(map[string]domain.PairInfo, len(pairList))
	for _, p := range pairList {
		pairs[p.Symbol] = p
	}

	quoteList, err := r.exchange.MarketSummaries(ctx)
	if err != nil {
		return accountSnapshot{}, errors.Wrap(err, "failed to fetch market summaries")
	}
	quotes := make(map[string]domain.MarketQuote, len(quoteList))
	for _, q := range quoteList {
		quotes[q.Symbol] = q
	}

	return accountSnapshot{
		fiatAvailable: fiat.Available,
		pairs:         pairs,
		quotes:        quotes,
	}, nil
}

// perRunBudget divides a currency's total daily budget across the
// configured execution hours, rounded to the nearest integer unit of
// the fiat currency with ties away from zero.
func perRunBudget(totalBudget decimal.Decimal, executionsPerDay int) decimal.Decimal {
	return totalBudget.Div(decimal.NewFromInt(int64(executionsPerDay))).Round(0)
}

// fold processes the currencies sequentially, threading the remaining
// fiat balance through each allocation so later currencies see the
// effect of earlier placements. This is deliberately not parallel: the
// accumulator is the only cross-currency over-allocation protection
// within a run.
func (r *Runner) fold(ctx context.Context, engine *Engine, policy config.Policy, snapshot accountSnapshot, now time.Time) ([]domain.RunOutcome, error) {
	executions := policy.ExecutionsPerDay()
	r.logger.Info("starting allocation",
		zap.Int("executions_per_day", executions),
		zap.String("available", snapshot.fiatAvailable.String()),
		zap.String("fiat", policy.Fiat))

	remaining := snapshot.fiatAvailable
	outcomes := make([]domain.RunOutcome, 0, len(policy.Currencies))
	var placementErr error

	for _, currency := range policy.Currencies {
		pair := policy.Pair(currency)

		totalBudget, ok := policy.Budgets[currency]
		if !ok {
			r.logger.Error("no budget configured for currency", zap.String("currency", currency))
			outcomes = append(outcomes, domain.RunOutcome{
				Currency: currency,
				Pair:     pair,
				Outcome:  domain.OutcomeSkippedNotConfigured,
			})
			continue
		}

		budget := perRunBudget(totalBudget, executions)

		var pairInfo *domain.PairInfo
		if info, ok := snapshot.pairs[pair.Symbol()]; ok {
			pairInfo = &info
		}
		var quote *domain.MarketQuote
		if q, ok := snapshot.quotes[pair.Symbol()]; ok {
			quote = &q
		}

		outcome, err := engine.Allocate(ctx, AllocationRequest{
			Currency:     currency,
			Pair:         pair,
			PerRunBudget: budget,
			Remaining:    remaining,
			PairInfo:     pairInfo,
			Quote:        quote,
			At:           now,
		})
		if err != nil {
			if errors.Is(err, ErrInvariantViolation) {
				return outcomes, err
			}
			// a placement fault for one currency does not abort the
			// rest of the run; it is reported at run level afterwards.
			placementErr = multierr.Append(placementErr, err)
			outcomes = append(outcomes, outcome)
			continue
		}

		outcomes = append(outcomes, outcome)
		if outcome.Outcome.Placed() {
			remaining = remaining.Sub(budget)
			if remaining.IsNegative() {
				return outcomes, errors.Wrapf(ErrInvariantViolation, "remaining balance went negative after %s", currency)
			}
		}
	}

	return outcomes, placementErr
}
