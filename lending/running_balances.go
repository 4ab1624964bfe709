/*
running_balances.go - Point-in-time balances for one evaluation

PURPOSE:
  A RunningBalances answers "what is the balance of designator D now" and
  "what has accrued but not been applied for charge C since the start of
  term". One instance is created per action evaluation and discarded after,
  so every cost component of that evaluation sees the same balances.

IMPLEMENTATIONS:
  RealRunningBalances:      ledger-backed; point balances are cached (20
                            entries, 30s since creation), range queries are not
  SimulatedRunningBalances: in-memory values for projections and what-if
                            schedules; adjusted by a PaymentBuilder's movements

DESIGNATOR RESOLUTION:
  The entry designator may be unmapped; its balance is then zero and the
  ledger is not asked. Every other designator must be mapped, otherwise the
  call fails with *UnmappedDesignatorError.

SEE ALSO:
  - cache/expiring.go: The bounded expiring map behind GetBalance
  - accounting/ledger.go: The Adapter queries
*/
package lending

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/lending-engine/accounting"
	"github.com/warp/lending-engine/cache"
	"github.com/warp/lending-engine/calendar"
)

type RunningBalances interface {
	// GetBalance returns the current balance of the account designator maps to.
	GetBalance(ctx context.Context, designator string) (decimal.Decimal, error)

	// GetAccruedBalanceForCharge returns the amount accrued for charge since
	// startOfTerm minus the amount applied over the same span. A negative
	// result is returned as-is.
	GetAccruedBalanceForCharge(ctx context.Context, dc DataContextOfAction, startOfTerm calendar.Date, charge ChargeDefinition) (decimal.Decimal, error)

	// GetStartOfTermOrThrow returns the date of the case's first disbursal,
	// or a *StartOfTermError if there is none.
	GetStartOfTermOrThrow(ctx context.Context, dc DataContextOfAction) (calendar.Date, error)
}

// =============================================================================
// REAL RUNNING BALANCES - Ledger-backed with a short-lived cache
// =============================================================================

type RealRunningBalances struct {
	ledger   accounting.Adapter
	mapper   DesignatorMapper
	balances *cache.ExpiringMap[decimal.Decimal]
	logger   *zap.Logger
}

// RunningBalancesOption configures a RealRunningBalances.
type RunningBalancesOption func(*runningBalancesOptions)

type runningBalancesOptions struct {
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func WithBalanceCacheSize(n int) RunningBalancesOption {
	return func(o *runningBalancesOptions) { o.maxSize = n }
}

func WithBalanceCacheTTL(ttl time.Duration) RunningBalancesOption {
	return func(o *runningBalancesOptions) { o.ttl = ttl }
}

// WithBalanceClock replaces time.Now for cache expiry, for tests.
func WithBalanceClock(now func() time.Time) RunningBalancesOption {
	return func(o *runningBalancesOptions) { o.now = now }
}

func WithBalancesLogger(logger *zap.Logger) RunningBalancesOption {
	return func(o *runningBalancesOptions) { o.logger = logger }
}

func NewRealRunningBalances(ledger accounting.Adapter, mapper DesignatorMapper, opts ...RunningBalancesOption) *RealRunningBalances {
	o := runningBalancesOptions{
		maxSize: cache.DefaultMaxSize,
		ttl:     cache.DefaultTTL,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	rb := &RealRunningBalances{
		ledger: ledger,
		mapper: mapper,
		logger: o.logger,
	}
	rb.balances = cache.NewExpiringMap(rb.loadBalance,
		cache.WithMaxSize(o.maxSize),
		cache.WithTTL(o.ttl),
		cache.WithClock(o.now),
		cache.WithLogger(o.logger.Named("balances")),
	)
	return rb
}

var _ RunningBalances = (*RealRunningBalances)(nil)

func (r *RealRunningBalances) GetBalance(ctx context.Context, designator string) (decimal.Decimal, error) {
	return r.balances.Get(ctx, designator)
}

// loadBalance is the cache loader. The entry designator resolves leniently;
// every other designator resolves strictly.
func (r *RealRunningBalances) loadBalance(ctx context.Context, designator string) (decimal.Decimal, error) {
	if designator == DesignatorEntry {
		account, ok := r.mapper.Map(designator)
		if !ok {
			return decimal.Zero, nil
		}
		return r.ledger.CurrentAccountBalance(ctx, account)
	}

	account, err := r.mapper.MapOrError(designator)
	if err != nil {
		return decimal.Zero, err
	}
	return r.ledger.CurrentAccountBalance(ctx, account)
}

func (r *RealRunningBalances) GetAccruedBalanceForCharge(ctx context.Context, dc DataContextOfAction, startOfTerm calendar.Date, charge ChargeDefinition) (decimal.Decimal, error) {
	if !charge.Accrues() {
		return decimal.Zero, nil
	}
	account, err := r.mapper.MapOrError(charge.AccrualAccountDesignator)
	if err != nil {
		return decimal.Zero, err
	}

	accrued, err := r.ledger.SumMatchingEntriesSinceDate(ctx, account, startOfTerm, dc.MessageForCharge(charge.AccrueAction))
	if err != nil {
		return decimal.Zero, err
	}
	applied, err := r.ledger.SumMatchingEntriesSinceDate(ctx, account, startOfTerm, dc.MessageForCharge(charge.ChargeAction))
	if err != nil {
		return decimal.Zero, err
	}

	result := accrued.Sub(applied)
	if result.IsNegative() {
		r.logger.Warn("applied more than accrued",
			zap.String("case", dc.CompoundIdentifier()),
			zap.String("charge", charge.Identifier),
			zap.String("accrued", accrued.String()),
			zap.String("applied", applied.String()))
	}
	return result, nil
}

func (r *RealRunningBalances) GetStartOfTermOrThrow(ctx context.Context, dc DataContextOfAction) (calendar.Date, error) {
	account, err := r.mapper.MapOrError(DesignatorCustomerLoanPrincipal)
	if err != nil {
		return calendar.Date{}, err
	}
	at, ok, err := r.ledger.DateOfOldestEntryContainingMessage(ctx, account, dc.MessageForCharge(ActionDisburse))
	if err != nil {
		return calendar.Date{}, err
	}
	if !ok {
		return calendar.Date{}, &StartOfTermError{CaseIdentifier: dc.Case.Identifier}
	}
	return calendar.FromTime(at.UTC()), nil
}

// =============================================================================
// SIMULATED RUNNING BALANCES - Deterministic in-memory values
// =============================================================================

// SimulatedRunningBalances holds balances set by the caller. Unset designators
// have a zero balance. Used to walk a hypothetical schedule forward.
type SimulatedRunningBalances struct {
	mu          sync.Mutex
	balances    map[string]decimal.Decimal
	accrued     map[string]decimal.Decimal // by charge identifier
	startOfTerm calendar.Date
}

func NewSimulatedRunningBalances(startOfTerm calendar.Date) *SimulatedRunningBalances {
	return &SimulatedRunningBalances{
		balances:    make(map[string]decimal.Decimal),
		accrued:     make(map[string]decimal.Decimal),
		startOfTerm: startOfTerm,
	}
}

var _ RunningBalances = (*SimulatedRunningBalances)(nil)

func (s *SimulatedRunningBalances) SetBalance(designator string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[designator] = amount
}

func (s *SimulatedRunningBalances) SetAccrued(chargeIdentifier string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accrued[chargeIdentifier] = amount
}

// Adjust applies signed per-designator movements, typically
// PaymentBuilder.BalanceAdjustments().
func (s *SimulatedRunningBalances) Adjust(adjustments map[string]decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for designator, delta := range adjustments {
		s.balances[designator] = s.balances[designator].Add(delta)
	}
}

func (s *SimulatedRunningBalances) GetBalance(_ context.Context, designator string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[designator], nil
}

func (s *SimulatedRunningBalances) GetAccruedBalanceForCharge(_ context.Context, _ DataContextOfAction, _ calendar.Date, charge ChargeDefinition) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accrued[charge.Identifier], nil
}

func (s *SimulatedRunningBalances) GetStartOfTermOrThrow(_ context.Context, dc DataContextOfAction) (calendar.Date, error) {
	if s.startOfTerm.IsZero() {
		return calendar.Date{}, &StartOfTermError{CaseIdentifier: dc.Case.Identifier}
	}
	return s.startOfTerm, nil
}
