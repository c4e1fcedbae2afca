package domain

import "github.com/shopspring/decimal"

// Outcome classifies the result of processing one configured currency
// within a run.
type Outcome int

const (
	OutcomePlaced Outcome = iota
	OutcomeSkippedNoMarket
	OutcomeSkippedInsufficientBalance
	OutcomeSkippedBelowMinimumQuote
	OutcomeSkippedBelowMinimumBase
	OutcomeSkippedDuplicateOrder
	OutcomeSkippedNotConfigured
	OutcomePlacementFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlaced:
		return "placed"
	case OutcomeSkippedNoMarket:
		return "skipped_no_market"
	case OutcomeSkippedInsufficientBalance:
		return "skipped_insufficient_balance"
	case OutcomeSkippedBelowMinimumQuote:
		return "skipped_below_minimum_quote"
	case OutcomeSkippedBelowMinimumBase:
		return "skipped_below_minimum_base"
	case OutcomeSkippedDuplicateOrder:
		return "skipped_duplicate_order"
	case OutcomeSkippedNotConfigured:
		return "skipped_not_configured"
	case OutcomePlacementFailed:
		return "placement_failed"
	default:
		return "unknown"
	}
}

// Placed reports whether the outcome represents a successfully
// submitted order.
func (o Outcome) Placed() bool {
	return o == OutcomePlaced
}

// RunOutcome is the per-currency result of one invocation. A run
// produces one RunOutcome per configured currency, in configuration
// order.
type RunOutcome struct {
	Currency string
	Pair     Pair
	Outcome  Outcome
	// OrderID is set only for OutcomePlaced.
	OrderID string
	// Budget is the per-run quote amount this currency was allotted.
	Budget decimal.Decimal
}
