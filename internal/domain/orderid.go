package domain

import (
	"fmt"
	"time"
)

// OrderIDGranularity controls whether client order ids are unique per
// day or per execution hour. Hourly ids make each configured hour an
// independently idempotent slot; daily ids collapse all hours of a day
// into a single slot.
type OrderIDGranularity string

const (
	GranularityDaily  OrderIDGranularity = "daily"
	GranularityHourly OrderIDGranularity = "hourly"
)

// Valid reports whether g is a known granularity.
func (g OrderIDGranularity) Valid() bool {
	return g == GranularityDaily || g == GranularityHourly
}

// ClientOrderID derives the deterministic idempotency key for a pair
// and a point in time. The id is recomputed identically on every
// check, never stored: the exchange's order records are the system of
// record. Components are UTC and not zero-padded.
func ClientOrderID(pair Pair, t time.Time, g OrderIDGranularity) string {
	t = t.UTC()
	if g == GranularityHourly {
		return fmt.Sprintf("%s-%d-%d-%d-%d", pair.Symbol(), t.Year(), int(t.Month()), t.Day(), t.Hour())
	}
	return fmt.Sprintf("%s-%d-%d-%d", pair.Symbol(), t.Year(), int(t.Month()), t.Day())
}
