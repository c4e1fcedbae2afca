// Package domain defines the core data structures of the DCA agent.
package domain

import (
	"fmt"
	"strings"
)

// Pair is a spot market pair: Base is the asset being bought,
// Quote is the fiat currency paying for it.
type Pair struct {
	Base  string
	Quote string
}

// NewPair builds a pair from a base asset and the deployment fiat currency.
func NewPair(base, quote string) Pair {
	return Pair{
		Base:  strings.ToUpper(strings.TrimSpace(base)),
		Quote: strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base, p.Quote)
}

// Symbol returns the exchange symbol, e.g. BTCZAR.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.Base, p.Quote)
}
