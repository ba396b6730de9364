package payments

import (
	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/shopspring/decimal"
)

// lineAmounts converts a gateway amount in subunits into n per-order amounts.
//
// transaction: every line carries the whole transaction amount.
// split: the total is divided evenly; leftover subunits go to the first line.
func lineAmounts(policy string, subunits int64, n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	if n == 0 {
		return out
	}
	if policy != config.AmountPolicySplit {
		full := decimal.New(subunits, -2)
		for i := range out {
			out[i] = full
		}
		return out
	}
	share := subunits / int64(n)
	remainder := subunits % int64(n)
	for i := range out {
		cents := share
		if i == 0 {
			cents += remainder
		}
		out[i] = decimal.New(cents, -2)
	}
	return out
}
