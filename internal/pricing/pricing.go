// Package pricing decides what a newly observed price means.
package pricing

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Decision is the outcome of comparing a new price with the recorded one.
type Decision string

// Possible decisions.
const (
	Unchanged Decision = "unchanged"
	PriceDrop Decision = "price_drop"
	BuyNow    Decision = "buy_now"
)

// Verdict is a Decision together with the computed drop.
type Verdict struct {
	Decision   Decision
	Percentage int
}

// Evaluate compares current against the latest recorded price and the target.
// Anything that is not strictly lower than latest is Unchanged, and so is any
// comparison involving a NaN or infinite price.
func Evaluate(current, latest, target float64) Verdict {
	if !finite(current) || !finite(latest) || current >= latest {
		return Verdict{Decision: Unchanged}
	}
	v := Verdict{Decision: BuyNow, Percentage: DropPercentage(latest, current)}
	if current > target {
		v.Decision = PriceDrop
	}
	return v
}

// DropPercentage returns |(to-from)/from| * 100 rounded half away from zero.
// It returns 0 when from is zero or either value is not finite.
func DropPercentage(from, to float64) int {
	if !finite(from) || !finite(to) {
		return 0
	}
	f := decimal.NewFromFloat(from)
	if f.IsZero() {
		return 0
	}
	pct := decimal.NewFromFloat(to).Sub(f).Div(f).Abs().Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

// FormatPrice renders a price without float noise or a trailing ".0".
func FormatPrice(p float64) string {
	if !finite(p) {
		return strconv.FormatFloat(p, 'f', -1, 64)
	}
	return decimal.NewFromFloat(p).String()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
