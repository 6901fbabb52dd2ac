package ledger

import "github.com/shopspring/decimal"

// maxBalance is the largest magnitude a balance may reach: the 96-bit
// mantissa limit of a fixed-width decimal. Arithmetic saturates here
// instead of growing without bound.
var (
	maxBalance = decimal.RequireFromString("79228162514264337593543950335")
	minBalance = maxBalance.Neg()
)

func saturatingAdd(a, b decimal.Decimal) decimal.Decimal {
	return clamp(a.Add(b))
}

func saturatingSub(a, b decimal.Decimal) decimal.Decimal {
	return clamp(a.Sub(b))
}

func clamp(d decimal.Decimal) decimal.Decimal {
	switch {
	case d.GreaterThan(maxBalance):
		return maxBalance
	case d.LessThan(minBalance):
		return minBalance
	default:
		return d
	}
}
