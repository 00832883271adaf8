package replay

import (
	"time"

	"github.com/shopspring/decimal"

	"liquidityLab/internal/fixedpoint"
	"liquidityLab/internal/model"
	"liquidityLab/internal/position"
)

const ratioScale = 18

var yearMillis = decimal.NewFromInt(int64(365 * 24 * time.Hour / time.Millisecond))

// ComputeMetrics values the book against simply holding the net deposits,
// everything in token1 at the current price.
func ComputeMetrics(totals position.Totals, price decimal.Decimal, elapsedMs int64) model.Metrics {
	hold := fixedpoint.Decimal(totals.Deposited0).Sub(fixedpoint.Decimal(totals.Withdrawn0)).Mul(price).
		Add(fixedpoint.Decimal(totals.Deposited1).Sub(fixedpoint.Decimal(totals.Withdrawn1)))
	final := totals.Value(price)
	feeValue := fixedpoint.Decimal(totals.FeesEarned0).Mul(price).Add(fixedpoint.Decimal(totals.FeesEarned1))
	costValue := fixedpoint.Decimal(totals.SwapFees0).Add(fixedpoint.Decimal(totals.Slippage0)).Mul(price).
		Add(fixedpoint.Decimal(totals.SwapFees1)).Add(fixedpoint.Decimal(totals.Slippage1))

	return model.Metrics{
		HoldValue:      round(hold),
		FinalValue:     round(final),
		PnL:            round(final.Sub(hold)),
		ReturnPct:      round(ratio(final.Sub(hold), hold).Mul(decimal.NewFromInt(100))),
		FeeValue:       round(feeValue),
		CostValue:      round(costValue),
		DivergenceLoss: round(final.Sub(totals.Contributed(price))),
		FeeAPR:         round(annualize(ratio(feeValue, hold), elapsedMs)),
	}
}

func ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.Sign() <= 0 {
		return decimal.Zero
	}
	return num.DivRound(den, ratioScale)
}

func annualize(rate decimal.Decimal, elapsedMs int64) decimal.Decimal {
	if elapsedMs <= 0 {
		return decimal.Zero
	}
	return rate.Mul(yearMillis).DivRound(decimal.NewFromInt(elapsedMs), ratioScale)
}

func round(d decimal.Decimal) string {
	return d.Round(ratioScale).String()
}
