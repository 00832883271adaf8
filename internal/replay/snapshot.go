package replay

import (
	"github.com/holiman/uint256"

	"liquidityLab/internal/model"
	"liquidityLab/internal/position"
)

// TakeSnapshot captures the book at its current clock.
func TakeSnapshot(book *position.Book, runID string, withPositions bool) model.Snapshot {
	totals := book.Totals()
	price := book.Price()
	tick := book.Tick()

	snap := model.Snapshot{
		RunID:            runID,
		Timestamp:        book.Now(),
		SqrtPriceX64:     book.SqrtPrice().Dec(),
		Price:            price.String(),
		Tick:             tick,
		PoolLiquidity:    book.PoolLiquidity().Dec(),
		Cash0:            totals.Cash0.Dec(),
		Cash1:            totals.Cash1.Dec(),
		PositionAmount0:  totals.PositionAmount0.Dec(),
		PositionAmount1:  totals.PositionAmount1.Dec(),
		FeesOwed0:        totals.FeesOwed0.Dec(),
		FeesOwed1:        totals.FeesOwed1.Dec(),
		CollectedFees0:   totals.FeesCollected0.Dec(),
		CollectedFees1:   totals.FeesCollected1.Dec(),
		Costs0:           new(uint256.Int).Add(totals.SwapFees0, totals.Slippage0).Dec(),
		Costs1:           new(uint256.Int).Add(totals.SwapFees1, totals.Slippage1).Dec(),
		ValueInToken1:    round(totals.Value(price)),
		OpenPositions:    totals.OpenPositions,
		InRangePositions: totals.InRangePositions,
	}
	if !withPositions {
		return snap
	}

	sqrtPrice := book.SqrtPrice()
	for _, pos := range book.OpenPositions() {
		amount0, amount1 := pos.Amounts(sqrtPrice)
		snap.Positions = append(snap.Positions, model.PositionSummary{
			ID:        pos.ID,
			Lower:     pos.Lower,
			Upper:     pos.Upper,
			Liquidity: pos.Liquidity.Dec(),
			Amount0:   amount0.Dec(),
			Amount1:   amount1.Dec(),
			FeeOwed0:  pos.FeesOwed0.Dec(),
			FeeOwed1:  pos.FeesOwed1.Dec(),
			InRange:   pos.InRange(tick),
			Closed:    pos.Closed,
		})
	}
	return snap
}
