package position

import (
	"sort"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"liquidityLab/internal/fixedpoint"
)

// Views below return copies; none of them mutate the book.

// SortKey orders position listings.
type SortKey string

const (
	SortByCreatedAt SortKey = "created_at"
	SortByLiquidity SortKey = "liquidity"
	SortByLowerTick SortKey = "lower_tick"
	SortByWidth     SortKey = "width"
	SortByFees      SortKey = "fees"
)

// Totals aggregates the book at the current pool price.
type Totals struct {
	Cash0           *uint256.Int
	Cash1           *uint256.Int
	PositionAmount0 *uint256.Int
	PositionAmount1 *uint256.Int
	FeesOwed0       *uint256.Int
	FeesOwed1       *uint256.Int
	PendingFees0    *uint256.Int
	PendingFees1    *uint256.Int
	Liquidity       *uint256.Int

	OpenPositions    int
	InRangePositions int

	Ledger
}

// Value is cash, position amounts and owed fees valued in token1 at price.
func (t Totals) Value(price decimal.Decimal) decimal.Decimal {
	token0 := sumDecimal(t.Cash0, t.PositionAmount0, t.FeesOwed0)
	token1 := sumDecimal(t.Cash1, t.PositionAmount1, t.FeesOwed1)
	return token0.Mul(price).Add(token1)
}

// Contributed is deposits plus earned fees minus withdrawals and swap costs,
// valued in token1 at price. It equals Value while the price stays where the
// book's swaps and liquidity changes happened.
func (t Totals) Contributed(price decimal.Decimal) decimal.Decimal {
	token0 := sumDecimal(t.Deposited0, t.FeesEarned0).Sub(sumDecimal(t.Withdrawn0, t.SwapFees0, t.Slippage0))
	token1 := sumDecimal(t.Deposited1, t.FeesEarned1).Sub(sumDecimal(t.Withdrawn1, t.SwapFees1, t.Slippage1))
	return token0.Mul(price).Add(token1)
}

func sumDecimal(values ...*uint256.Int) decimal.Decimal {
	out := decimal.Zero
	for _, v := range values {
		out = out.Add(fixedpoint.Decimal(v))
	}
	return out
}

// Analytics summarises the position set for monitoring.
type Analytics struct {
	Total          int
	Open           int
	Closed         int
	InRange        int
	TotalLiquidity *uint256.Int
	AverageWidth   decimal.Decimal
	FeeValue       decimal.Decimal
	CostValue      decimal.Decimal
}

func (b *Book) Totals() Totals {
	sqrtPrice := b.pool.SqrtPrice()
	tick := b.pool.Tick()
	pending0, pending1 := b.fees.Pending()
	t := Totals{
		Cash0:           b.cash0.Clone(),
		Cash1:           b.cash1.Clone(),
		PositionAmount0: new(uint256.Int),
		PositionAmount1: new(uint256.Int),
		FeesOwed0:       new(uint256.Int),
		FeesOwed1:       new(uint256.Int),
		PendingFees0:    pending0,
		PendingFees1:    pending1,
		Liquidity:       new(uint256.Int),
		Ledger:          b.ledger.clone(),
	}
	for _, id := range b.order {
		pos := b.positions[id]
		t.FeesOwed0.Add(t.FeesOwed0, pos.FeesOwed0)
		t.FeesOwed1.Add(t.FeesOwed1, pos.FeesOwed1)
		if pos.Closed {
			continue
		}
		t.OpenPositions++
		if pos.InRange(tick) && !pos.Liquidity.IsZero() {
			t.InRangePositions++
		}
		amount0, amount1 := pos.Amounts(sqrtPrice)
		t.PositionAmount0.Add(t.PositionAmount0, amount0)
		t.PositionAmount1.Add(t.PositionAmount1, amount1)
		t.Liquidity.Add(t.Liquidity, pos.Liquidity)
	}
	return t
}

// Position returns a copy of id.
func (b *Book) Position(id string) (Position, bool) {
	pos, ok := b.positions[id]
	if !ok {
		return Position{}, false
	}
	return pos.Clone(), true
}

// Positions lists every position, closed ones included, in creation order.
func (b *Book) Positions() []Position {
	return b.Filter(func(Position) bool { return true })
}

func (b *Book) OpenPositions() []Position {
	return b.Filter(func(p Position) bool { return !p.Closed })
}

// InRangePositions lists open positions with liquidity that earn fees at the current tick.
func (b *Book) InRangePositions() []Position {
	tick := b.pool.Tick()
	return b.Filter(func(p Position) bool { return p.InRange(tick) && !p.Liquidity.IsZero() })
}

// Filter lists positions matching keep in creation order.
func (b *Book) Filter(keep func(Position) bool) []Position {
	out := make([]Position, 0, len(b.order))
	for _, id := range b.order {
		pos := b.positions[id].Clone()
		if keep(pos) {
			out = append(out, pos)
		}
	}
	return out
}

// PositionsInTickRange lists open positions overlapping [lower, upper).
func (b *Book) PositionsInTickRange(lower, upper int32) []Position {
	return b.Filter(func(p Position) bool {
		return !p.Closed && p.Lower < upper && lower < p.Upper
	})
}

// PositionsWithLiquidity lists open positions holding at least threshold liquidity.
func (b *Book) PositionsWithLiquidity(threshold *uint256.Int) []Position {
	threshold = fixedpoint.OrZero(threshold)
	return b.Filter(func(p Position) bool { return !p.Closed && !p.Liquidity.Lt(threshold) })
}

// PositionsCreatedBetween lists positions created within [from, to].
func (b *Book) PositionsCreatedBetween(from, to int64) []Position {
	return b.Filter(func(p Position) bool { return p.CreatedAt >= from && p.CreatedAt <= to })
}

// Sorted lists all positions ordered by key; ties keep creation order.
func (b *Book) Sorted(key SortKey, descending bool) []Position {
	out := b.Positions()
	price := b.pool.Price()
	less := func(i, j int) bool {
		switch key {
		case SortByLiquidity:
			return out[i].Liquidity.Lt(out[j].Liquidity)
		case SortByLowerTick:
			return out[i].Lower < out[j].Lower
		case SortByWidth:
			return out[i].Width() < out[j].Width()
		case SortByFees:
			return out[i].FeeValue(price).LessThan(out[j].FeeValue(price))
		default:
			return out[i].CreatedAt < out[j].CreatedAt
		}
	}
	if descending {
		sort.SliceStable(out, func(i, j int) bool { return less(j, i) })
	} else {
		sort.SliceStable(out, less)
	}
	return out
}

func (b *Book) Analytics() Analytics {
	price := b.pool.Price()
	tick := b.pool.Tick()
	a := Analytics{
		TotalLiquidity: new(uint256.Int),
		AverageWidth:   decimal.Zero,
		FeeValue:       decimal.Zero,
		CostValue:      decimal.Zero,
	}
	var widths int64
	for _, id := range b.order {
		pos := b.positions[id]
		a.Total++
		a.FeeValue = a.FeeValue.Add(pos.FeeValue(price))
		a.CostValue = a.CostValue.Add(pos.CostValue(price))
		if pos.Closed {
			a.Closed++
			continue
		}
		a.Open++
		widths += int64(pos.Width())
		a.TotalLiquidity.Add(a.TotalLiquidity, pos.Liquidity)
		if pos.InRange(tick) && !pos.Liquidity.IsZero() {
			a.InRange++
		}
	}
	if a.Open > 0 {
		a.AverageWidth = decimal.NewFromInt(widths).DivRound(decimal.NewFromInt(int64(a.Open)), 2)
	}
	return a
}
