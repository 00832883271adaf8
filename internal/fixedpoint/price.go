package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal places kept when a sqrt price is
// expanded into a human-readable price.
const PricePrecision int32 = 36

var q128Decimal = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128), 0)

// SqrtPriceToPrice returns (sqrtPrice / 2^64)^2, token1 per token0.
func SqrtPriceToPrice(sqrtPrice *uint256.Int) decimal.Decimal {
	if sqrtPrice == nil || sqrtPrice.IsZero() {
		return decimal.Zero
	}
	root := sqrtPrice.ToBig()
	squared := new(big.Int).Mul(root, root)
	return decimal.NewFromBigInt(squared, 0).DivRound(q128Decimal, PricePrecision)
}

// PriceToSqrtPrice returns floor(sqrt(price) * 2^64).
func PriceToSqrtPrice(price decimal.Decimal) (*uint256.Int, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price %s must be positive", ErrInvalidPrice, price.String())
	}
	scaled := price.Mul(q128Decimal).BigInt()
	root := new(big.Int).Sqrt(scaled)
	sqrtPrice, overflow := uint256.FromBig(root)
	if overflow {
		return nil, fmt.Errorf("%w: price %s overflows", ErrInvalidPrice, price.String())
	}
	if err := ValidateSqrtPrice(sqrtPrice); err != nil {
		return nil, err
	}
	return sqrtPrice, nil
}

// PriceToTick returns floor(log(price) / log(1.0001)). The table lookup only
// locates the neighbourhood; the boundary is settled against 1.0001^tick exactly.
func PriceToTick(price decimal.Decimal) (int32, error) {
	if !price.IsPositive() {
		return 0, fmt.Errorf("%w: price %s must be positive", ErrInvalidPrice, price.String())
	}

	tick := estimateTick(price)
	for comparePriceToTick(price, tick+1) >= 0 {
		if tick == MaxTick {
			return 0, fmt.Errorf("%w: price %s above tick %d", ErrInvalidPrice, price.String(), MaxTick)
		}
		tick++
	}
	for comparePriceToTick(price, tick) < 0 {
		if tick == MinTick {
			return 0, fmt.Errorf("%w: price %s below tick %d", ErrInvalidPrice, price.String(), MinTick)
		}
		tick--
	}
	return tick, nil
}

// TickToPrice returns 1.0001^tick rounded up to PricePrecision places, so
// PriceToTick maps the result back onto the same tick.
func TickToPrice(tick int32) (decimal.Decimal, error) {
	if tick < MinTick || tick > MaxTick {
		return decimal.Zero, fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidTick, tick, MinTick, MaxTick)
	}
	num, den := tickPower(tick)
	num.Mul(num, pow10(int64(PricePrecision)))
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return decimal.NewFromBigInt(quo, -PricePrecision), nil
}

// estimateTick places price on the sqrt price table. Table rounding can leave
// the result one tick off.
func estimateTick(price decimal.Decimal) int32 {
	root := new(big.Int).Sqrt(price.Mul(q128Decimal).BigInt())
	sqrtPrice, overflow := uint256.FromBig(root)
	switch {
	case overflow || sqrtPrice.Gt(MaxSqrtPrice):
		return MaxTick
	case sqrtPrice.Lt(MinSqrtPrice):
		return MinTick
	}
	tick, err := SqrtPriceToTick(sqrtPrice)
	if err != nil {
		return MinTick
	}
	return tick
}

// comparePriceToTick returns the sign of price - 1.0001^tick.
func comparePriceToTick(price decimal.Decimal, tick int32) int {
	num, den := tickPower(tick)
	lhs := new(big.Int).Mul(price.Coefficient(), den)
	if exp := int64(price.Exponent()); exp >= 0 {
		lhs.Mul(lhs, pow10(exp))
	} else {
		num.Mul(num, pow10(-exp))
	}
	return lhs.Cmp(num)
}

// tickPower returns num/den == 1.0001^tick as fresh integers.
func tickPower(tick int32) (num, den *big.Int) {
	n := int64(tick)
	if n < 0 {
		n = -n
	}
	pow := new(big.Int).Exp(big.NewInt(10001), big.NewInt(n), nil)
	scale := pow10(4 * n)
	if tick < 0 {
		return scale, pow
	}
	return pow, scale
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// X96ToQ64 converts a Uniswap Q64.96 sqrt price into the Q64.64 scale.
func X96ToQ64(sqrtPriceX96 *big.Int) (*uint256.Int, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return nil, fmt.Errorf("%w: sqrt price x96 must be positive", ErrInvalidPrice)
	}
	shifted := new(big.Int).Rsh(sqrtPriceX96, 32)
	out, overflow := uint256.FromBig(shifted)
	if overflow {
		return nil, fmt.Errorf("%w: sqrt price x96 overflows", ErrInvalidPrice)
	}
	return out, nil
}

// Decimal converts an integer amount into a decimal.
func Decimal(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), 0)
}

// FromDecimal truncates a non-negative decimal into an integer amount.
func FromDecimal(d decimal.Decimal) *uint256.Int {
	if !d.IsPositive() {
		return new(uint256.Int)
	}
	out, overflow := uint256.FromBig(d.BigInt())
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return out
}
