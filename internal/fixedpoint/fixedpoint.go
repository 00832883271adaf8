// Package fixedpoint implements the Q64.64 sqrt-price arithmetic shared by the
// pool, optimizer and position book. All conversions run on integers so a
// replay produces identical results on every platform.
package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Tick bounds for Q64.64 sqrt prices. 1.0001^(MaxTick/2) * 2^64 still fits in 128 bits.
const (
	MinTick int32 = -443636
	MaxTick int32 = 443636

	// FeeDenominator is the scale of fee tiers expressed in parts per million.
	FeeDenominator = 1_000_000
)

var (
	ErrInvalidTick    = errors.New("invalid tick")
	ErrMisalignedTick = errors.New("tick not aligned to tick spacing")
	ErrInvalidRange   = errors.New("invalid tick range")
	ErrInvalidPrice   = errors.New("invalid price")
)

var (
	Q64        = new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	Q128       = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	MaxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

	// MinSqrtPrice and MaxSqrtPrice are the sqrt prices at MinTick and MaxTick.
	MinSqrtPrice = mustTickToSqrtPrice(MinTick)
	MaxSqrtPrice = mustTickToSqrtPrice(MaxTick)
)

// ValidateTick checks the tick lies inside [MinTick, MaxTick] and on the spacing grid.
func ValidateTick(tick, spacing int32) error {
	if tick < MinTick || tick > MaxTick {
		return fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidTick, tick, MinTick, MaxTick)
	}
	if spacing <= 0 {
		return fmt.Errorf("%w: tick spacing %d", ErrInvalidTick, spacing)
	}
	if tick%spacing != 0 {
		return fmt.Errorf("%w: %d with spacing %d", ErrMisalignedTick, tick, spacing)
	}
	return nil
}

// ValidateRange checks lower < upper and both ends are usable ticks.
func ValidateRange(lower, upper, spacing int32) error {
	if lower >= upper {
		return fmt.Errorf("%w: lower %d >= upper %d", ErrInvalidRange, lower, upper)
	}
	if err := ValidateTick(lower, spacing); err != nil {
		return err
	}
	return ValidateTick(upper, spacing)
}

// ValidateSqrtPrice rejects zero and out-of-bounds sqrt prices.
func ValidateSqrtPrice(sqrtPrice *uint256.Int) error {
	if sqrtPrice == nil || sqrtPrice.IsZero() {
		return fmt.Errorf("%w: zero sqrt price", ErrInvalidPrice)
	}
	if sqrtPrice.Lt(MinSqrtPrice) || sqrtPrice.Gt(MaxSqrtPrice) {
		return fmt.Errorf("%w: sqrt price %s out of bounds", ErrInvalidPrice, sqrtPrice.Dec())
	}
	return nil
}

// NearestUsableTick rounds tick to the closest multiple of spacing inside the tick bounds.
func NearestUsableTick(tick, spacing int32) int32 {
	if spacing <= 0 {
		return tick
	}
	rounded := floorDiv(tick, spacing) * spacing
	if rem := tick - rounded; rem*2 >= spacing {
		rounded += spacing
	}
	if rounded < MinTick {
		rounded += spacing
	} else if rounded > MaxTick {
		rounded -= spacing
	}
	return rounded
}

// FloorTick rounds tick down to a multiple of spacing.
func FloorTick(tick, spacing int32) int32 {
	if spacing <= 0 {
		return tick
	}
	return floorDiv(tick, spacing) * spacing
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
