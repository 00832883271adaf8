package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
)

// sqrt(1.0001)^-1 in Q64.64, used when the lowest tick bit is set.
var oddTickRatio = uint256.MustFromDecimal("18445821805675395072")

// tickRatios[i] is sqrt(1.0001)^-(2^(i+1)) in Q64.64.
var tickRatios = [...]*uint256.Int{
	uint256.MustFromDecimal("18444899583751176192"),
	uint256.MustFromDecimal("18443055278223355904"),
	uint256.MustFromDecimal("18439367220385607680"),
	uint256.MustFromDecimal("18431993317065453568"),
	uint256.MustFromDecimal("18417254355718170624"),
	uint256.MustFromDecimal("18387811781193609216"),
	uint256.MustFromDecimal("18329067761203558400"),
	uint256.MustFromDecimal("18212142134806163456"),
	uint256.MustFromDecimal("17980523815641700352"),
	uint256.MustFromDecimal("17526086738831433728"),
	uint256.MustFromDecimal("16651378430235570176"),
	uint256.MustFromDecimal("15030750278694412288"),
	uint256.MustFromDecimal("12247334978884435968"),
	uint256.MustFromDecimal("8131365268886854656"),
	uint256.MustFromDecimal("3584323654725218816"),
	uint256.MustFromDecimal("696457651848324352"),
	uint256.MustFromDecimal("26294789957507116"),
	uint256.MustFromDecimal("37481735321082"),
}

// TickToSqrtPrice returns sqrt(1.0001^tick) as a Q64.64 value.
func TickToSqrtPrice(tick int32) (*uint256.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("%w: %d outside [%d, %d]", ErrInvalidTick, tick, MinTick, MaxTick)
	}

	abs := uint32(tick)
	if tick < 0 {
		abs = uint32(-tick)
	}

	var ratio *uint256.Int
	if abs&0x1 != 0 {
		ratio = oddTickRatio.Clone()
	} else {
		ratio = Q64.Clone()
	}
	for i, mul := range tickRatios {
		if abs&(1<<(i+1)) != 0 {
			ratio.Mul(ratio, mul)
			ratio.Rsh(ratio, 64)
		}
	}

	if tick > 0 {
		ratio.Div(MaxUint128, ratio)
	}
	return ratio, nil
}

// AlignedTickToSqrtPrice is TickToSqrtPrice restricted to ticks on the spacing grid.
func AlignedTickToSqrtPrice(tick, spacing int32) (*uint256.Int, error) {
	if err := ValidateTick(tick, spacing); err != nil {
		return nil, err
	}
	return TickToSqrtPrice(tick)
}

// SqrtPriceToTick returns the greatest tick whose sqrt price is <= sqrtPrice.
func SqrtPriceToTick(sqrtPrice *uint256.Int) (int32, error) {
	if err := ValidateSqrtPrice(sqrtPrice); err != nil {
		return 0, err
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if mustTickToSqrtPrice(mid).Cmp(sqrtPrice) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// RangeSqrtPrices resolves both ends of a validated range.
func RangeSqrtPrices(lower, upper, spacing int32) (*uint256.Int, *uint256.Int, error) {
	if err := ValidateRange(lower, upper, spacing); err != nil {
		return nil, nil, err
	}
	sqrtLower, err := TickToSqrtPrice(lower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := TickToSqrtPrice(upper)
	if err != nil {
		return nil, nil, err
	}
	return sqrtLower, sqrtUpper, nil
}

func mustTickToSqrtPrice(tick int32) *uint256.Int {
	ratio, err := TickToSqrtPrice(tick)
	if err != nil {
		panic(err)
	}
	return ratio
}
