package fixedpoint

import "github.com/holiman/uint256"

// MulDiv returns floor(a*b/denominator) using a 512-bit intermediate product.
// It panics when the denominator is zero or the result does not fit in 256 bits;
// callers guard denominators and keep operands within 128 bits.
func MulDiv(a, b, denominator *uint256.Int) *uint256.Int {
	if denominator.IsZero() {
		panic("mulDiv: zero denominator")
	}
	result, overflow := new(uint256.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		panic("mulDiv overflow")
	}
	return result
}

// MulDivRoundingUp is MulDiv rounded towards positive infinity.
func MulDivRoundingUp(a, b, denominator *uint256.Int) *uint256.Int {
	if a.IsZero() || b.IsZero() {
		return new(uint256.Int)
	}
	result := MulDiv(a, b, denominator)
	if rem := new(uint256.Int).MulMod(a, b, denominator); !rem.IsZero() {
		result.AddUint64(result, 1)
	}
	return result
}

// Min returns a copy of the smaller value.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}

// SubFloor returns max(a-b, 0).
func SubFloor(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// OrZero returns v, or a fresh zero when v is nil.
func OrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
