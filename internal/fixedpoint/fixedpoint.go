package fixedpoint

import (
	"github.com/holiman/uint256"

	"ammcore/internal/ammerr"
)

const (
	// BpsDenominator is the basis point scale used by every fee and tolerance.
	BpsDenominator = 10_000
	// Precision scales fee-per-share accumulators.
	Precision = 1_000_000_000_000
)

// Sqrt returns floor(sqrt(x)) using Newton's method. Iteration stops once the
// estimate stops decreasing.
func Sqrt(x *uint256.Int) *uint256.Int {
	if x.IsZero() {
		return new(uint256.Int)
	}
	z := new(uint256.Int).Set(x)
	y := new(uint256.Int).Rsh(x, 1)
	if x.Uint64()&1 == 1 {
		y.AddUint64(y, 1)
	}
	tmp := new(uint256.Int)
	for y.Lt(z) {
		z.Set(y)
		tmp.Div(x, y)
		y.Add(tmp, y)
		y.Rsh(y, 1)
	}
	return z
}

// SqrtProduct returns floor(sqrt(a*b)). The result always fits in 64 bits.
func SqrtProduct(a, b uint64) uint64 {
	prod := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return Sqrt(prod).Uint64()
}

// MulDivWide computes floor(a*b/denom) on 256-bit operands. denom must be non-zero.
func MulDivWide(a, b, denom *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Mul(a, b)
	return out.Div(out, denom)
}

// MulDiv computes floor(a*b/denom) through a 256-bit intermediate.
func MulDiv(a, b, denom uint64) (uint64, error) {
	if denom == 0 {
		return 0, ammerr.Wrapf(ammerr.ErrZeroAmount, "mul_div denominator")
	}
	out := MulDivWide(uint256.NewInt(a), uint256.NewInt(b), uint256.NewInt(denom))
	if !out.IsUint64() {
		return 0, ammerr.Wrapf(ammerr.ErrOverflow, "mul_div %d*%d/%d", a, b, denom)
	}
	return out.Uint64(), nil
}

// MulDivUp is MulDiv rounded towards positive infinity.
func MulDivUp(a, b, denom uint64) (uint64, error) {
	if denom == 0 {
		return 0, ammerr.Wrapf(ammerr.ErrZeroAmount, "mul_div_up denominator")
	}
	num := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	d := uint256.NewInt(denom)
	out := new(uint256.Int).Div(num, d)
	rem := new(uint256.Int).Mod(num, d)
	if !rem.IsZero() {
		out.AddUint64(out, 1)
	}
	if !out.IsUint64() {
		return 0, ammerr.Wrapf(ammerr.ErrOverflow, "mul_div_up %d*%d/%d", a, b, denom)
	}
	return out.Uint64(), nil
}

// Quote returns the proportional amount of B for amountA at the given reserves.
func Quote(amountA, reserveA, reserveB uint64) (uint64, error) {
	if amountA == 0 || reserveA == 0 || reserveB == 0 {
		return 0, ammerr.Wrapf(ammerr.ErrZeroAmount, "quote %d against reserves %d/%d", amountA, reserveA, reserveB)
	}
	return MulDiv(amountA, reserveB, reserveA)
}

// ApplyBps returns floor(amount*bps/10000). bps above 10000 is a caller bug
// and is rejected.
func ApplyBps(amount, bps uint64) (uint64, error) {
	if bps > BpsDenominator {
		return 0, ammerr.Wrapf(ammerr.ErrInvalidParameter, "bps %d", bps)
	}
	return MulDiv(amount, bps, BpsDenominator)
}

// Product returns a*b as a 256-bit integer.
func Product(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

// AbsDiff returns |a-b|.
func AbsDiff(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Sub(b, a)
	}
	return new(uint256.Int).Sub(a, b)
}
