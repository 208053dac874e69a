package stableswap

import (
	"github.com/holiman/uint256"

	"ammcore/internal/ammerr"
)

const (
	// NCoins is fixed: pools hold exactly two assets.
	NCoins = 2
	// MaxIterations caps every Newton solve.
	MaxIterations = 255

	MinAmp = 1
	MaxAmp = 1_000
)

// ValidateAmp fails with ErrInvalidAmp when amp is outside [MinAmp, MaxAmp].
func ValidateAmp(amp uint64) error {
	if amp < MinAmp || amp > MaxAmp {
		return ammerr.Wrapf(ammerr.ErrInvalidAmp, "amplification %d outside [%d, %d]", amp, MinAmp, MaxAmp)
	}
	return nil
}

// annOf returns A*n^n.
func annOf(amp uint64) *uint256.Int {
	return uint256.NewInt(amp * NCoins * NCoins)
}

// ComputeD solves the invariant D for reserves (x, y) at amplification amp.
// Iteration stops when successive estimates differ by at most one or the
// iteration cap is reached; the last estimate is returned either way.
func ComputeD(x, y, amp uint64) (*uint256.Int, error) {
	if err := ValidateAmp(amp); err != nil {
		return nil, err
	}
	if x == 0 && y == 0 {
		return new(uint256.Int), nil
	}
	if x == 0 || y == 0 {
		return nil, ammerr.Wrapf(ammerr.ErrZeroAmount, "reserves %d/%d", x, y)
	}

	n := uint256.NewInt(NCoins)
	xn := new(uint256.Int).Mul(uint256.NewInt(x), n)
	yn := new(uint256.Int).Mul(uint256.NewInt(y), n)
	s := new(uint256.Int).Add(uint256.NewInt(x), uint256.NewInt(y))
	ann := annOf(amp)
	annMinusOne := new(uint256.Int).SubUint64(ann, 1)
	annS := new(uint256.Int).Mul(ann, s)

	d := new(uint256.Int).Set(s)
	prev := new(uint256.Int)
	dp := new(uint256.Int)
	num := new(uint256.Int)
	den := new(uint256.Int)
	tmp := new(uint256.Int)

	for i := 0; i < MaxIterations; i++ {
		// D_P = D^(n+1) / (n^n * x * y), built one reserve at a time.
		dp.Mul(d, d)
		dp.Div(dp, xn)
		dp.Mul(dp, d)
		dp.Div(dp, yn)

		prev.Set(d)

		// (Ann*S + D_P*n) * D
		num.Mul(dp, n)
		num.Add(num, annS)
		num.Mul(num, d)

		// (Ann-1)*D + (n+1)*D_P
		den.Mul(annMinusOne, d)
		tmp.Mul(dp, uint256.NewInt(NCoins+1))
		den.Add(den, tmp)

		d.Div(num, den)

		if withinOne(d, prev) {
			break
		}
	}
	return d, nil
}

// ComputeY returns the reserve of the other asset such that (x, y) lies on
// the invariant D at amplification amp. The result is floor-rounded.
func ComputeY(x uint64, d *uint256.Int, amp uint64) (uint64, error) {
	if err := ValidateAmp(amp); err != nil {
		return 0, err
	}
	if x == 0 {
		return 0, ammerr.Wrapf(ammerr.ErrZeroAmount, "reserve in is zero")
	}
	if d.IsZero() {
		return 0, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "invariant is zero")
	}

	ann := annOf(amp)
	n := uint256.NewInt(NCoins)

	// c = D^(n+1) / (n^n * x * Ann)
	c := new(uint256.Int).Mul(d, d)
	c.Div(c, new(uint256.Int).Mul(uint256.NewInt(x), n))
	c.Mul(c, d)
	c.Div(c, new(uint256.Int).Mul(ann, n))

	// b = x + D/Ann
	b := new(uint256.Int).Div(d, ann)
	b.AddUint64(b, x)

	y := new(uint256.Int).Set(d)
	prev := new(uint256.Int)
	num := new(uint256.Int)
	den := new(uint256.Int)

	for i := 0; i < MaxIterations; i++ {
		prev.Set(y)

		num.Mul(y, y)
		num.Add(num, c)

		den.Lsh(y, 1)
		den.Add(den, b)
		if !den.Gt(d) {
			break
		}
		den.Sub(den, d)

		y.Div(num, den)
		if withinOne(y, prev) {
			break
		}
	}
	if !y.IsUint64() {
		return 0, ammerr.Wrapf(ammerr.ErrOverflow, "solved reserve %s", y.Dec())
	}
	return y.Uint64(), nil
}

func withinOne(a, b *uint256.Int) bool {
	two := uint256.NewInt(2)
	if a.Gt(b) {
		return new(uint256.Int).Sub(a, b).Lt(two)
	}
	return new(uint256.Int).Sub(b, a).Lt(two)
}
