package stableswap

import (
	"math/big"

	"github.com/holiman/uint256"

	"ammcore/internal/ammerr"
	"ammcore/internal/cpmm"
	"ammcore/internal/fixedpoint"
)

// maxInvariantAdjust bounds how many units the output may be trimmed to keep
// D from decreasing after rounding.
const maxInvariantAdjust = 16

// SwapQuote is the result of pricing a swap on the amplified curve.
type SwapQuote struct {
	AmountIn         uint64
	Fee              uint64
	AmountInAfterFee uint64
	AmountOut        uint64
	DBefore          *uint256.Int
	DAfter           *uint256.Int
}

// Swap prices amountIn against (reserveIn, reserveOut) at amplification amp.
// The trading fee is deducted first; the output is rounded down and then
// trimmed until the invariant after the trade is at least the invariant before.
func Swap(amountIn, reserveIn, reserveOut, feeBps, amp uint64) (SwapQuote, error) {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 {
		return SwapQuote{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "swap %d against reserves %d/%d", amountIn, reserveIn, reserveOut)
	}
	fee, err := fixedpoint.ApplyBps(amountIn, feeBps)
	if err != nil {
		return SwapQuote{}, err
	}
	afterFee := amountIn - fee
	newIn := reserveIn + afterFee
	if newIn < reserveIn {
		return SwapQuote{}, ammerr.Wrapf(ammerr.ErrOverflow, "reserve %d + %d", reserveIn, afterFee)
	}

	d0, err := ComputeD(reserveIn, reserveOut, amp)
	if err != nil {
		return SwapQuote{}, err
	}
	q := SwapQuote{AmountIn: amountIn, Fee: fee, AmountInAfterFee: afterFee, DBefore: d0, DAfter: d0}
	if afterFee == 0 {
		return q, nil
	}

	y, err := ComputeY(newIn, d0, amp)
	if err != nil {
		return SwapQuote{}, err
	}
	if y+1 >= reserveOut {
		return q, nil
	}
	out := reserveOut - y - 1

	for i := 0; out > 0; i++ {
		d1, err := ComputeD(newIn, reserveOut-out, amp)
		if err != nil {
			return SwapQuote{}, err
		}
		if !d1.Lt(d0) {
			q.AmountOut = out
			q.DAfter = d1
			return q, nil
		}
		if i >= maxInvariantAdjust {
			break
		}
		out--
	}
	return q, nil
}

// InitialShares prices the first deposit of a stable pool: D shares of which
// cpmm.MinimumLiquidity are burned.
func InitialShares(amountA, amountB, amp uint64) (cpmm.MintResult, error) {
	if amountA == 0 || amountB == 0 {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "initial deposit %d/%d", amountA, amountB)
	}
	d, err := ComputeD(amountA, amountB, amp)
	if err != nil {
		return cpmm.MintResult{}, err
	}
	if !d.IsUint64() {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrOverflow, "initial invariant %s", d.Dec())
	}
	if d.Uint64() <= cpmm.MinimumLiquidity {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "initial invariant %d below minimum %d", d.Uint64(), cpmm.MinimumLiquidity)
	}
	return cpmm.MintResult{
		Shares: d.Uint64() - cpmm.MinimumLiquidity,
		UsedA:  amountA,
		UsedB:  amountB,
		Burned: cpmm.MinimumLiquidity,
	}, nil
}

// DepositShares prices a deposit into a funded stable pool. Shares are minted
// in proportion to the growth of D, so D per share never decreases.
func DepositShares(amountA, amountB, reserveA, reserveB, totalShares, amp uint64) (cpmm.MintResult, error) {
	if amountA == 0 && amountB == 0 {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "empty deposit")
	}
	if totalShares == 0 {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "pool has no shares")
	}
	newA, newB := reserveA+amountA, reserveB+amountB
	if newA < reserveA || newB < reserveB {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrOverflow, "deposit %d/%d", amountA, amountB)
	}
	d0, err := ComputeD(reserveA, reserveB, amp)
	if err != nil {
		return cpmm.MintResult{}, err
	}
	d1, err := ComputeD(newA, newB, amp)
	if err != nil {
		return cpmm.MintResult{}, err
	}
	if !d0.Lt(d1) {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "deposit does not grow invariant")
	}
	growth := new(uint256.Int).Sub(d1, d0)
	shares := fixedpoint.MulDivWide(growth, uint256.NewInt(totalShares), d0)
	if !shares.IsUint64() {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrOverflow, "minted shares %s", shares.Dec())
	}
	if shares.IsZero() {
		return cpmm.MintResult{}, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "deposit %d/%d mints zero shares", amountA, amountB)
	}
	return cpmm.MintResult{Shares: shares.Uint64(), UsedA: amountA, UsedB: amountB}, nil
}

// SpotPrice returns the marginal amount of out-asset per unit of in-asset at
// reserves (x, y): the ratio of the invariant's partial derivatives.
func SpotPrice(x, y, amp uint64) (*big.Rat, error) {
	d, err := ComputeD(x, y, amp)
	if err != nil {
		return nil, err
	}
	bx := new(big.Int).SetUint64(x)
	by := new(big.Int).SetUint64(y)
	bd := d.ToBig()
	d3 := new(big.Int).Mul(bd, bd)
	d3.Mul(d3, bd)
	ann := new(big.Int).SetUint64(amp * NCoins * NCoins)
	four := big.NewInt(NCoins * NCoins)

	// Ann*4*x^2*y + D^3
	fx := new(big.Int).Mul(bx, bx)
	fx.Mul(fx, by)
	fx.Mul(fx, four)
	fx.Mul(fx, ann)
	fx.Add(fx, d3)

	// Ann*4*x*y^2 + D^3
	fy := new(big.Int).Mul(by, by)
	fy.Mul(fy, bx)
	fy.Mul(fy, four)
	fy.Mul(fy, ann)
	fy.Add(fy, d3)

	num := new(big.Int).Mul(fx, by)
	den := new(big.Int).Mul(fy, bx)
	return new(big.Rat).SetFrac(num, den), nil
}

// IdealOutput values amountIn at the pool's own spot price.
func IdealOutput(amountIn, reserveIn, reserveOut, amp uint64) (*big.Rat, error) {
	price, err := SpotPrice(reserveIn, reserveOut, amp)
	if err != nil {
		return nil, err
	}
	return price.Mul(price, new(big.Rat).SetInt(new(big.Int).SetUint64(amountIn))), nil
}
