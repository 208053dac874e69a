package cpmm

import (
	"github.com/holiman/uint256"

	"ammcore/internal/ammerr"
	"ammcore/internal/fixedpoint"
)

// MinimumLiquidity is burned on the first deposit of every pool.
const MinimumLiquidity = 1_000

// SwapQuote is the result of pricing a swap against constant-product reserves.
type SwapQuote struct {
	AmountIn         uint64
	Fee              uint64
	AmountInAfterFee uint64
	AmountOut        uint64
}

// SwapOutput deducts the trading fee from amountIn and prices the remainder
// against reserveIn/reserveOut. The output is floored.
func SwapOutput(amountIn, reserveIn, reserveOut, feeBps uint64) (uint64, error) {
	q, err := Swap(amountIn, reserveIn, reserveOut, feeBps)
	if err != nil {
		return 0, err
	}
	return q.AmountOut, nil
}

// Swap is SwapOutput with the fee breakdown retained.
func Swap(amountIn, reserveIn, reserveOut, feeBps uint64) (SwapQuote, error) {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 {
		return SwapQuote{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "swap %d against reserves %d/%d", amountIn, reserveIn, reserveOut)
	}
	fee, err := fixedpoint.ApplyBps(amountIn, feeBps)
	if err != nil {
		return SwapQuote{}, err
	}
	afterFee := amountIn - fee

	num := fixedpoint.Product(afterFee, reserveOut)
	den := new(uint256.Int).Add(uint256.NewInt(reserveIn), uint256.NewInt(afterFee))
	out := num.Div(num, den)

	return SwapQuote{
		AmountIn:         amountIn,
		Fee:              fee,
		AmountInAfterFee: afterFee,
		AmountOut:        out.Uint64(),
	}, nil
}

// MintResult describes a deposit priced against the pool.
type MintResult struct {
	Shares  uint64
	UsedA   uint64
	UsedB   uint64
	RefundA uint64
	RefundB uint64
	// Burned is MinimumLiquidity for the first deposit and zero afterwards.
	Burned uint64
}

// InitialShares prices the first deposit: sqrt(a*b) shares of which
// MinimumLiquidity are burned.
func InitialShares(amountA, amountB uint64) (MintResult, error) {
	if amountA == 0 || amountB == 0 {
		return MintResult{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "initial deposit %d/%d", amountA, amountB)
	}
	root := fixedpoint.SqrtProduct(amountA, amountB)
	if root <= MinimumLiquidity {
		return MintResult{}, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "initial liquidity %d below minimum %d", root, MinimumLiquidity)
	}
	return MintResult{
		Shares: root - MinimumLiquidity,
		UsedA:  amountA,
		UsedB:  amountB,
		Burned: MinimumLiquidity,
	}, nil
}

// ProportionalShares prices a deposit into a funded pool. The over-supplied
// side is trimmed to the pool ratio and refunded.
func ProportionalShares(amountA, amountB, reserveA, reserveB, totalShares uint64) (MintResult, error) {
	if amountA == 0 || amountB == 0 {
		return MintResult{}, ammerr.Wrapf(ammerr.ErrZeroAmount, "deposit %d/%d", amountA, amountB)
	}
	if reserveA == 0 || reserveB == 0 || totalShares == 0 {
		return MintResult{}, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "pool reserves %d/%d shares %d", reserveA, reserveB, totalShares)
	}

	usedA, usedB := amountA, amountB
	optimalB, err := fixedpoint.Quote(amountA, reserveA, reserveB)
	if err != nil {
		return MintResult{}, err
	}
	if optimalB <= amountB {
		usedB = optimalB
	} else {
		optimalA, err := fixedpoint.Quote(amountB, reserveB, reserveA)
		if err != nil {
			return MintResult{}, err
		}
		usedA = optimalA
	}

	sharesA, err := fixedpoint.MulDiv(usedA, totalShares, reserveA)
	if err != nil {
		return MintResult{}, err
	}
	sharesB, err := fixedpoint.MulDiv(usedB, totalShares, reserveB)
	if err != nil {
		return MintResult{}, err
	}
	shares := min(sharesA, sharesB)
	if shares == 0 {
		return MintResult{}, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "deposit %d/%d mints zero shares", amountA, amountB)
	}

	return MintResult{
		Shares:  shares,
		UsedA:   usedA,
		UsedB:   usedB,
		RefundA: amountA - usedA,
		RefundB: amountB - usedB,
	}, nil
}

// BurnShares returns the reserve amounts released by burning shares.
func BurnShares(shares, reserveA, reserveB, totalShares uint64) (uint64, uint64, error) {
	if shares == 0 {
		return 0, 0, ammerr.Wrapf(ammerr.ErrZeroAmount, "burn zero shares")
	}
	if shares > totalShares {
		return 0, 0, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "burn %d of %d shares", shares, totalShares)
	}
	outA, err := fixedpoint.MulDiv(reserveA, shares, totalShares)
	if err != nil {
		return 0, 0, err
	}
	outB, err := fixedpoint.MulDiv(reserveB, shares, totalShares)
	if err != nil {
		return 0, 0, err
	}
	if outA == 0 && outB == 0 {
		return 0, 0, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "burn of %d shares releases nothing", shares)
	}
	return outA, outB, nil
}

// K returns reserveA*reserveB.
func K(reserveA, reserveB uint64) *uint256.Int {
	return fixedpoint.Product(reserveA, reserveB)
}

// CheckK fails unless the product after an operation is at least the product before it.
func CheckK(beforeA, beforeB, afterA, afterB uint64) error {
	before := K(beforeA, beforeB)
	after := K(afterA, afterB)
	if after.Lt(before) {
		return ammerr.Wrapf(ammerr.ErrInvariantViolation, "k decreased from %s to %s", before.Dec(), after.Dec())
	}
	return nil
}
