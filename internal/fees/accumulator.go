package fees

import (
	"github.com/holiman/uint256"

	"ammcore/internal/ammerr"
	"ammcore/internal/fixedpoint"
)

// Accumulator tracks fees earned per liquidity share for both pool assets,
// scaled by fixedpoint.Precision. Values only ever grow.
type Accumulator struct {
	PerShareA uint256.Int
	PerShareB uint256.Int
}

// Debt is a position's snapshot of the accumulator at its last settlement.
type Debt struct {
	A uint256.Int
	B uint256.Int
}

// Accrue distributes LP fees across totalShares. Rounding dust stays in the
// pool's LP fee balance and is never claimable.
func (a *Accumulator) Accrue(feeA, feeB, totalShares uint64) error {
	if totalShares == 0 {
		if feeA == 0 && feeB == 0 {
			return nil
		}
		return ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "accrue fees with zero shares")
	}
	shares := uint256.NewInt(totalShares)
	precision := uint256.NewInt(fixedpoint.Precision)
	if feeA > 0 {
		delta := fixedpoint.MulDivWide(uint256.NewInt(feeA), precision, shares)
		a.PerShareA.Add(&a.PerShareA, delta)
	}
	if feeB > 0 {
		delta := fixedpoint.MulDivWide(uint256.NewInt(feeB), precision, shares)
		a.PerShareB.Add(&a.PerShareB, delta)
	}
	return nil
}

// Snapshot returns the debt a position settled now would record.
func (a *Accumulator) Snapshot() Debt {
	var d Debt
	d.A.Set(&a.PerShareA)
	d.B.Set(&a.PerShareB)
	return d
}

// Pending returns the fees owed to shares whose last settlement recorded debt.
func (a *Accumulator) Pending(debt Debt, shares uint64) (uint64, uint64, error) {
	feeA, err := pendingOf(&a.PerShareA, &debt.A, shares)
	if err != nil {
		return 0, 0, err
	}
	feeB, err := pendingOf(&a.PerShareB, &debt.B, shares)
	if err != nil {
		return 0, 0, err
	}
	return feeA, feeB, nil
}

// Settle returns the pending fees and the re-baselined debt. A second Settle
// with no accrual in between returns zero.
func (a *Accumulator) Settle(debt Debt, shares uint64) (uint64, uint64, Debt, error) {
	feeA, feeB, err := a.Pending(debt, shares)
	if err != nil {
		return 0, 0, Debt{}, err
	}
	return feeA, feeB, a.Snapshot(), nil
}

func pendingOf(acc, debt *uint256.Int, shares uint64) (uint64, error) {
	if acc.Lt(debt) {
		return 0, ammerr.Wrapf(ammerr.ErrInvariantViolation, "fee debt %s ahead of accumulator %s", debt.Dec(), acc.Dec())
	}
	if shares == 0 {
		return 0, nil
	}
	delta := new(uint256.Int).Sub(acc, debt)
	owed := fixedpoint.MulDivWide(delta, uint256.NewInt(shares), uint256.NewInt(fixedpoint.Precision))
	if !owed.IsUint64() {
		return 0, ammerr.Wrapf(ammerr.ErrOverflow, "pending fee %s", owed.Dec())
	}
	return owed.Uint64(), nil
}
