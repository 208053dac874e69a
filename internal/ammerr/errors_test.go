package ammerr

import (
	"errors"
	"testing"
)

func TestWrapfKeepsSentinel(t *testing.T) {
	err := Wrapf(ErrDeadlinePassed, "deadline %d before now %d", 10, 11)
	if !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("wrapped error should match sentinel: %v", err)
	}
	if errors.Is(err, ErrPaused) {
		t.Fatalf("wrapped error should not match unrelated sentinel")
	}
}

func TestSentinelCodesDistinct(t *testing.T) {
	all := []error{
		ErrZeroAmount, ErrInsufficientLiquidity, ErrInvalidAmp, ErrExcessivePriceImpact,
		ErrExcessiveSlippage, ErrDeadlinePassed, ErrTooHighFee, ErrInvalidFee, ErrPaused,
		ErrProposalNotReady, ErrProposalExpired, ErrProposalAlreadyExecuted, ErrUnauthorized,
		ErrOverflow, ErrRatioOutOfTolerance, ErrInsufficientFeesToCompound, ErrPositionNotFound,
		ErrPoolNotFound, ErrPoolAlreadyExists, ErrInvalidParameter, ErrProposalNotFound,
		ErrInvariantViolation,
	}
	for i := range all {
		for j := range all {
			if i != j && errors.Is(all[i], all[j]) {
				t.Fatalf("sentinels %d and %d collide", i, j)
			}
		}
	}
}
