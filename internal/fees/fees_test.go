package fees

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ammcore/internal/ammerr"
)

func TestAccrueAndSettle(t *testing.T) {
	var acc Accumulator
	debt := acc.Snapshot()

	require.NoError(t, acc.Accrue(30, 0, 1_000_000))

	feeA, feeB, next, err := acc.Settle(debt, 999_000)
	require.NoError(t, err)
	require.Equal(t, uint64(29), feeA)
	require.Equal(t, uint64(0), feeB)

	feeA, feeB, _, err = acc.Settle(next, 999_000)
	require.NoError(t, err)
	require.Zero(t, feeA, "second settle must return nothing")
	require.Zero(t, feeB)
}

func TestLateJoinerDoesNotEarnPastFees(t *testing.T) {
	var acc Accumulator
	early := acc.Snapshot()
	require.NoError(t, acc.Accrue(1_000, 1_000, 10_000))

	late := acc.Snapshot()
	require.NoError(t, acc.Accrue(1_000, 0, 20_000))

	earlyA, earlyB, err := acc.Pending(early, 10_000)
	require.NoError(t, err)
	lateA, lateB, err := acc.Pending(late, 10_000)
	require.NoError(t, err)

	require.Equal(t, uint64(1_500), earlyA)
	require.Equal(t, uint64(1_000), earlyB)
	require.Equal(t, uint64(500), lateA)
	require.Zero(t, lateB)
}

func TestAccrueWithoutShares(t *testing.T) {
	var acc Accumulator
	require.NoError(t, acc.Accrue(0, 0, 0))
	err := acc.Accrue(1, 0, 0)
	require.True(t, errors.Is(err, ammerr.ErrInsufficientLiquidity), "got %v", err)
}

func TestDebtAheadOfAccumulator(t *testing.T) {
	var acc Accumulator
	var other Accumulator
	require.NoError(t, other.Accrue(10, 10, 1))
	_, _, err := acc.Pending(other.Snapshot(), 1)
	require.ErrorIs(t, err, ammerr.ErrInvariantViolation)
}

func TestScheduleValidate(t *testing.T) {
	require.NoError(t, Schedule{FeeBps: 30, ProtocolFeeBps: 1_000, CreatorFeeBps: 500}.Validate())
	require.ErrorIs(t, Schedule{FeeBps: MaxFeeBps + 1}.Validate(), ammerr.ErrTooHighFee)
	require.ErrorIs(t, Schedule{FeeBps: 30, ProtocolFeeBps: 6_000, CreatorFeeBps: 5_000}.Validate(), ammerr.ErrInvalidFee)
}

func TestSplitFee(t *testing.T) {
	s := Schedule{FeeBps: 30, ProtocolFeeBps: 2_000, CreatorFeeBps: 1_000}
	split, err := s.SplitFee(1_000)
	require.NoError(t, err)
	require.Equal(t, Split{Total: 1_000, LP: 700, Protocol: 200, Creator: 100}, split)
}

func TestSplitConservesFee(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		protocol := rapid.Uint64Range(0, 10_000).Draw(t, "protocol")
		creator := rapid.Uint64Range(0, 10_000-protocol).Draw(t, "creator")
		fee := rapid.Uint64Range(0, 1<<62).Draw(t, "fee")

		split, err := Schedule{ProtocolFeeBps: protocol, CreatorFeeBps: creator}.SplitFee(fee)
		if err != nil {
			t.Fatalf("split: %v", err)
		}
		if split.LP+split.Protocol+split.Creator != fee {
			t.Fatalf("split %+v does not sum to %d", split, fee)
		}
	})
}

func TestClaimOrderIndependence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lps := rapid.IntRange(2, 8).Draw(t, "lps")
		shares := rapid.Uint64Range(1_000, 1<<30).Draw(t, "shares")
		total := shares*uint64(lps) + 1_000

		var acc Accumulator
		debts := make([]Debt, lps)
		for i := range debts {
			debts[i] = acc.Snapshot()
		}
		rounds := rapid.IntRange(1, 20).Draw(t, "rounds")
		for r := 0; r < rounds; r++ {
			feeA := rapid.Uint64Range(0, 1<<30).Draw(t, "feeA")
			feeB := rapid.Uint64Range(0, 1<<30).Draw(t, "feeB")
			if err := acc.Accrue(feeA, feeB, total); err != nil {
				t.Fatalf("accrue: %v", err)
			}
		}

		order := rapid.Permutation(indices(lps)).Draw(t, "order")
		claimed := make([][2]uint64, lps)
		for _, i := range order {
			a, b, next, err := acc.Settle(debts[i], shares)
			if err != nil {
				t.Fatalf("settle: %v", err)
			}
			claimed[i] = [2]uint64{a, b}
			debts[i] = next
		}
		for i := 1; i < lps; i++ {
			if claimed[i] != claimed[0] {
				t.Fatalf("lp %d claimed %v, lp 0 claimed %v", i, claimed[i], claimed[0])
			}
		}
	})
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
