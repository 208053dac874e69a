package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"pgregory.net/rapid"

	"ammcore/internal/auth"
	"ammcore/internal/cpmm"
	"ammcore/internal/fees"
	"ammcore/internal/fixedpoint"
	"ammcore/internal/stableswap"
)

var owners = []common.Address{alice, bob, common.HexToAddress("0x000000000000000000000000000000000000ca75")}

// TestOperationSequences drives random operation sequences and checks the
// pool invariants after each one. Rejected operations must leave the pool
// untouched.
func TestOperationSequences(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]Kind{KindConstantProduct, KindStable}).Draw(t, "kind")
		m := NewManager(auth.NewCapability(), nil)
		p, _, err := m.CreatePool(Config{
			ID:   "prop",
			Kind: kind,
			Fees: fees.Schedule{
				FeeBps:         rapid.Uint64Range(0, fees.MaxFeeBps).Draw(t, "fee"),
				ProtocolFeeBps: rapid.Uint64Range(0, 5_000).Draw(t, "protocol"),
				CreatorFeeBps:  rapid.Uint64Range(0, 5_000).Draw(t, "creator"),
			},
			Amp: rapid.Uint64Range(stableswap.MinAmp, stableswap.MaxAmp).Draw(t, "amp"),
		})
		if err != nil {
			t.Fatalf("create pool: %v", err)
		}

		seed := rapid.Uint64Range(10_000, 1<<40).Draw(t, "seedA")
		if _, err := p.AddLiquidity(AddLiquidityRequest{
			Owner:    alice,
			AmountA:  seed,
			AmountB:  rapid.Uint64Range(seed/2, seed*2).Draw(t, "seedB"),
			Deadline: t0,
			Now:      t0,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			before := p.Snapshot()
			var opErr error
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				dir := rapid.SampledFrom([]Direction{AToB, BToA}).Draw(t, "dir")
				rin, _ := before.State.reserves(dir)
				_, opErr = p.Swap(dir, swapReq(rapid.Uint64Range(1, rin/5+1).Draw(t, "amountIn")))
				if opErr == nil && kind == KindConstantProduct {
					after := p.Snapshot().State
					if cpmm.K(after.ReserveA, after.ReserveB).Lt(cpmm.K(before.State.ReserveA, before.State.ReserveB)) {
						t.Fatalf("k decreased")
					}
				}
			case 1:
				amountA := rapid.Uint64Range(1, 1<<36).Draw(t, "addA")
				amountB, qerr := fixedpoint.Quote(amountA, before.State.ReserveA, before.State.ReserveB)
				if qerr != nil || amountB == 0 {
					continue
				}
				_, opErr = p.AddLiquidity(AddLiquidityRequest{
					Owner:    rapid.SampledFrom(owners).Draw(t, "owner"),
					AmountA:  amountA,
					AmountB:  amountB + rapid.Uint64Range(0, amountB/100).Draw(t, "extraB"),
					Deadline: t0,
					Now:      t0,
				})
			case 2:
				if len(before.Positions) == 0 {
					continue
				}
				pos := rapid.SampledFrom(before.Positions).Draw(t, "position")
				_, opErr = p.RemoveLiquidity(RemoveLiquidityRequest{
					Owner:      pos.Owner,
					PositionID: pos.ID,
					Shares:     rapid.Uint64Range(1, pos.Shares).Draw(t, "shares"),
					Deadline:   t0,
					Now:        t0,
				})
			case 3:
				if len(before.Positions) == 0 {
					continue
				}
				pos := rapid.SampledFrom(before.Positions).Draw(t, "position")
				_, opErr = p.WithdrawFees(pos.Owner, pos.ID, t0, t0)
			}

			after := p.Snapshot()
			if opErr != nil {
				if !snapshotsEqual(before, after) {
					t.Fatalf("rejected operation changed the pool: %v", opErr)
				}
				continue
			}
			if err := after.Verify(); err != nil {
				t.Fatalf("share conservation: %v", err)
			}
			checkFeesCovered(t, p, after)
		}
	})
}

// checkFeesCovered asserts the LP fee balances cover every pending claim.
func checkFeesCovered(t *rapid.T, p *Pool, snap Snapshot) {
	var owedA, owedB uint64
	for _, pos := range snap.Positions {
		a, b, err := p.PendingFees(pos.ID)
		if err != nil {
			t.Fatalf("pending fees: %v", err)
		}
		owedA += a
		owedB += b
	}
	if owedA > snap.State.LPFeeA || owedB > snap.State.LPFeeB {
		t.Fatalf("claims %d/%d exceed lp fee balance %d/%d", owedA, owedB, snap.State.LPFeeA, snap.State.LPFeeB)
	}
}

func snapshotsEqual(a, b Snapshot) bool {
	if a.State != b.State || len(a.Positions) != len(b.Positions) {
		return false
	}
	for i := range a.Positions {
		if a.Positions[i] != b.Positions[i] {
			return false
		}
	}
	return true
}

func TestEqualLPsClaimEqually(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := NewManager(auth.NewCapability(), nil)
		p, _, err := m.CreatePool(Config{ID: "eq", Kind: KindConstantProduct, Fees: fees.Schedule{FeeBps: 30}})
		if err != nil {
			t.Fatalf("create pool: %v", err)
		}
		if _, err := p.AddLiquidity(AddLiquidityRequest{Owner: alice, AmountA: 1_000_000, AmountB: 1_000_000, Deadline: t0, Now: t0}); err != nil {
			t.Fatalf("seed: %v", err)
		}

		lps := rapid.IntRange(2, 6).Draw(t, "lps")
		deposit := rapid.Uint64Range(10_000, 1_000_000).Draw(t, "deposit")
		ids := make([]uuid.UUID, lps)
		owner := make([]common.Address, lps)
		for i := range ids {
			owner[i] = common.BigToAddress(big.NewInt(int64(100 + i)))
			res, err := p.AddLiquidity(AddLiquidityRequest{Owner: owner[i], AmountA: deposit, AmountB: deposit, Deadline: t0, Now: t0})
			if err != nil {
				t.Fatalf("deposit %d: %v", i, err)
			}
			ids[i] = res.PositionID
		}

		swaps := rapid.IntRange(1, 20).Draw(t, "swaps")
		for i := 0; i < swaps; i++ {
			dir := rapid.SampledFrom([]Direction{AToB, BToA}).Draw(t, "dir")
			if _, err := p.Swap(dir, swapReq(rapid.Uint64Range(100, 20_000).Draw(t, "amountIn"))); err != nil {
				t.Fatalf("swap: %v", err)
			}
		}

		order := rapid.Permutation(ids).Draw(t, "order")
		claims := make(map[uuid.UUID]WithdrawFeesResult, lps)
		for _, id := range order {
			pos, err := p.Position(id)
			if err != nil {
				t.Fatalf("position: %v", err)
			}
			res, err := p.WithdrawFees(pos.Owner, id, t0, t0)
			if err != nil {
				t.Fatalf("withdraw: %v", err)
			}
			claims[id] = res
		}
		first := claims[ids[0]]
		for _, id := range ids[1:] {
			if claims[id] != first {
				t.Fatalf("claims differ: %+v vs %+v", claims[id], first)
			}
		}
	})
}

// TestStableRemovalScalesD checks that burning r of T shares leaves
// D' within rounding of D*(T-r)/T on imbalanced reserves.
func TestStableRemovalScalesD(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amp := rapid.Uint64Range(stableswap.MinAmp, stableswap.MaxAmp).Draw(t, "amp")
		m := NewManager(auth.NewCapability(), nil)
		p, _, err := m.CreatePool(Config{ID: "stable", Kind: KindStable, Fees: fees.Schedule{FeeBps: 4}, Amp: amp})
		if err != nil {
			t.Fatalf("create pool: %v", err)
		}
		seedA := rapid.Uint64Range(100_000, 1<<40).Draw(t, "seedA")
		seedB := rapid.Uint64Range(seedA/4, seedA*4).Draw(t, "seedB")
		added, err := p.AddLiquidity(AddLiquidityRequest{Owner: alice, AmountA: seedA, AmountB: seedB, Deadline: t0, Now: t0})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}

		before := p.Snapshot().State
		d0, err := stableswap.ComputeD(before.ReserveA, before.ReserveB, amp)
		if err != nil {
			t.Fatalf("compute d: %v", err)
		}

		removed := rapid.Uint64Range(1, added.Shares).Draw(t, "removed")
		if _, err := p.RemoveLiquidity(RemoveLiquidityRequest{
			Owner:      alice,
			PositionID: added.PositionID,
			Shares:     removed,
			Deadline:   t0,
			Now:        t0,
		}); err != nil {
			// Dust removals that release nothing are rejected.
			return
		}

		after := p.Snapshot().State
		d1, err := stableswap.ComputeD(after.ReserveA, after.ReserveB, amp)
		if err != nil {
			t.Fatalf("compute d after: %v", err)
		}
		if d1.Gt(d0) {
			t.Fatalf("d increased on removal: %s -> %s", d0, d1)
		}

		total := new(big.Int).SetUint64(before.TotalShares)
		lhs := new(big.Int).Mul(d1.ToBig(), total)
		rhs := new(big.Int).Mul(d0.ToBig(), new(big.Int).SetUint64(before.TotalShares-removed))
		diff := new(big.Int).Sub(lhs, rhs)

		// Floored payouts keep D' at or above the proportional value; each
		// side rounds by at most one unit and each solve by one.
		lower := new(big.Int).Mul(big.NewInt(-2), total)
		upper := new(big.Int).Mul(big.NewInt(8), total)
		if diff.Cmp(lower) < 0 || diff.Cmp(upper) > 0 {
			t.Fatalf("d not proportional: D=%s D'=%s T=%d r=%d", d0, d1, before.TotalShares, removed)
		}
	})
}
