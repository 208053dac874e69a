package pool

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ammcore/internal/ammerr"
	"ammcore/internal/auth"
	"ammcore/internal/fees"
	"ammcore/internal/stableswap"
)

func stableConfig(id string, amp uint64) Config {
	return Config{ID: id, Kind: KindStable, AssetA: "USDC", AssetB: "USDT", Fees: fees.Schedule{FeeBps: 4}, Amp: amp}
}

func TestStablePoolSwapNearPeg(t *testing.T) {
	m, _ := newTestManager(t)
	p, id := newFundedPool(t, m, stableConfig("usdc-usdt", 100), 1_000_000, 1_000_000)

	pos, err := p.Position(id)
	require.NoError(t, err)
	require.Equal(t, uint64(2_000_000-1_000), pos.Shares)

	res, err := p.SwapAToB(swapReq(10_000))
	require.NoError(t, err)
	// The amplified curve pays close to one for one.
	require.Greater(t, res.AmountOut, uint64(9_900))
	require.LessOrEqual(t, res.AmountOut, res.AmountInAfterFee)
	require.Less(t, res.PriceImpactBps, uint64(50))

	st := p.Snapshot().State
	d, err := stableswap.ComputeD(st.ReserveA, st.ReserveB, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, d.Uint64(), uint64(2_000_000))
}

func TestStablePoolLiquidity(t *testing.T) {
	m, _ := newTestManager(t)
	p, id := newFundedPool(t, m, stableConfig("usdc-usdt", 100), 1_000_000, 1_000_000)

	res, err := p.AddLiquidity(AddLiquidityRequest{Owner: bob, AmountA: 500_000, AmountB: 500_000, Deadline: t0, Now: t0})
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), res.Shares)
	require.Zero(t, res.RefundA)

	out, err := p.RemoveLiquidity(RemoveLiquidityRequest{Owner: bob, PositionID: res.PositionID, Shares: 1_000_000, Deadline: t0, Now: t0})
	require.NoError(t, err)
	require.Equal(t, uint64(500_000), out.AmountA)
	require.Equal(t, uint64(500_000), out.AmountB)

	_, err = p.Position(id)
	require.NoError(t, err)
	require.NoError(t, p.Snapshot().Verify())
}

func TestStableRampRequiresAdmin(t *testing.T) {
	m, admin := newTestManager(t)
	p, _ := newFundedPool(t, m, stableConfig("usdc-usdt", 100), 1_000_000, 1_000_000)

	end := t0 + stableswap.MinRampDuration + 1
	require.ErrorIs(t, p.StartRamp(auth.NewCapability(), 200, end, t0), ammerr.ErrUnauthorized)
	require.ErrorIs(t, p.StartRamp(admin, 200, t0+stableswap.MinRampDuration-1, t0), ammerr.ErrInvalidAmp)
	require.ErrorIs(t, p.StartRamp(admin, 1_001, end, t0), ammerr.ErrInvalidAmp)
	require.NoError(t, p.StartRamp(admin, 200, end, t0))

	mid := p.Amp(t0 + (end-t0)/2)
	require.Greater(t, mid, uint64(100))
	require.Less(t, mid, uint64(200))

	require.NoError(t, p.StopRamp(admin, t0+(end-t0)/2))
	require.Equal(t, mid, p.Amp(end+1))
}

func TestRampOnConstantProductPool(t *testing.T) {
	m, admin := newTestManager(t)
	p, _ := newFundedPool(t, m, cpConfig("usdc-weth", 30), 1_000_000, 1_000_000)

	err := p.StartRamp(admin, 200, t0+stableswap.MinRampDuration, t0)
	require.ErrorIs(t, err, ammerr.ErrInvalidParameter)
	require.Zero(t, p.Amp(t0))
}

func TestStableSpotPriceBalanced(t *testing.T) {
	m, _ := newTestManager(t)
	p, _ := newFundedPool(t, m, stableConfig("usdc-usdt", 100), 1_000_000, 1_000_000)

	price, err := p.SpotPrice(t0)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(1)), "price %s", price)
}
