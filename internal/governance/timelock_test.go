package governance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ammcore/internal/ammerr"
	"ammcore/internal/auth"
	"ammcore/internal/fees"
	"ammcore/internal/risk"
)

type recordingTarget struct {
	pools  map[string]bool
	fees   map[string]fees.Schedule
	params map[string]risk.Params
	paused map[string]bool
	fail   error
}

func newRecordingTarget(pools ...string) *recordingTarget {
	rt := &recordingTarget{
		pools:  make(map[string]bool),
		fees:   make(map[string]fees.Schedule),
		params: make(map[string]risk.Params),
		paused: make(map[string]bool),
	}
	for _, p := range pools {
		rt.pools[p] = true
	}
	return rt
}

func (r *recordingTarget) HasPool(poolID string) bool { return r.pools[poolID] }

func (r *recordingTarget) ApplyFeeChange(poolID string, s fees.Schedule) error {
	if r.fail != nil {
		return r.fail
	}
	r.fees[poolID] = s
	return nil
}

func (r *recordingTarget) ApplyParameterChange(poolID string, p risk.Params) error {
	if r.fail != nil {
		return r.fail
	}
	r.params[poolID] = p
	return nil
}

func (r *recordingTarget) ApplyPause(poolID string, paused bool) error {
	if r.fail != nil {
		return r.fail
	}
	r.paused[poolID] = paused
	return nil
}

const created = uint64(1_700_000_000_000)

func newTestTimelock(t *testing.T) (*Timelock, auth.Capability, *recordingTarget) {
	t.Helper()
	admin := auth.NewCapability()
	target := newRecordingTarget("usdc-usdt")
	return NewTimelock(admin, target, zaptest.NewLogger(t)), admin, target
}

func TestExecuteTimingWindow(t *testing.T) {
	cases := []struct {
		name    string
		at      uint64
		wantErr error
	}{
		{name: "one ms early", at: created + Delay - 1, wantErr: ammerr.ErrProposalNotReady},
		{name: "exactly at delay", at: created + Delay},
		{name: "one ms after delay", at: created + Delay + 1},
		{name: "last valid ms", at: created + Delay + ExpiryWindow},
		{name: "one ms after expiry", at: created + Delay + ExpiryWindow + 1, wantErr: ammerr.ErrProposalExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tl, admin, target := newTestTimelock(t)
			p, err := tl.ProposeFeeChange(admin, "usdc-usdt", fees.Schedule{FeeBps: 5}, created)
			require.NoError(t, err)
			require.Equal(t, created+Delay, p.ExecutableAt)
			require.Equal(t, created+Delay+ExpiryWindow, p.ExpiresAt)

			got, err := tl.Execute(admin, p.ID, tc.at)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				_, applied := target.fees["usdc-usdt"]
				require.False(t, applied)
				return
			}
			require.NoError(t, err)
			require.True(t, got.Executed)
			require.Equal(t, uint64(5), target.fees["usdc-usdt"].FeeBps)
		})
	}
}

func TestExecuteTwice(t *testing.T) {
	tl, admin, _ := newTestTimelock(t)
	p, err := tl.ProposePause(admin, "usdc-usdt", true, created)
	require.NoError(t, err)

	_, err = tl.Execute(admin, p.ID, created+Delay+1)
	require.NoError(t, err)
	_, err = tl.Execute(admin, p.ID, created+Delay+2)
	require.ErrorIs(t, err, ammerr.ErrProposalAlreadyExecuted)
}

func TestCancel(t *testing.T) {
	tl, admin, target := newTestTimelock(t)
	p, err := tl.ProposeParameterChange(admin, "usdc-usdt", risk.DefaultParams(), created)
	require.NoError(t, err)

	cancelled, err := tl.Cancel(admin, p.ID, created+1)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status(created+Delay))

	_, err = tl.Execute(admin, p.ID, created+Delay+1)
	require.ErrorIs(t, err, ammerr.ErrProposalAlreadyExecuted)
	_, err = tl.Cancel(admin, p.ID, created+2)
	require.ErrorIs(t, err, ammerr.ErrProposalAlreadyExecuted)
	require.Empty(t, target.params)
}

func TestCancelAfterExpiry(t *testing.T) {
	tl, admin, _ := newTestTimelock(t)
	p, err := tl.ProposePause(admin, "usdc-usdt", true, created)
	require.NoError(t, err)

	_, err = tl.Cancel(admin, p.ID, p.ExpiresAt+1)
	require.ErrorIs(t, err, ammerr.ErrProposalExpired)
}

func TestProposeValidatesPayload(t *testing.T) {
	tl, admin, _ := newTestTimelock(t)

	_, err := tl.ProposeFeeChange(admin, "usdc-usdt", fees.Schedule{FeeBps: fees.MaxFeeBps + 1}, created)
	require.ErrorIs(t, err, ammerr.ErrTooHighFee)

	_, err = tl.ProposeFeeChange(admin, "usdc-usdt", fees.Schedule{FeeBps: 30, ProtocolFeeBps: 8_000, CreatorFeeBps: 3_000}, created)
	require.ErrorIs(t, err, ammerr.ErrInvalidFee)

	_, err = tl.ProposeParameterChange(admin, "usdc-usdt", risk.Params{MaxPriceImpactBps: 20_000}, created)
	require.ErrorIs(t, err, ammerr.ErrInvalidParameter)

	_, err = tl.Propose(admin, "usdc-usdt", KindPause, Payload{}, created)
	require.ErrorIs(t, err, ammerr.ErrInvalidParameter)

	_, err = tl.ProposePause(admin, "eth-btc", true, created)
	require.ErrorIs(t, err, ammerr.ErrPoolNotFound)

	require.Empty(t, tl.Proposals())
}

func TestRequiresAdminCapability(t *testing.T) {
	tl, admin, _ := newTestTimelock(t)
	intruder := auth.NewCapability()

	_, err := tl.ProposePause(intruder, "usdc-usdt", true, created)
	require.ErrorIs(t, err, ammerr.ErrUnauthorized)

	p, err := tl.ProposePause(admin, "usdc-usdt", true, created)
	require.NoError(t, err)

	_, err = tl.Execute(intruder, p.ID, created+Delay)
	require.ErrorIs(t, err, ammerr.ErrUnauthorized)
	_, err = tl.Cancel(intruder, p.ID, created)
	require.ErrorIs(t, err, ammerr.ErrUnauthorized)
}

func TestFailedApplyLeavesProposalPending(t *testing.T) {
	tl, admin, target := newTestTimelock(t)
	p, err := tl.ProposePause(admin, "usdc-usdt", true, created)
	require.NoError(t, err)

	target.fail = ammerr.ErrPoolNotFound
	_, err = tl.Execute(admin, p.ID, created+Delay)
	require.True(t, errors.Is(err, ammerr.ErrPoolNotFound))

	got, ok := tl.Get(p.ID)
	require.True(t, ok)
	require.False(t, got.Executed)
	require.Equal(t, StatusReady, got.Status(created+Delay))

	target.fail = nil
	_, err = tl.Execute(admin, p.ID, created+Delay)
	require.NoError(t, err)
	require.True(t, target.paused["usdc-usdt"])
}

func TestUnknownProposal(t *testing.T) {
	tl, admin, _ := newTestTimelock(t)
	_, err := tl.Execute(admin, 42, created)
	require.ErrorIs(t, err, ammerr.ErrProposalNotFound)
}

func TestProposalStatus(t *testing.T) {
	p := Proposal{CreatedAt: created, ExecutableAt: created + Delay, ExpiresAt: created + Delay + ExpiryWindow}
	require.Equal(t, StatusPending, p.Status(created))
	require.Equal(t, StatusReady, p.Status(created+Delay))
	require.Equal(t, StatusExpired, p.Status(p.ExpiresAt+1))
}
