package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ammcore/internal/ammerr"
	"ammcore/internal/auth"
	"ammcore/internal/cpmm"
	"ammcore/internal/fees"
	"ammcore/internal/risk"
)

// TransferPosition hands a position to a new owner. Its fee debt moves with it.
func (p *Pool) TransferPosition(from common.Address, id uuid.UUID, to common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, err := p.ownedPosition(id, from)
	if err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "transfer to zero address")
	}
	pos.Owner = to
	p.commitPosition(pos)

	p.logger.Debug("transfer position",
		zap.String("op", "transfer_position"),
		zap.Stringer("position", id),
		zap.String("to", to.Hex()),
	)
	return nil
}

// RefreshPositionValue recomputes what the position's shares are worth in
// reserves and caches it on the position.
func (p *Pool) RefreshPositionValue(id uuid.UUID) (Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored, ok := p.positions[id]
	if !ok {
		return Position{}, ammerr.Wrapf(ammerr.ErrPositionNotFound, "position %s in pool %s", id, p.id)
	}
	pos := *stored
	valueA, valueB, err := cpmm.BurnShares(pos.Shares, p.state.ReserveA, p.state.ReserveB, p.state.TotalShares)
	if err != nil {
		return Position{}, err
	}
	pos.ValueA, pos.ValueB = valueA, valueB
	p.commitPosition(pos)
	return pos, nil
}

type FeeWithdrawal struct {
	AmountA uint64 `json:"amount_a"`
	AmountB uint64 `json:"amount_b"`
}

// WithdrawProtocolFees drains the protocol fee balance to the admin.
func (p *Pool) WithdrawProtocolFees(c auth.Capability) (FeeWithdrawal, error) {
	if err := p.checkAdmin(c); err != nil {
		return FeeWithdrawal{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := FeeWithdrawal{AmountA: p.state.ProtocolFeeA, AmountB: p.state.ProtocolFeeB}
	p.state.ProtocolFeeA, p.state.ProtocolFeeB = 0, 0
	p.logger.Info("protocol fees withdrawn", zap.Uint64("amount_a", out.AmountA), zap.Uint64("amount_b", out.AmountB))
	return out, nil
}

// WithdrawCreatorFees drains the creator fee balance to the pool creator.
func (p *Pool) WithdrawCreatorFees(c auth.Capability) (FeeWithdrawal, error) {
	if err := p.checkCreator(c); err != nil {
		return FeeWithdrawal{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := FeeWithdrawal{AmountA: p.state.CreatorFeeA, AmountB: p.state.CreatorFeeB}
	p.state.CreatorFeeA, p.state.CreatorFeeB = 0, 0
	p.logger.Info("creator fees withdrawn", zap.Uint64("amount_a", out.AmountA), zap.Uint64("amount_b", out.AmountB))
	return out, nil
}

// StartRamp moves a stable pool's amplification linearly to target, reached
// at endTime.
func (p *Pool) StartRamp(c auth.Capability, target, endTime, now uint64) error {
	if err := p.checkAdmin(c); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Kind != KindStable {
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "pool %s is not a stable pool", p.id)
	}
	ramp, err := p.state.Ramp.Start(target, now, endTime)
	if err != nil {
		return err
	}
	p.state.Ramp = ramp
	p.logger.Info("amp ramp started",
		zap.Uint64("from", ramp.Initial),
		zap.Uint64("to", ramp.Target),
		zap.Uint64("end", ramp.EndTime),
	)
	return nil
}

// StopRamp freezes the amplification at its current value.
func (p *Pool) StopRamp(c auth.Capability, now uint64) error {
	if err := p.checkAdmin(c); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Kind != KindStable {
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "pool %s is not a stable pool", p.id)
	}
	p.state.Ramp = p.state.Ramp.Stop(now)
	p.logger.Info("amp ramp stopped", zap.Uint64("amp", p.state.Ramp.Target))
	return nil
}

func (p *Pool) setFees(s fees.Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Fees = s
	p.logger.Info("fees changed", zap.Uint64("fee_bps", s.FeeBps), zap.Uint64("protocol_bps", s.ProtocolFeeBps), zap.Uint64("creator_bps", s.CreatorFeeBps))
	return nil
}

func (p *Pool) setParams(params risk.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Risk = params
	p.logger.Info("risk parameters changed",
		zap.Uint64("max_price_impact_bps", params.MaxPriceImpactBps),
		zap.Uint64("ratio_tolerance_bps", params.RatioToleranceBps),
		zap.Uint64("min_compound_fees", params.MinCompoundFees),
	)
	return nil
}

func (p *Pool) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Paused = paused
	p.logger.Info("pause changed", zap.Bool("paused", paused))
}
