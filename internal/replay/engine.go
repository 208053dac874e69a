package replay

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ammcore/internal/ammerr"
	"ammcore/internal/auth"
	"ammcore/internal/fees"
	"ammcore/internal/fixedpoint"
	"ammcore/internal/governance"
	"ammcore/internal/model"
	"ammcore/internal/pool"
)

// Engine applies journal operations to an in-memory pool manager and
// timelock. It holds the admin capability and every pool's creator
// capability so that privileged journal entries can be replayed.
type Engine struct {
	admin    auth.Capability
	manager  *pool.Manager
	timelock *governance.Timelock
	creators map[string]auth.Capability
	logger   *zap.Logger
}

func NewEngine(logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	admin := auth.NewCapability()
	manager := pool.NewManager(admin, logger)
	target, err := manager.GovernanceTarget(admin)
	if err != nil {
		return nil, err
	}
	return &Engine{
		admin:    admin,
		manager:  manager,
		timelock: governance.NewTimelock(admin, target, logger),
		creators: make(map[string]auth.Capability),
		logger:   logger,
	}, nil
}

func (e *Engine) Manager() *pool.Manager {
	return e.manager
}

func (e *Engine) Timelock() *governance.Timelock {
	return e.timelock
}

// Apply runs one operation. The returned value is JSON-encodable and
// describes what the operation produced.
func (e *Engine) Apply(op model.Operation) (interface{}, error) {
	switch op.Op {
	case model.OpCreatePool:
		return e.createPool(op)
	case model.OpPropose:
		return e.propose(op)
	case model.OpExecuteProposal, model.OpCancelProposal:
		var args model.ProposalArgs
		if err := decodeArgs(op, &args); err != nil {
			return nil, err
		}
		if op.Op == model.OpExecuteProposal {
			return e.timelock.Execute(e.admin, args.Proposal, op.Now)
		}
		return e.timelock.Cancel(e.admin, args.Proposal, op.Now)
	}

	p, err := e.manager.Pool(op.Pool)
	if err != nil {
		return nil, err
	}

	switch op.Op {
	case model.OpAddLiquidity:
		return e.addLiquidity(p, op)
	case model.OpRemoveLiquidity:
		var args model.RemoveLiquidityArgs
		if err := decodeArgs(op, &args); err != nil {
			return nil, err
		}
		owner, id, err := ownerAndPosition(args.Owner, args.Position)
		if err != nil {
			return nil, err
		}
		return p.RemoveLiquidity(pool.RemoveLiquidityRequest{
			Owner:      owner,
			PositionID: id,
			Shares:     args.Shares,
			MinA:       args.MinA,
			MinB:       args.MinB,
			Deadline:   args.Deadline,
			Now:        op.Now,
		})
	case model.OpSwap:
		return e.swap(p, op)
	case model.OpWithdrawFees:
		var args model.PositionArgs
		if err := decodeArgs(op, &args); err != nil {
			return nil, err
		}
		owner, id, err := ownerAndPosition(args.Owner, args.Position)
		if err != nil {
			return nil, err
		}
		return p.WithdrawFees(owner, id, args.Deadline, op.Now)
	case model.OpAutoCompound:
		var args model.PositionArgs
		if err := decodeArgs(op, &args); err != nil {
			return nil, err
		}
		owner, id, err := ownerAndPosition(args.Owner, args.Position)
		if err != nil {
			return nil, err
		}
		return p.AutoCompound(pool.CompoundRequest{
			Owner:                owner,
			PositionID:           id,
			MinLiquidityIncrease: args.MinLiquidityIncrease,
			Deadline:             args.Deadline,
			Now:                  op.Now,
		})
	case model.OpTransferPosition:
		var args model.TransferArgs
		if err := decodeArgs(op, &args); err != nil {
			return nil, err
		}
		from, id, err := ownerAndPosition(args.From, args.Position)
		if err != nil {
			return nil, err
		}
		to, err := parseAddress(args.To)
		if err != nil {
			return nil, err
		}
		if err := p.TransferPosition(from, id, to); err != nil {
			return nil, err
		}
		pos, err := p.Position(id)
		if err != nil {
			return nil, err
		}
		return PositionRecordFrom(pos, op.Now), nil
	case model.OpRefreshPosition:
		var args model.PositionArgs
		if err := decodeArgs(op, &args); err != nil {
			return nil, err
		}
		id, err := parsePosition(args.Position)
		if err != nil {
			return nil, err
		}
		pos, err := p.RefreshPositionValue(id)
		if err != nil {
			return nil, err
		}
		return PositionRecordFrom(pos, op.Now), nil
	case model.OpWithdrawProtocolFees:
		return p.WithdrawProtocolFees(e.admin)
	case model.OpWithdrawCreatorFees:
		return p.WithdrawCreatorFees(e.creators[op.Pool])
	case model.OpStartRamp:
		var args model.RampArgs
		if err := decodeArgs(op, &args); err != nil {
			return nil, err
		}
		if err := p.StartRamp(e.admin, args.TargetAmp, args.EndTime, op.Now); err != nil {
			return nil, err
		}
		return p.Snapshot().State.Ramp, nil
	case model.OpStopRamp:
		if err := p.StopRamp(e.admin, op.Now); err != nil {
			return nil, err
		}
		return p.Snapshot().State.Ramp, nil
	default:
		return nil, ammerr.Wrapf(ammerr.ErrInvalidParameter, "unknown operation %q", op.Op)
	}
}

func (e *Engine) createPool(op model.Operation) (interface{}, error) {
	var args model.CreatePoolArgs
	if err := decodeArgs(op, &args); err != nil {
		return nil, err
	}
	cfg := pool.Config{
		ID:     op.Pool,
		Kind:   pool.Kind(args.Kind),
		AssetA: args.AssetA,
		AssetB: args.AssetB,
		Fees: fees.Schedule{
			FeeBps:         args.FeeBps,
			ProtocolFeeBps: args.ProtocolFeeBps,
			CreatorFeeBps:  args.CreatorFeeBps,
		},
		Amp: args.Amp,
	}
	p, creator, err := e.manager.CreatePool(cfg)
	if err != nil {
		return nil, err
	}
	e.creators[op.Pool] = creator
	return PoolRecordFrom(p.Snapshot(), op.Now), nil
}

func (e *Engine) addLiquidity(p *pool.Pool, op model.Operation) (interface{}, error) {
	var args model.AddLiquidityArgs
	if err := decodeArgs(op, &args); err != nil {
		return nil, err
	}
	owner, err := parseAddress(args.Owner)
	if err != nil {
		return nil, err
	}
	req := pool.AddLiquidityRequest{
		Owner:     owner,
		AmountA:   args.AmountA,
		AmountB:   args.AmountB,
		MinShares: args.MinShares,
		Deadline:  args.Deadline,
		Now:       op.Now,
	}
	switch {
	case args.Position != "":
		if req.PositionID, err = parsePosition(args.Position); err != nil {
			return nil, err
		}
	case args.NewPosition != "":
		if req.NewPositionID, err = parsePosition(args.NewPosition); err != nil {
			return nil, err
		}
	default:
		req.NewPositionID = derivedPositionID(op)
	}
	return p.AddLiquidity(req)
}

func (e *Engine) swap(p *pool.Pool, op model.Operation) (interface{}, error) {
	var args model.SwapArgs
	if err := decodeArgs(op, &args); err != nil {
		return nil, err
	}
	dir := pool.Direction(args.Direction)
	if !dir.Valid() {
		return nil, ammerr.Wrapf(ammerr.ErrInvalidParameter, "unknown direction %q", args.Direction)
	}
	maxPrice, err := ParseMaxPrice(args.MaxPrice)
	if err != nil {
		return nil, err
	}
	return p.Swap(dir, pool.SwapRequest{
		AmountIn: args.AmountIn,
		MinOut:   args.MinOut,
		MaxPrice: maxPrice,
		Deadline: args.Deadline,
		Now:      op.Now,
	})
}

func (e *Engine) propose(op model.Operation) (interface{}, error) {
	var args model.ProposeArgs
	if err := decodeArgs(op, &args); err != nil {
		return nil, err
	}
	kind := governance.Kind(args.Kind)
	var payload governance.Payload
	switch kind {
	case governance.KindFeeChange:
		if args.FeeBps == nil || args.ProtocolFeeBps == nil || args.CreatorFeeBps == nil {
			return nil, ammerr.Wrapf(ammerr.ErrInvalidParameter, "fee change needs fee_bps, protocol_fee_bps and creator_fee_bps")
		}
		payload.Fees = &fees.Schedule{
			FeeBps:         *args.FeeBps,
			ProtocolFeeBps: *args.ProtocolFeeBps,
			CreatorFeeBps:  *args.CreatorFeeBps,
		}
	case governance.KindParameterChange:
		p, err := e.manager.Pool(op.Pool)
		if err != nil {
			return nil, err
		}
		// Unset fields keep the pool's current value.
		params := p.Snapshot().State.Risk
		if args.MaxPriceImpactBps != nil {
			params.MaxPriceImpactBps = *args.MaxPriceImpactBps
		}
		if args.RatioToleranceBps != nil {
			params.RatioToleranceBps = *args.RatioToleranceBps
		}
		if args.MinCompoundFees != nil {
			params.MinCompoundFees = *args.MinCompoundFees
		}
		payload.Params = &params
	case governance.KindPause:
		payload.Paused = args.Paused
	}
	return e.timelock.Propose(e.admin, op.Pool, kind, payload, op.Now)
}

// ParseMaxPrice converts a decimal price of input per unit of output into
// the 1e12-scaled integer the risk guard compares against. Empty disables
// the check.
func ParseMaxPrice(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, ammerr.Wrapf(ammerr.ErrInvalidParameter, "max price %q: %v", s, err)
	}
	if !d.IsPositive() {
		return nil, ammerr.Wrapf(ammerr.ErrInvalidParameter, "max price %q must be positive", s)
	}
	scaled := d.Mul(decimal.NewFromInt(int64(fixedpoint.Precision))).Floor()
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, ammerr.Wrapf(ammerr.ErrOverflow, "max price %q", s)
	}
	return v, nil
}

// derivedPositionID gives a journal-created position an id that is stable
// across replays of the same journal.
func derivedPositionID(op model.Operation) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", op.Pool, op.Seq)))
}

func decodeArgs(op model.Operation, v interface{}) error {
	if len(op.Args) == 0 {
		return nil
	}
	if err := json.Unmarshal(op.Args, v); err != nil {
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "decode %s args: %v", op.Op, err)
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, ammerr.Wrapf(ammerr.ErrInvalidParameter, "invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parsePosition(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ammerr.Wrapf(ammerr.ErrInvalidParameter, "invalid position id %q", s)
	}
	return id, nil
}

func ownerAndPosition(owner, position string) (common.Address, uuid.UUID, error) {
	addr, err := parseAddress(owner)
	if err != nil {
		return common.Address{}, uuid.Nil, err
	}
	id, err := parsePosition(position)
	if err != nil {
		return common.Address{}, uuid.Nil, err
	}
	return addr, id, nil
}
