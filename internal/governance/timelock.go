package governance

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"ammcore/internal/ammerr"
	"ammcore/internal/auth"
	"ammcore/internal/fees"
	"ammcore/internal/risk"
)

// Target applies executed proposals to pools.
type Target interface {
	HasPool(poolID string) bool
	ApplyFeeChange(poolID string, schedule fees.Schedule) error
	ApplyParameterChange(poolID string, params risk.Params) error
	ApplyPause(poolID string, paused bool) error
}

// Timelock queues privileged pool changes behind Delay and drops them after
// ExpiryWindow. Every call must present the admin capability.
type Timelock struct {
	mu        sync.Mutex
	admin     auth.Capability
	target    Target
	proposals map[uint64]*Proposal
	nextID    uint64
	logger    *zap.Logger
}

func NewTimelock(admin auth.Capability, target Target, logger *zap.Logger) *Timelock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timelock{
		admin:     admin,
		target:    target,
		proposals: make(map[uint64]*Proposal),
		nextID:    1,
		logger:    logger,
	}
}

// Propose validates the payload and queues it. The proposal becomes
// executable at now+Delay and expires ExpiryWindow later.
func (t *Timelock) Propose(c auth.Capability, poolID string, kind Kind, payload Payload, now uint64) (Proposal, error) {
	if err := auth.Require(c, t.admin.ID()); err != nil {
		return Proposal{}, err
	}
	if err := payload.validate(kind); err != nil {
		return Proposal{}, err
	}
	if !t.target.HasPool(poolID) {
		return Proposal{}, ammerr.Wrapf(ammerr.ErrPoolNotFound, "pool %s", poolID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p := &Proposal{
		ID:           t.nextID,
		PoolID:       poolID,
		Kind:         kind,
		Payload:      clonePayload(payload),
		CreatedAt:    now,
		ExecutableAt: now + Delay,
		ExpiresAt:    now + Delay + ExpiryWindow,
	}
	t.proposals[p.ID] = p
	t.nextID++

	t.logger.Info("proposal created",
		zap.Uint64("proposal", p.ID),
		zap.String("pool", poolID),
		zap.String("kind", string(kind)),
		zap.Uint64("executable_at", p.ExecutableAt),
	)
	return *p, nil
}

func (t *Timelock) ProposeFeeChange(c auth.Capability, poolID string, schedule fees.Schedule, now uint64) (Proposal, error) {
	return t.Propose(c, poolID, KindFeeChange, Payload{Fees: &schedule}, now)
}

func (t *Timelock) ProposeParameterChange(c auth.Capability, poolID string, params risk.Params, now uint64) (Proposal, error) {
	return t.Propose(c, poolID, KindParameterChange, Payload{Params: &params}, now)
}

func (t *Timelock) ProposePause(c auth.Capability, poolID string, paused bool, now uint64) (Proposal, error) {
	return t.Propose(c, poolID, KindPause, Payload{Paused: &paused}, now)
}

// Execute applies a ready proposal to its pool. The proposal is marked
// executed only after the pool accepted the change.
func (t *Timelock) Execute(c auth.Capability, id uint64, now uint64) (Proposal, error) {
	if err := auth.Require(c, t.admin.ID()); err != nil {
		return Proposal{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.proposals[id]
	if !ok {
		return Proposal{}, ammerr.Wrapf(ammerr.ErrProposalNotFound, "proposal %d", id)
	}
	if err := p.checkExecutable(now); err != nil {
		return Proposal{}, err
	}
	if err := t.apply(p); err != nil {
		return Proposal{}, err
	}
	p.Executed = true

	t.logger.Info("proposal executed",
		zap.Uint64("proposal", p.ID),
		zap.String("pool", p.PoolID),
		zap.String("kind", string(p.Kind)),
	)
	return *p, nil
}

func (t *Timelock) apply(p *Proposal) error {
	switch p.Kind {
	case KindFeeChange:
		return t.target.ApplyFeeChange(p.PoolID, *p.Payload.Fees)
	case KindParameterChange:
		return t.target.ApplyParameterChange(p.PoolID, *p.Payload.Params)
	case KindPause:
		return t.target.ApplyPause(p.PoolID, *p.Payload.Paused)
	default:
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "unknown proposal kind %q", p.Kind)
	}
}

// Cancel terminally withdraws a proposal that has neither executed nor expired.
func (t *Timelock) Cancel(c auth.Capability, id uint64, now uint64) (Proposal, error) {
	if err := auth.Require(c, t.admin.ID()); err != nil {
		return Proposal{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.proposals[id]
	if !ok {
		return Proposal{}, ammerr.Wrapf(ammerr.ErrProposalNotFound, "proposal %d", id)
	}
	if p.Executed || p.Cancelled {
		return Proposal{}, ammerr.Wrapf(ammerr.ErrProposalAlreadyExecuted, "proposal %d", id)
	}
	if now > p.ExpiresAt {
		return Proposal{}, ammerr.Wrapf(ammerr.ErrProposalExpired, "proposal %d", id)
	}
	p.Cancelled = true

	t.logger.Info("proposal cancelled", zap.Uint64("proposal", id), zap.String("pool", p.PoolID))
	return *p, nil
}

func (t *Timelock) Get(id uint64) (Proposal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.proposals[id]
	if !ok {
		return Proposal{}, false
	}
	return *p, true
}

// Proposals returns every proposal ordered by id.
func (t *Timelock) Proposals() []Proposal {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Proposal, 0, len(t.proposals))
	for _, p := range t.proposals {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
