package pool

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ammcore/internal/ammerr"
	"ammcore/internal/auth"
	"ammcore/internal/fees"
	"ammcore/internal/risk"
	"ammcore/internal/stableswap"
)

// priceDecimals is the precision of spot prices rendered as decimals.
const priceDecimals = 18

// Config describes a pool at creation.
type Config struct {
	ID     string
	Kind   Kind
	AssetA string
	AssetB string
	Fees   fees.Schedule
	// Amp is the amplification of a stable pool. Ignored for constant product.
	Amp uint64
	// Risk overrides the default guard limits when set.
	Risk *risk.Params
}

func (c Config) validate() error {
	if c.ID == "" {
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "empty pool id")
	}
	if !c.Kind.Valid() {
		return ammerr.Wrapf(ammerr.ErrInvalidParameter, "unknown pool kind %q", c.Kind)
	}
	if err := c.Fees.Validate(); err != nil {
		return err
	}
	if c.Risk != nil {
		if err := c.Risk.Validate(); err != nil {
			return err
		}
	}
	if c.Kind == KindStable {
		return stableswap.ValidateAmp(c.Amp)
	}
	return nil
}

// Pool serializes every operation against one reserve pair. Positions are
// owned by the pool and only reachable through its methods.
type Pool struct {
	// id never changes, so it is readable without mu.
	id string

	mu        sync.Mutex
	state     State
	positions map[uuid.UUID]*Position

	admin   uuid.UUID
	creator uuid.UUID
	logger  *zap.Logger
}

func newPool(cfg Config, admin, creator uuid.UUID, logger *zap.Logger) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	params := risk.DefaultParams()
	if cfg.Risk != nil {
		params = *cfg.Risk
	}
	st := State{
		ID:     cfg.ID,
		Kind:   cfg.Kind,
		AssetA: cfg.AssetA,
		AssetB: cfg.AssetB,
		Fees:   cfg.Fees,
		Risk:   params,
	}
	if cfg.Kind == KindStable {
		ramp, err := stableswap.NewRamp(cfg.Amp)
		if err != nil {
			return nil, err
		}
		st.Ramp = ramp
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		id:        cfg.ID,
		state:     st,
		positions: make(map[uuid.UUID]*Position),
		admin:     admin,
		creator:   creator,
		logger:    logger.With(zap.String("pool", cfg.ID)),
	}, nil
}

func (p *Pool) ID() string {
	return p.id
}

func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pool) snapshotLocked() Snapshot {
	out := Snapshot{State: p.state, Positions: make([]Position, 0, len(p.positions))}
	for _, pos := range p.positions {
		out.Positions = append(out.Positions, *pos)
	}
	sort.Slice(out.Positions, func(i, j int) bool {
		return out.Positions[i].ID.String() < out.Positions[j].ID.String()
	})
	return out
}

func (p *Pool) Position(id uuid.UUID) (Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[id]
	if !ok {
		return Position{}, ammerr.Wrapf(ammerr.ErrPositionNotFound, "position %s in pool %s", id, p.id)
	}
	return *pos, nil
}

// ownedPosition returns a working copy of the position after checking owner.
func (p *Pool) ownedPosition(id uuid.UUID, owner common.Address) (Position, error) {
	pos, ok := p.positions[id]
	if !ok {
		return Position{}, ammerr.Wrapf(ammerr.ErrPositionNotFound, "position %s in pool %s", id, p.id)
	}
	if pos.Owner != owner {
		return Position{}, ammerr.Wrapf(ammerr.ErrUnauthorized, "position %s not owned by %s", id, owner.Hex())
	}
	return *pos, nil
}

// commitPosition stores pos, dropping it once its liquidity is gone.
func (p *Pool) commitPosition(pos Position) {
	if pos.Shares == 0 {
		delete(p.positions, pos.ID)
		return
	}
	stored := pos
	p.positions[pos.ID] = &stored
}

// Amp returns the amplification in effect at now. Zero for constant product.
func (p *Pool) Amp(now uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Kind != KindStable {
		return 0
	}
	return p.state.Ramp.Current(now)
}

// SpotPrice is the marginal amount of B paid per unit of A at now.
func (p *Pool) SpotPrice(now uint64) (decimal.Decimal, error) {
	p.mu.Lock()
	st := p.state
	p.mu.Unlock()
	return st.SpotPrice(now)
}

// SpotPrice is the marginal amount of B per unit of A for this state.
func (s State) SpotPrice(now uint64) (decimal.Decimal, error) {
	price, err := spotPrice(s, AToB, now)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ratToDecimal(price), nil
}

func spotPrice(st State, dir Direction, now uint64) (*big.Rat, error) {
	rin, rout := st.reserves(dir)
	if rin == 0 || rout == 0 {
		return nil, ammerr.Wrapf(ammerr.ErrInsufficientLiquidity, "pool %s is empty", st.ID)
	}
	if st.Kind == KindStable {
		return stableswap.SpotPrice(rin, rout, st.Ramp.Current(now))
	}
	return new(big.Rat).SetFrac(new(big.Int).SetUint64(rout), new(big.Int).SetUint64(rin)), nil
}

func ratToDecimal(r *big.Rat) decimal.Decimal {
	num := decimal.NewFromBigInt(r.Num(), 0)
	den := decimal.NewFromBigInt(r.Denom(), 0)
	return num.DivRound(den, priceDecimals)
}

func (p *Pool) checkAdmin(c auth.Capability) error {
	return auth.Require(c, p.admin)
}

func (p *Pool) checkCreator(c auth.Capability) error {
	return auth.Require(c, p.creator)
}
