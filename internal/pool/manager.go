package pool

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"ammcore/internal/ammerr"
	"ammcore/internal/auth"
	"ammcore/internal/fees"
	"ammcore/internal/governance"
	"ammcore/internal/risk"
)

// Manager owns every pool. Pools lock independently, so operations on
// different pools never contend.
type Manager struct {
	mu     sync.RWMutex
	admin  auth.Capability
	pools  map[string]*Pool
	logger *zap.Logger
}

func NewManager(admin auth.Capability, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		admin:  admin,
		pools:  make(map[string]*Pool),
		logger: logger,
	}
}

// CreatePool registers a new pool and returns it with the capability that
// collects its creator fees.
func (m *Manager) CreatePool(cfg Config) (*Pool, auth.Capability, error) {
	creator := auth.NewCapability()
	p, err := m.CreatePoolWithCreator(cfg, creator)
	if err != nil {
		return nil, auth.Capability{}, err
	}
	return p, creator, nil
}

// CreatePoolWithCreator is CreatePool with a caller-supplied creator capability.
func (m *Manager) CreatePoolWithCreator(cfg Config, creator auth.Capability) (*Pool, error) {
	p, err := newPool(cfg, m.admin.ID(), creator.ID(), m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pools[cfg.ID]; exists {
		return nil, ammerr.Wrapf(ammerr.ErrPoolAlreadyExists, "pool %s", cfg.ID)
	}
	m.pools[cfg.ID] = p

	m.logger.Info("pool created",
		zap.String("pool", cfg.ID),
		zap.String("kind", string(cfg.Kind)),
		zap.Uint64("fee_bps", cfg.Fees.FeeBps),
	)
	return p, nil
}

func (m *Manager) Pool(id string) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[id]
	if !ok {
		return nil, ammerr.Wrapf(ammerr.ErrPoolNotFound, "pool %s", id)
	}
	return p, nil
}

// Pools returns every pool ordered by id.
func (m *Manager) Pools() []*Pool {
	m.mu.RLock()
	out := make([]*Pool, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// GovernanceTarget exposes the timelocked setters to whoever holds the admin
// capability.
func (m *Manager) GovernanceTarget(c auth.Capability) (governance.Target, error) {
	if err := auth.Require(c, m.admin.ID()); err != nil {
		return nil, err
	}
	return governedPools{m: m}, nil
}

type governedPools struct {
	m *Manager
}

func (g governedPools) HasPool(poolID string) bool {
	_, err := g.m.Pool(poolID)
	return err == nil
}

func (g governedPools) ApplyFeeChange(poolID string, s fees.Schedule) error {
	p, err := g.m.Pool(poolID)
	if err != nil {
		return err
	}
	return p.setFees(s)
}

func (g governedPools) ApplyParameterChange(poolID string, params risk.Params) error {
	p, err := g.m.Pool(poolID)
	if err != nil {
		return err
	}
	return p.setParams(params)
}

func (g governedPools) ApplyPause(poolID string, paused bool) error {
	p, err := g.m.Pool(poolID)
	if err != nil {
		return err
	}
	p.setPaused(paused)
	return nil
}
