package replay

import (
	"context"
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"ammcore/internal/governance"
	"ammcore/internal/journal"
	"ammcore/internal/metrics"
	"ammcore/internal/model"
	"ammcore/internal/pool"
)

// SnapshotSink receives pool, position and proposal snapshots. The postgres
// store implements it.
type SnapshotSink interface {
	UpsertPools(ctx context.Context, pools []model.PoolRecord) error
	UpsertPositions(ctx context.Context, positions []model.PositionRecord) error
	UpsertProposals(ctx context.Context, proposals []model.ProposalRecord) error
}

// Config controls replay behavior.
type Config struct {
	BatchSize int
	// RecomputeFrom forces output from this sequence onward, ignoring the
	// stored state.
	RecomputeFrom uint64
	StateStore    StateStore
}

// Summary counts what a run did.
type Summary struct {
	Total    int    `json:"total"`
	Applied  int    `json:"applied"`
	Rejected int    `json:"rejected"`
	Failed   int    `json:"failed"`
	Written  int    `json:"written"`
	LastSeq  uint64 `json:"last_seq"`
}

// Runner replays a journal from the start on a fresh engine. Every
// operation is applied; results and snapshots are written only for
// operations past the stored checkpoint.
type Runner struct {
	cfg     Config
	engine  *Engine
	results *journal.Writer
	sink    SnapshotSink
	metrics *metrics.Replay
	logger  *zap.Logger

	pending        []model.OperationResult
	dirtyPools     map[string]struct{}
	dirtyProposals map[uint64]struct{}
	written        map[string]map[string]model.PositionRecord
	lastNow        uint64
}

// NewRunner wires a runner. results, sink and m may each be nil.
func NewRunner(cfg Config, engine *Engine, results *journal.Writer, sink SnapshotSink, m *metrics.Replay, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:            cfg,
		engine:         engine,
		results:        results,
		sink:           sink,
		metrics:        m,
		logger:         logger,
		dirtyPools:     make(map[string]struct{}),
		dirtyProposals: make(map[uint64]struct{}),
		written:        make(map[string]map[string]model.PositionRecord),
	}
}

// Run applies every operation in the journal at inputPath.
func (r *Runner) Run(ctx context.Context, inputPath string) (Summary, error) {
	if r.engine == nil {
		return Summary{}, fmt.Errorf("engine is nil")
	}
	if r.cfg.BatchSize <= 0 {
		r.cfg.BatchSize = 1000
	}

	checkpoint, err := r.loadCheckpoint(ctx)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	err = journal.ScanOperations(ctx, inputPath, func(op model.Operation) error {
		sum.Total++
		if op.Seq <= sum.LastSeq {
			sum.Failed++
			r.logger.Warn("out of order operation", zap.Uint64("seq", op.Seq), zap.Uint64("last_seq", sum.LastSeq))
			return nil
		}
		sum.LastSeq = op.Seq

		result, applyErr := r.engine.Apply(op)
		if applyErr != nil {
			sum.Rejected++
			r.logger.Debug("operation rejected",
				zap.Uint64("seq", op.Seq),
				zap.String("op", string(op.Op)),
				zap.String("pool", op.Pool),
				zap.Error(applyErr),
			)
		} else {
			sum.Applied++
		}

		poolID := touchedPool(op, result, applyErr)
		if err := r.verify(poolID); err != nil {
			return err
		}
		r.observe(op, poolID, result, applyErr)

		if op.Seq == checkpoint.Seq && checkpoint.Digest != "" {
			got, err := stateDigest(r.engine)
			if err != nil {
				return err
			}
			if got != checkpoint.Digest {
				return fmt.Errorf("journal diverges from checkpoint at seq %d: state %s, checkpoint %s", op.Seq, got, checkpoint.Digest)
			}
		}
		if op.Seq <= checkpoint.Seq {
			r.rememberPersisted(poolID)
			return nil
		}
		rec, err := resultRecord(op, result, applyErr)
		if err != nil {
			return err
		}
		r.pending = append(r.pending, rec)
		r.lastNow = op.Now
		if poolID != "" {
			r.dirtyPools[poolID] = struct{}{}
		}
		if p, ok := result.(governance.Proposal); ok && applyErr == nil {
			r.dirtyProposals[p.ID] = struct{}{}
		}

		if len(r.pending) >= r.cfg.BatchSize {
			n := len(r.pending)
			if err := r.flush(ctx, op.Seq); err != nil {
				return err
			}
			sum.Written += n
		}
		return nil
	}, func(decodeErr *journal.DecodeError) {
		sum.Failed++
		if r.metrics != nil {
			r.metrics.DecodeFailures.Inc()
		}
		r.logger.Warn("decode operation", zap.Error(decodeErr))
	})
	if err != nil {
		return sum, err
	}

	if len(r.pending) > 0 {
		n := len(r.pending)
		if err := r.flush(ctx, sum.LastSeq); err != nil {
			return sum, err
		}
		sum.Written += n
	}

	r.logger.Info("replay complete",
		zap.Int("total", sum.Total),
		zap.Int("applied", sum.Applied),
		zap.Int("rejected", sum.Rejected),
		zap.Int("failed", sum.Failed),
		zap.Int("written", sum.Written),
		zap.Uint64("last_seq", sum.LastSeq),
	)
	return sum, nil
}

// loadCheckpoint returns where output resumes. RecomputeFrom carries no
// digest, so a forced recompute never fails the divergence check.
func (r *Runner) loadCheckpoint(ctx context.Context) (Checkpoint, error) {
	if r.cfg.RecomputeFrom > 0 {
		return Checkpoint{Seq: r.cfg.RecomputeFrom - 1}, nil
	}
	if r.cfg.StateStore == nil {
		return Checkpoint{}, nil
	}
	cp, ok, err := r.cfg.StateStore.Load(ctx)
	if err != nil {
		return Checkpoint{}, err
	}
	if !ok {
		return Checkpoint{}, nil
	}
	r.logger.Info("resuming from checkpoint", zap.Uint64("seq", cp.Seq), zap.String("digest", cp.Digest))
	return cp, nil
}

// verify stops the replay if an operation left a pool with unaccounted
// shares or an LP fee balance smaller than what positions can claim.
func (r *Runner) verify(poolID string) error {
	if poolID == "" {
		return nil
	}
	p, err := r.engine.Manager().Pool(poolID)
	if err != nil {
		return nil
	}
	snap := p.Snapshot()
	if err := snap.Verify(); err != nil {
		return fmt.Errorf("verify pool %s: %w", poolID, err)
	}
	var owedA, owedB uint64
	for _, pos := range snap.Positions {
		a, b, err := snap.State.Acc.Pending(pos.Debt, pos.Shares)
		if err != nil {
			return fmt.Errorf("verify pool %s: %w", poolID, err)
		}
		owedA += a
		owedB += b
	}
	if owedA > snap.State.LPFeeA || owedB > snap.State.LPFeeB {
		return fmt.Errorf("verify pool %s: positions owed %d/%d exceed lp fees %d/%d",
			poolID, owedA, owedB, snap.State.LPFeeA, snap.State.LPFeeB)
	}
	return nil
}

func (r *Runner) observe(op model.Operation, poolID string, result interface{}, applyErr error) {
	if r.metrics == nil {
		return
	}
	r.metrics.OperationsTotal.WithLabelValues(string(op.Op), statusLabel(applyErr)).Inc()
	r.metrics.LastSeq.Set(float64(op.Seq))

	if swap, ok := result.(pool.SwapResult); ok && applyErr == nil {
		r.metrics.SwapVolume.WithLabelValues(poolID, string(swap.Direction)).Add(float64(swap.AmountIn))
		r.metrics.FeesCollected.WithLabelValues(poolID, "lp").Add(float64(swap.Fee.LP))
		r.metrics.FeesCollected.WithLabelValues(poolID, "protocol").Add(float64(swap.Fee.Protocol))
		r.metrics.FeesCollected.WithLabelValues(poolID, "creator").Add(float64(swap.Fee.Creator))
		r.metrics.PriceImpact.Observe(float64(swap.PriceImpactBps))
	}

	if poolID == "" {
		return
	}
	p, err := r.engine.Manager().Pool(poolID)
	if err != nil {
		return
	}
	snap := p.Snapshot()
	r.metrics.PoolReserves.WithLabelValues(poolID, "a").Set(float64(snap.State.ReserveA))
	r.metrics.PoolReserves.WithLabelValues(poolID, "b").Set(float64(snap.State.ReserveB))
	r.metrics.PoolShares.WithLabelValues(poolID).Set(float64(snap.State.TotalShares))
	r.metrics.PoolPositions.WithLabelValues(poolID).Set(float64(len(snap.Positions)))
	paused := 0.0
	if snap.State.Paused {
		paused = 1
	}
	r.metrics.PoolPaused.WithLabelValues(poolID).Set(paused)
}

func (r *Runner) flush(ctx context.Context, seq uint64) error {
	if r.results != nil {
		if err := r.results.AppendResults(r.pending); err != nil {
			return err
		}
	}
	r.pending = r.pending[:0]

	if r.sink != nil {
		if err := r.flushSnapshots(ctx); err != nil {
			return err
		}
	}
	r.dirtyPools = make(map[string]struct{})
	r.dirtyProposals = make(map[uint64]struct{})

	if r.cfg.StateStore == nil {
		return nil
	}
	digest, err := stateDigest(r.engine)
	if err != nil {
		return err
	}
	return r.cfg.StateStore.Save(ctx, Checkpoint{Seq: seq, Digest: digest})
}

// rememberPersisted records the open positions of poolID as already written
// by an earlier run, so a position closing after a resume still gets its
// zero-share row.
func (r *Runner) rememberPersisted(poolID string) {
	if r.sink == nil || poolID == "" {
		return
	}
	p, err := r.engine.Manager().Pool(poolID)
	if err != nil {
		return
	}
	snap := p.Snapshot()
	current := make(map[string]model.PositionRecord, len(snap.Positions))
	for _, pos := range snap.Positions {
		rec := PositionRecordFrom(pos, r.lastNow)
		current[rec.ID] = rec
	}
	r.written[poolID] = current
}

func (r *Runner) flushSnapshots(ctx context.Context) error {
	pools := make([]model.PoolRecord, 0, len(r.dirtyPools))
	var positions []model.PositionRecord
	for id := range r.dirtyPools {
		p, err := r.engine.Manager().Pool(id)
		if err != nil {
			continue
		}
		snap := p.Snapshot()
		pools = append(pools, PoolRecordFrom(snap, r.lastNow))

		prev := r.written[id]
		current := make(map[string]model.PositionRecord, len(snap.Positions))
		for _, pos := range snap.Positions {
			rec := PositionRecordFrom(pos, r.lastNow)
			current[rec.ID] = rec
			positions = append(positions, rec)
		}
		for posID, rec := range prev {
			if _, open := current[posID]; !open {
				positions = append(positions, closedPositionRecord(rec, r.lastNow))
			}
		}
		r.written[id] = current
	}

	proposals := make([]model.ProposalRecord, 0, len(r.dirtyProposals))
	for id := range r.dirtyProposals {
		p, ok := r.engine.Timelock().Get(id)
		if !ok {
			continue
		}
		rec, err := ProposalRecordFrom(p)
		if err != nil {
			return fmt.Errorf("proposal %d: %w", id, err)
		}
		proposals = append(proposals, rec)
	}

	if err := r.sink.UpsertPools(ctx, pools); err != nil {
		return fmt.Errorf("upsert pools: %w", err)
	}
	if err := r.sink.UpsertPositions(ctx, positions); err != nil {
		return fmt.Errorf("upsert positions: %w", err)
	}
	if err := r.sink.UpsertProposals(ctx, proposals); err != nil {
		return fmt.Errorf("upsert proposals: %w", err)
	}
	return nil
}

// touchedPool names the pool whose state an operation may have changed.
func touchedPool(op model.Operation, result interface{}, applyErr error) string {
	if p, ok := result.(governance.Proposal); ok && applyErr == nil {
		return p.PoolID
	}
	return op.Pool
}

func resultRecord(op model.Operation, result interface{}, applyErr error) (model.OperationResult, error) {
	rec := model.OperationResult{
		Seq:  op.Seq,
		Op:   op.Op,
		Pool: op.Pool,
		OK:   applyErr == nil,
	}
	if applyErr != nil {
		codespace, code, _ := errorsmod.ABCIInfo(applyErr, false)
		rec.Codespace = codespace
		rec.Code = code
		rec.Error = applyErr.Error()
		return rec, nil
	}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return model.OperationResult{}, fmt.Errorf("marshal result for seq %d: %w", op.Seq, err)
		}
		rec.Result = data
	}
	return rec, nil
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	return fmt.Sprintf("%s:%d", codespace, code)
}
