package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ammcore/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for pool snapshots.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolRecord) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO amm_pools (
				pool_id, kind, asset_a, asset_b, reserve_a, reserve_b, total_shares,
				fee_bps, protocol_fee_bps, creator_fee_bps, fee_per_share_a, fee_per_share_b,
				lp_fee_a, lp_fee_b, protocol_fee_a, protocol_fee_b, creator_fee_a, creator_fee_b,
				paused, max_price_impact_bps, ratio_tolerance_bps, min_compound_fees,
				amp_initial, amp_target, amp_ramp_start, amp_ramp_end, spot_price,
				snapshot_ms, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,now(),now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				total_shares = EXCLUDED.total_shares,
				fee_bps = EXCLUDED.fee_bps,
				protocol_fee_bps = EXCLUDED.protocol_fee_bps,
				creator_fee_bps = EXCLUDED.creator_fee_bps,
				fee_per_share_a = EXCLUDED.fee_per_share_a,
				fee_per_share_b = EXCLUDED.fee_per_share_b,
				lp_fee_a = EXCLUDED.lp_fee_a,
				lp_fee_b = EXCLUDED.lp_fee_b,
				protocol_fee_a = EXCLUDED.protocol_fee_a,
				protocol_fee_b = EXCLUDED.protocol_fee_b,
				creator_fee_a = EXCLUDED.creator_fee_a,
				creator_fee_b = EXCLUDED.creator_fee_b,
				paused = EXCLUDED.paused,
				max_price_impact_bps = EXCLUDED.max_price_impact_bps,
				ratio_tolerance_bps = EXCLUDED.ratio_tolerance_bps,
				min_compound_fees = EXCLUDED.min_compound_fees,
				amp_initial = EXCLUDED.amp_initial,
				amp_target = EXCLUDED.amp_target,
				amp_ramp_start = EXCLUDED.amp_ramp_start,
				amp_ramp_end = EXCLUDED.amp_ramp_end,
				spot_price = EXCLUDED.spot_price,
				snapshot_ms = EXCLUDED.snapshot_ms,
				updated_at = now()
		`,
			p.ID,
			p.Kind,
			p.AssetA,
			p.AssetB,
			int64(p.ReserveA),
			int64(p.ReserveB),
			int64(p.TotalShares),
			int64(p.FeeBps),
			int64(p.ProtocolFeeBps),
			int64(p.CreatorFeeBps),
			p.FeePerShareA,
			p.FeePerShareB,
			int64(p.LPFeeA),
			int64(p.LPFeeB),
			int64(p.ProtocolFeeA),
			int64(p.ProtocolFeeB),
			int64(p.CreatorFeeA),
			int64(p.CreatorFeeB),
			p.Paused,
			int64(p.MaxPriceImpactBps),
			int64(p.RatioToleranceBps),
			int64(p.MinCompoundFees),
			int64(p.AmpInitial),
			int64(p.AmpTarget),
			int64(p.AmpRampStart),
			int64(p.AmpRampEnd),
			nullable(p.SpotPrice),
			int64(p.UpdatedAt),
		)
	}
	return s.sendBatch(ctx, batch, len(pools))
}

// UpsertPositions inserts or updates positions. A record with zero shares
// marks the position closed.
func (s *Store) UpsertPositions(ctx context.Context, positions []model.PositionRecord) error {
	if len(positions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(`
			INSERT INTO amm_positions (
				position_id, pool_id, owner, shares, fee_debt_a, fee_debt_b,
				value_a, value_b, snapshot_ms, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
			ON CONFLICT (position_id)
			DO UPDATE SET
				owner = EXCLUDED.owner,
				shares = EXCLUDED.shares,
				fee_debt_a = EXCLUDED.fee_debt_a,
				fee_debt_b = EXCLUDED.fee_debt_b,
				value_a = EXCLUDED.value_a,
				value_b = EXCLUDED.value_b,
				snapshot_ms = EXCLUDED.snapshot_ms,
				updated_at = now()
		`,
			p.ID,
			p.PoolID,
			p.Owner,
			int64(p.Shares),
			p.FeeDebtA,
			p.FeeDebtB,
			int64(p.ValueA),
			int64(p.ValueB),
			int64(p.UpdatedAt),
		)
	}
	return s.sendBatch(ctx, batch, len(positions))
}

// UpsertProposals inserts or updates governance proposals.
func (s *Store) UpsertProposals(ctx context.Context, proposals []model.ProposalRecord) error {
	if len(proposals) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range proposals {
		batch.Queue(`
			INSERT INTO amm_proposals (
				proposal_id, pool_id, kind, payload, created_ms, executable_ms, expires_ms,
				executed, cancelled, created_at, updated_at
			) VALUES ($1,$2,$3,$4::jsonb,$5,$6,$7,$8,$9,now(),now())
			ON CONFLICT (proposal_id)
			DO UPDATE SET
				executed = EXCLUDED.executed,
				cancelled = EXCLUDED.cancelled,
				updated_at = now()
		`,
			int64(p.ID),
			p.PoolID,
			p.Kind,
			p.Payload,
			int64(p.CreatedAt),
			int64(p.ExecutableAt),
			int64(p.ExpiresAt),
			p.Executed,
			p.Cancelled,
		)
	}
	return s.sendBatch(ctx, batch, len(proposals))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last persisted sequence for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, string, bool, error) {
	if name == "" {
		return 0, "", false, fmt.Errorf("state name required")
	}
	var (
		seq    int64
		digest *string
	)
	row := s.pool.QueryRow(ctx, `SELECT last_seq, digest FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&seq, &digest); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", false, nil
		}
		return 0, "", false, err
	}
	if digest == nil {
		return uint64(seq), "", true, nil
	}
	return uint64(seq), *digest, true, nil
}

// SaveState upserts the last persisted sequence and state digest for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64, digest string) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_seq, digest, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_seq = EXCLUDED.last_seq, digest = EXCLUDED.digest, updated_at = now()
	`, name, int64(seq), nullable(digest))
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
