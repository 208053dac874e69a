package replay

import (
	"encoding/json"

	"ammcore/internal/governance"
	"ammcore/internal/model"
	"ammcore/internal/pool"
)

// PoolRecordFrom flattens a pool snapshot taken at now. The spot price is
// left empty while the pool has no liquidity.
func PoolRecordFrom(snap pool.Snapshot, now uint64) model.PoolRecord {
	st := snap.State
	rec := model.PoolRecord{
		ID:                st.ID,
		Kind:              string(st.Kind),
		AssetA:            st.AssetA,
		AssetB:            st.AssetB,
		ReserveA:          st.ReserveA,
		ReserveB:          st.ReserveB,
		TotalShares:       st.TotalShares,
		FeeBps:            st.Fees.FeeBps,
		ProtocolFeeBps:    st.Fees.ProtocolFeeBps,
		CreatorFeeBps:     st.Fees.CreatorFeeBps,
		FeePerShareA:      st.Acc.PerShareA.Dec(),
		FeePerShareB:      st.Acc.PerShareB.Dec(),
		LPFeeA:            st.LPFeeA,
		LPFeeB:            st.LPFeeB,
		ProtocolFeeA:      st.ProtocolFeeA,
		ProtocolFeeB:      st.ProtocolFeeB,
		CreatorFeeA:       st.CreatorFeeA,
		CreatorFeeB:       st.CreatorFeeB,
		Paused:            st.Paused,
		MaxPriceImpactBps: st.Risk.MaxPriceImpactBps,
		RatioToleranceBps: st.Risk.RatioToleranceBps,
		MinCompoundFees:   st.Risk.MinCompoundFees,
		UpdatedAt:         now,
	}
	if st.Kind == pool.KindStable {
		rec.AmpInitial = st.Ramp.Initial
		rec.AmpTarget = st.Ramp.Target
		rec.AmpRampStart = st.Ramp.StartTime
		rec.AmpRampEnd = st.Ramp.EndTime
	}
	if price, err := st.SpotPrice(now); err == nil {
		rec.SpotPrice = price.String()
	}
	return rec
}

func PositionRecordFrom(pos pool.Position, now uint64) model.PositionRecord {
	return model.PositionRecord{
		ID:        pos.ID.String(),
		PoolID:    pos.PoolID,
		Owner:     pos.Owner.Hex(),
		Shares:    pos.Shares,
		FeeDebtA:  pos.Debt.A.Dec(),
		FeeDebtB:  pos.Debt.B.Dec(),
		ValueA:    pos.ValueA,
		ValueB:    pos.ValueB,
		UpdatedAt: now,
	}
}

// closedPositionRecord marks a position that no longer exists in its pool.
func closedPositionRecord(rec model.PositionRecord, now uint64) model.PositionRecord {
	rec.Shares = 0
	rec.ValueA = 0
	rec.ValueB = 0
	rec.UpdatedAt = now
	return rec
}

func ProposalRecordFrom(p governance.Proposal) (model.ProposalRecord, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return model.ProposalRecord{}, err
	}
	return model.ProposalRecord{
		ID:           p.ID,
		PoolID:       p.PoolID,
		Kind:         string(p.Kind),
		Payload:      string(payload),
		CreatedAt:    p.CreatedAt,
		ExecutableAt: p.ExecutableAt,
		ExpiresAt:    p.ExpiresAt,
		Executed:     p.Executed,
		Cancelled:    p.Cancelled,
	}, nil
}
