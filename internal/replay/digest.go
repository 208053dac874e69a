package replay

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// stateDigest hashes every pool's accounting fields, parameters, ramp and
// positions in id order, followed by every proposal. Two engines that
// applied the same journal prefix agree on it.
func stateDigest(e *Engine) (string, error) {
	var buf []byte
	u64 := func(v uint64) {
		buf = binary.BigEndian.AppendUint64(buf, v)
	}
	str := func(s string) {
		u64(uint64(len(s)))
		buf = append(buf, s...)
	}
	flag := func(b bool) {
		if b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	for _, p := range e.Manager().Pools() {
		snap := p.Snapshot()
		st := snap.State
		str(st.ID)
		str(string(st.Kind))
		u64(st.ReserveA)
		u64(st.ReserveB)
		u64(st.TotalShares)
		u64(st.LPFeeA)
		u64(st.LPFeeB)
		u64(st.ProtocolFeeA)
		u64(st.ProtocolFeeB)
		u64(st.CreatorFeeA)
		u64(st.CreatorFeeB)
		u64(st.Fees.FeeBps)
		u64(st.Fees.ProtocolFeeBps)
		u64(st.Fees.CreatorFeeBps)
		u64(st.Risk.MaxPriceImpactBps)
		u64(st.Risk.RatioToleranceBps)
		u64(st.Risk.MinCompoundFees)
		u64(st.Ramp.Initial)
		u64(st.Ramp.Target)
		u64(st.Ramp.StartTime)
		u64(st.Ramp.EndTime)
		flag(st.Paused)
		accA, accB := st.Acc.PerShareA.Bytes32(), st.Acc.PerShareB.Bytes32()
		buf = append(buf, accA[:]...)
		buf = append(buf, accB[:]...)

		u64(uint64(len(snap.Positions)))
		for _, pos := range snap.Positions {
			buf = append(buf, pos.ID[:]...)
			buf = append(buf, pos.Owner[:]...)
			u64(pos.Shares)
		}
	}

	proposals := e.Timelock().Proposals()
	u64(uint64(len(proposals)))
	for _, p := range proposals {
		u64(p.ID)
		str(p.PoolID)
		str(string(p.Kind))
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return "", fmt.Errorf("proposal %d payload: %w", p.ID, err)
		}
		str(string(payload))
		u64(p.CreatedAt)
		flag(p.Executed)
		flag(p.Cancelled)
	}
	return crypto.Keccak256Hash(buf).Hex(), nil
}
