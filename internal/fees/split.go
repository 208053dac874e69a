package fees

import (
	"ammcore/internal/ammerr"
	"ammcore/internal/fixedpoint"
)

// MaxFeeBps is the highest trading fee tier a pool may charge.
const MaxFeeBps = 1_000

// Schedule is a pool's trading fee and the protocol/creator cut of it.
type Schedule struct {
	FeeBps         uint64 `json:"fee_bps"`
	ProtocolFeeBps uint64 `json:"protocol_fee_bps"`
	CreatorFeeBps  uint64 `json:"creator_fee_bps"`
}

// Validate checks the fee tier and that the protocol and creator cuts never
// exceed the whole fee.
func (s Schedule) Validate() error {
	if s.FeeBps > MaxFeeBps {
		return ammerr.Wrapf(ammerr.ErrTooHighFee, "fee %d bps above %d", s.FeeBps, MaxFeeBps)
	}
	if s.ProtocolFeeBps > fixedpoint.BpsDenominator || s.CreatorFeeBps > fixedpoint.BpsDenominator ||
		s.ProtocolFeeBps+s.CreatorFeeBps > fixedpoint.BpsDenominator {
		return ammerr.Wrapf(ammerr.ErrInvalidFee, "protocol %d + creator %d bps exceed %d", s.ProtocolFeeBps, s.CreatorFeeBps, fixedpoint.BpsDenominator)
	}
	return nil
}

// Split divides a collected trading fee between LPs, protocol and creator.
type Split struct {
	Total    uint64 `json:"total"`
	LP       uint64 `json:"lp"`
	Protocol uint64 `json:"protocol"`
	Creator  uint64 `json:"creator"`
}

// SplitFee floors the protocol and creator cuts; the LP share takes the remainder.
func (s Schedule) SplitFee(fee uint64) (Split, error) {
	protocol, err := fixedpoint.ApplyBps(fee, s.ProtocolFeeBps)
	if err != nil {
		return Split{}, err
	}
	creator, err := fixedpoint.ApplyBps(fee, s.CreatorFeeBps)
	if err != nil {
		return Split{}, err
	}
	return Split{
		Total:    fee,
		LP:       fee - protocol - creator,
		Protocol: protocol,
		Creator:  creator,
	}, nil
}
