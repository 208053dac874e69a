package model

// PoolRecord is the persisted form of a pool. Fee accumulators are decimal
// strings since they exceed 64 bits.
type PoolRecord struct {
	ID                string `json:"id"`
	Kind              string `json:"kind"`
	AssetA            string `json:"asset_a"`
	AssetB            string `json:"asset_b"`
	ReserveA          uint64 `json:"reserve_a"`
	ReserveB          uint64 `json:"reserve_b"`
	TotalShares       uint64 `json:"total_shares"`
	FeeBps            uint64 `json:"fee_bps"`
	ProtocolFeeBps    uint64 `json:"protocol_fee_bps"`
	CreatorFeeBps     uint64 `json:"creator_fee_bps"`
	FeePerShareA      string `json:"fee_per_share_a"`
	FeePerShareB      string `json:"fee_per_share_b"`
	LPFeeA            uint64 `json:"lp_fee_a"`
	LPFeeB            uint64 `json:"lp_fee_b"`
	ProtocolFeeA      uint64 `json:"protocol_fee_a"`
	ProtocolFeeB      uint64 `json:"protocol_fee_b"`
	CreatorFeeA       uint64 `json:"creator_fee_a"`
	CreatorFeeB       uint64 `json:"creator_fee_b"`
	Paused            bool   `json:"paused"`
	MaxPriceImpactBps uint64 `json:"max_price_impact_bps"`
	RatioToleranceBps uint64 `json:"ratio_tolerance_bps"`
	MinCompoundFees   uint64 `json:"min_compound_fees"`
	AmpInitial        uint64 `json:"amp_initial,omitempty"`
	AmpTarget         uint64 `json:"amp_target,omitempty"`
	AmpRampStart      uint64 `json:"amp_ramp_start,omitempty"`
	AmpRampEnd        uint64 `json:"amp_ramp_end,omitempty"`
	// SpotPrice is B per A at the time of the snapshot.
	SpotPrice string `json:"spot_price,omitempty"`
	UpdatedAt uint64 `json:"updated_at"`
}

type PositionRecord struct {
	ID        string `json:"id"`
	PoolID    string `json:"pool_id"`
	Owner     string `json:"owner"`
	Shares    uint64 `json:"shares"`
	FeeDebtA  string `json:"fee_debt_a"`
	FeeDebtB  string `json:"fee_debt_b"`
	ValueA    uint64 `json:"value_a"`
	ValueB    uint64 `json:"value_b"`
	UpdatedAt uint64 `json:"updated_at"`
}

type ProposalRecord struct {
	ID           uint64 `json:"id"`
	PoolID       string `json:"pool_id"`
	Kind         string `json:"kind"`
	Payload      string `json:"payload"`
	CreatedAt    uint64 `json:"created_at"`
	ExecutableAt uint64 `json:"executable_at"`
	ExpiresAt    uint64 `json:"expires_at"`
	Executed     bool   `json:"executed"`
	Cancelled    bool   `json:"cancelled"`
}
