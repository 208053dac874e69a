package model

// Amounts are base units. Addresses are hex strings and position ids are
// UUID strings.

type CreatePoolArgs struct {
	Kind           string `json:"kind"`
	AssetA         string `json:"asset_a"`
	AssetB         string `json:"asset_b"`
	FeeBps         uint64 `json:"fee_bps"`
	ProtocolFeeBps uint64 `json:"protocol_fee_bps"`
	CreatorFeeBps  uint64 `json:"creator_fee_bps"`
	Amp            uint64 `json:"amp,omitempty"`
}

type AddLiquidityArgs struct {
	Owner       string `json:"owner"`
	Position    string `json:"position,omitempty"`
	NewPosition string `json:"new_position,omitempty"`
	AmountA     uint64 `json:"amount_a"`
	AmountB     uint64 `json:"amount_b"`
	MinShares   uint64 `json:"min_shares"`
	Deadline    uint64 `json:"deadline"`
}

type RemoveLiquidityArgs struct {
	Owner    string `json:"owner"`
	Position string `json:"position"`
	Shares   uint64 `json:"shares"`
	MinA     uint64 `json:"min_a"`
	MinB     uint64 `json:"min_b"`
	Deadline uint64 `json:"deadline"`
}

type SwapArgs struct {
	Direction string `json:"direction"`
	AmountIn  uint64 `json:"amount_in"`
	MinOut    uint64 `json:"min_out"`
	// MaxPrice is a decimal string of input per unit of output.
	MaxPrice string `json:"max_price,omitempty"`
	Deadline uint64 `json:"deadline"`
}

// PositionArgs serves withdraw_fees, auto_compound and refresh_position.
type PositionArgs struct {
	Owner                string `json:"owner"`
	Position             string `json:"position"`
	MinLiquidityIncrease uint64 `json:"min_liquidity_increase,omitempty"`
	Deadline             uint64 `json:"deadline"`
}

type TransferArgs struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Position string `json:"position"`
}

type RampArgs struct {
	TargetAmp uint64 `json:"target_amp"`
	EndTime   uint64 `json:"end_time"`
}

type ProposeArgs struct {
	Kind              string  `json:"kind"`
	FeeBps            *uint64 `json:"fee_bps,omitempty"`
	ProtocolFeeBps    *uint64 `json:"protocol_fee_bps,omitempty"`
	CreatorFeeBps     *uint64 `json:"creator_fee_bps,omitempty"`
	MaxPriceImpactBps *uint64 `json:"max_price_impact_bps,omitempty"`
	RatioToleranceBps *uint64 `json:"ratio_tolerance_bps,omitempty"`
	MinCompoundFees   *uint64 `json:"min_compound_fees,omitempty"`
	Paused            *bool   `json:"paused,omitempty"`
}

type ProposalArgs struct {
	Proposal uint64 `json:"proposal"`
}
