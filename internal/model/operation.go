package model

import "encoding/json"

// OpKind names a journaled pool or governance operation.
type OpKind string

const (
	OpCreatePool           OpKind = "create_pool"
	OpAddLiquidity         OpKind = "add_liquidity"
	OpRemoveLiquidity      OpKind = "remove_liquidity"
	OpSwap                 OpKind = "swap"
	OpWithdrawFees         OpKind = "withdraw_fees"
	OpAutoCompound         OpKind = "auto_compound"
	OpTransferPosition     OpKind = "transfer_position"
	OpRefreshPosition      OpKind = "refresh_position"
	OpWithdrawProtocolFees OpKind = "withdraw_protocol_fees"
	OpWithdrawCreatorFees  OpKind = "withdraw_creator_fees"
	OpStartRamp            OpKind = "start_ramp"
	OpStopRamp             OpKind = "stop_ramp"
	OpPropose              OpKind = "propose"
	OpExecuteProposal      OpKind = "execute_proposal"
	OpCancelProposal       OpKind = "cancel_proposal"
)

// Operation is one journal line. Now is the caller-supplied clock in
// milliseconds; the engine never reads wall time.
type Operation struct {
	Seq  uint64          `json:"seq"`
	Op   OpKind          `json:"op"`
	Pool string          `json:"pool"`
	Now  uint64          `json:"now"`
	Args json.RawMessage `json:"args,omitempty"`
}

// OperationResult records the outcome of applying an Operation.
type OperationResult struct {
	Seq       uint64          `json:"seq"`
	Op        OpKind          `json:"op"`
	Pool      string          `json:"pool"`
	OK        bool            `json:"ok"`
	Codespace string          `json:"codespace,omitempty"`
	Code      uint32          `json:"code,omitempty"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}
