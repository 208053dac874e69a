package ammerr

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace is the error codespace shared by every engine package.
const Codespace = "amm"

// Engine sentinel errors. Callers match them with errors.Is; wrapped
// variants carry operation context.
var (
	ErrZeroAmount                 = errorsmod.Register(Codespace, 2, "zero amount")
	ErrInsufficientLiquidity      = errorsmod.Register(Codespace, 3, "insufficient liquidity")
	ErrInvalidAmp                 = errorsmod.Register(Codespace, 4, "invalid amplification coefficient")
	ErrExcessivePriceImpact       = errorsmod.Register(Codespace, 5, "price impact exceeds maximum")
	ErrExcessiveSlippage          = errorsmod.Register(Codespace, 6, "slippage exceeds caller limit")
	ErrDeadlinePassed             = errorsmod.Register(Codespace, 7, "deadline passed")
	ErrTooHighFee                 = errorsmod.Register(Codespace, 8, "fee exceeds maximum fee tier")
	ErrInvalidFee                 = errorsmod.Register(Codespace, 9, "invalid fee split")
	ErrPaused                     = errorsmod.Register(Codespace, 10, "pool is paused")
	ErrProposalNotReady           = errorsmod.Register(Codespace, 11, "proposal timelock has not elapsed")
	ErrProposalExpired            = errorsmod.Register(Codespace, 12, "proposal expired")
	ErrProposalAlreadyExecuted    = errorsmod.Register(Codespace, 13, "proposal already executed or cancelled")
	ErrUnauthorized               = errorsmod.Register(Codespace, 14, "unauthorized")
	ErrOverflow                   = errorsmod.Register(Codespace, 15, "result overflows 64 bits")
	ErrRatioOutOfTolerance        = errorsmod.Register(Codespace, 16, "deposit ratio deviates from pool ratio")
	ErrInsufficientFeesToCompound = errorsmod.Register(Codespace, 17, "pending fees below compound threshold")
	ErrPositionNotFound           = errorsmod.Register(Codespace, 18, "position not found")
	ErrPoolNotFound               = errorsmod.Register(Codespace, 19, "pool not found")
	ErrPoolAlreadyExists          = errorsmod.Register(Codespace, 20, "pool already exists")
	ErrInvalidParameter           = errorsmod.Register(Codespace, 21, "invalid parameter")
	ErrProposalNotFound           = errorsmod.Register(Codespace, 22, "proposal not found")
	ErrInvariantViolation         = errorsmod.Register(Codespace, 23, "pool invariant violated")
)

// Wrapf annotates a sentinel with operation context.
func Wrapf(err error, format string, args ...interface{}) error {
	return errorsmod.Wrapf(err, format, args...)
}
