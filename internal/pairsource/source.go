package pairsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammcore/internal/model"
)

// Caller is the subset of the chain client a pair read needs.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockTimeMs(ctx context.Context, number uint64) (uint64, error)
}

// Token describes one side of a pair.
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// Label is the symbol when the token has one, else its address.
func (t Token) Label() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}

// Pair is a V2 pair's tokens and reserves as of Block.
type Pair struct {
	Address  common.Address
	Token0   Token
	Token1   Token
	Reserve0 *big.Int
	Reserve1 *big.Int
	Block    uint64
	// TimestampMs is the block time in milliseconds.
	TimestampMs uint64
}

// FetchPair reads tokens and reserves of pair at block. Block zero means
// the latest block; its timestamp is then left zero.
func FetchPair(ctx context.Context, c Caller, pair common.Address, block uint64, logger *zap.Logger) (Pair, error) {
	if c == nil {
		return Pair{}, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := pairABIInstance()
	if err != nil {
		return Pair{}, fmt.Errorf("parse pair abi: %w", err)
	}

	var blockPtr *big.Int
	if block > 0 {
		blockPtr = new(big.Int).SetUint64(block)
	}

	out := Pair{Address: pair, Block: block}

	values, err := call(ctx, c, pair, parsed, "token0", blockPtr)
	if err != nil {
		return Pair{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return Pair{}, fmt.Errorf("token0: %w", err)
	}

	values, err = call(ctx, c, pair, parsed, "token1", blockPtr)
	if err != nil {
		return Pair{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return Pair{}, fmt.Errorf("token1: %w", err)
	}

	values, err = call(ctx, c, pair, parsed, "getReserves", blockPtr)
	if err != nil {
		return Pair{}, err
	}
	if len(values) < 2 {
		return Pair{}, fmt.Errorf("getReserves returned %d values", len(values))
	}
	if out.Reserve0, err = asBigInt(values[0]); err != nil {
		return Pair{}, fmt.Errorf("reserve0: %w", err)
	}
	if out.Reserve1, err = asBigInt(values[1]); err != nil {
		return Pair{}, fmt.Errorf("reserve1: %w", err)
	}

	if out.Token0, err = FetchToken(ctx, c, token0, logger); err != nil {
		return Pair{}, err
	}
	if out.Token1, err = FetchToken(ctx, c, token1, logger); err != nil {
		return Pair{}, err
	}

	if block > 0 {
		ms, err := c.BlockTimeMs(ctx, block)
		if err != nil {
			return Pair{}, fmt.Errorf("block timestamp: %w", err)
		}
		out.TimestampMs = ms
	}
	return out, nil
}

// FetchToken loads decimals and symbol. A missing symbol is logged and left
// empty.
func FetchToken(ctx context.Context, c Caller, token common.Address, logger *zap.Logger) (Token, error) {
	meta := Token{Address: token}
	if logger == nil {
		logger = zap.NewNop()
	}
	stringABI, err := erc20ABIInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}
	bytes32ABI, err := erc20Bytes32ABIInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := call(ctx, c, token, stringABI, "decimals", nil)
	if err != nil {
		return meta, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return meta, fmt.Errorf("unsupported decimals type %T", values[0])
	}
	meta.Decimals = decimals

	if values, err := call(ctx, c, token, stringABI, "symbol", nil); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call(ctx, c, token, bytes32ABI, "symbol", nil); err == nil {
		if raw, ok := values[0].([32]byte); ok {
			meta.Symbol = string(bytes.TrimRight(raw[:], "\x00"))
		}
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}
	return meta, nil
}

func call(ctx context.Context, c Caller, to common.Address, parsed abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := c.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no values", method)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

// SeedOptions shape the operations generated for a pair.
type SeedOptions struct {
	PoolID         string
	Kind           string
	FeeBps         uint64
	ProtocolFeeBps uint64
	CreatorFeeBps  uint64
	Amp            uint64
	Owner          common.Address
	// ScaleDecimals divides both reserves by 10^ScaleDecimals so that they
	// fit the engine's 64-bit amounts.
	ScaleDecimals uint
	// DeadlineMs is added to the block time to form the deposit deadline.
	DeadlineMs uint64
}

// SeedOperations turns a pair read into a create_pool and an add_liquidity
// operation numbered from firstSeq.
func SeedOperations(p Pair, opts SeedOptions, firstSeq uint64) ([]model.Operation, error) {
	poolID := opts.PoolID
	if poolID == "" {
		poolID = p.Address.Hex()
	}
	kind := opts.Kind
	if kind == "" {
		kind = "constant_product"
	}

	amountA, err := scaleReserve(p.Reserve0, opts.ScaleDecimals)
	if err != nil {
		return nil, fmt.Errorf("reserve0: %w", err)
	}
	amountB, err := scaleReserve(p.Reserve1, opts.ScaleDecimals)
	if err != nil {
		return nil, fmt.Errorf("reserve1: %w", err)
	}

	createArgs, err := json.Marshal(model.CreatePoolArgs{
		Kind:           kind,
		AssetA:         p.Token0.Label(),
		AssetB:         p.Token1.Label(),
		FeeBps:         opts.FeeBps,
		ProtocolFeeBps: opts.ProtocolFeeBps,
		CreatorFeeBps:  opts.CreatorFeeBps,
		Amp:            opts.Amp,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal create args: %w", err)
	}
	addArgs, err := json.Marshal(model.AddLiquidityArgs{
		Owner:    opts.Owner.Hex(),
		AmountA:  amountA,
		AmountB:  amountB,
		Deadline: p.TimestampMs + opts.DeadlineMs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal add args: %w", err)
	}

	return []model.Operation{
		{Seq: firstSeq, Op: model.OpCreatePool, Pool: poolID, Now: p.TimestampMs, Args: createArgs},
		{Seq: firstSeq + 1, Op: model.OpAddLiquidity, Pool: poolID, Now: p.TimestampMs, Args: addArgs},
	}, nil
}

func scaleReserve(v *big.Int, decimals uint) (uint64, error) {
	if v == nil {
		return 0, fmt.Errorf("missing reserve")
	}
	scaled := new(big.Int).Set(v)
	if decimals > 0 {
		scaled.Quo(scaled, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	}
	if !scaled.IsUint64() {
		return 0, fmt.Errorf("%s does not fit 64 bits; raise the scale", scaled)
	}
	return scaled.Uint64(), nil
}
