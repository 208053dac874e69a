package pairsource

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ammcore/internal/model"
)

var (
	pairAddr = common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")
	usdc     = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth     = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

type fakeCaller struct {
	responses map[string][]byte
	blocks    map[uint64]uint64
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{responses: make(map[string][]byte), blocks: make(map[uint64]uint64)}
}

func (f *fakeCaller) set(t *testing.T, to common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	t.Helper()
	data, err := parsed.Methods[method].Outputs.Pack(outputs...)
	require.NoError(t, err)
	f.responses[key(to, parsed.Methods[method].ID)] = data
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	resp, ok := f.responses[key(*msg.To, msg.Data[:4])]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return resp, nil
}

func (f *fakeCaller) BlockTimeMs(_ context.Context, number uint64) (uint64, error) {
	ts, ok := f.blocks[number]
	if !ok {
		return 0, fmt.Errorf("unknown block %d", number)
	}
	return ts, nil
}

func key(to common.Address, selector []byte) string {
	return to.Hex() + common.Bytes2Hex(selector)
}

func mustABIs(t *testing.T) (abi.ABI, abi.ABI, abi.ABI) {
	t.Helper()
	pair, err := pairABIInstance()
	require.NoError(t, err)
	erc20, err := erc20ABIInstance()
	require.NoError(t, err)
	b32, err := erc20Bytes32ABIInstance()
	require.NoError(t, err)
	return pair, erc20, b32
}

func TestFetchPair(t *testing.T) {
	pair, erc20, b32 := mustABIs(t)
	c := newFakeCaller()
	c.set(t, pairAddr, pair, "token0", usdc)
	c.set(t, pairAddr, pair, "token1", weth)
	r0, _ := new(big.Int).SetString("45000000000000", 10)
	r1, _ := new(big.Int).SetString("15000000000000000000000", 10)
	c.set(t, pairAddr, pair, "getReserves", r0, r1, uint32(1_700_000_000))
	c.set(t, usdc, erc20, "decimals", uint8(6))
	c.set(t, usdc, erc20, "symbol", "USDC")
	c.set(t, weth, erc20, "decimals", uint8(18))
	var sym [32]byte
	copy(sym[:], "WETH")
	c.set(t, weth, b32, "symbol", sym)
	c.blocks[19_000_000] = 1_700_000_123_000

	p, err := FetchPair(context.Background(), c, pairAddr, 19_000_000, nil)
	require.NoError(t, err)
	require.Equal(t, "USDC", p.Token0.Label())
	require.Equal(t, "WETH", p.Token1.Label())
	require.Equal(t, uint8(18), p.Token1.Decimals)
	require.Equal(t, 0, p.Reserve0.Cmp(r0))
	require.Equal(t, 0, p.Reserve1.Cmp(r1))
	require.Equal(t, uint64(1_700_000_123_000), p.TimestampMs)
}

func TestFetchPairMissingMethod(t *testing.T) {
	pair, _, _ := mustABIs(t)
	c := newFakeCaller()
	c.set(t, pairAddr, pair, "token0", usdc)

	_, err := FetchPair(context.Background(), c, pairAddr, 0, nil)
	require.ErrorContains(t, err, "call token1")
}

func TestTokenLabelFallsBackToAddress(t *testing.T) {
	_, erc20, _ := mustABIs(t)
	c := newFakeCaller()
	c.set(t, usdc, erc20, "decimals", uint8(6))

	tok, err := FetchToken(context.Background(), c, usdc, nil)
	require.NoError(t, err)
	require.Equal(t, usdc.Hex(), tok.Label())
}

func TestSeedOperations(t *testing.T) {
	r0, _ := new(big.Int).SetString("45000000000000", 10)
	r1, _ := new(big.Int).SetString("15000000000000000000000", 10)
	p := Pair{
		Address:     pairAddr,
		Token0:      Token{Address: usdc, Symbol: "USDC", Decimals: 6},
		Token1:      Token{Address: weth, Symbol: "WETH", Decimals: 18},
		Reserve0:    r0,
		Reserve1:    r1,
		TimestampMs: 1_700_000_123_000,
	}
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	_, err := SeedOperations(p, SeedOptions{FeeBps: 30, Owner: owner}, 1)
	require.ErrorContains(t, err, "does not fit 64 bits")

	ops, err := SeedOperations(p, SeedOptions{PoolID: "usdc-weth", FeeBps: 30, Owner: owner, ScaleDecimals: 6, DeadlineMs: 60_000}, 10)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	require.Equal(t, model.OpCreatePool, ops[0].Op)
	require.Equal(t, uint64(10), ops[0].Seq)
	require.Equal(t, uint64(11), ops[1].Seq)

	var create model.CreatePoolArgs
	require.NoError(t, json.Unmarshal(ops[0].Args, &create))
	require.Equal(t, "constant_product", create.Kind)
	require.Equal(t, "USDC", create.AssetA)

	var add model.AddLiquidityArgs
	require.NoError(t, json.Unmarshal(ops[1].Args, &add))
	require.Equal(t, uint64(45_000_000), add.AmountA)
	require.Equal(t, uint64(15_000_000_000_000_000), add.AmountB)
	require.Equal(t, p.TimestampMs+60_000, add.Deadline)
	require.Equal(t, owner.Hex(), add.Owner)
}
