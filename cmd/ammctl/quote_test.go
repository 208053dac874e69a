package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ammcore/internal/ammerr"
	"ammcore/internal/config"
)

func TestQuoteConstantProduct(t *testing.T) {
	out, err := quote(config.QuoteConfig{
		Kind:      "constant_product",
		ReserveA:  1_000_000,
		ReserveB:  1_000_000,
		FeeBps:    30,
		Direction: "a_to_b",
		AmountIn:  1000,
		MaxPrice:  "1.01",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, uint64(996), out.AmountOut)
	require.Equal(t, uint64(3), out.Fee.Total)
	require.Equal(t, "1", out.SpotPrice)
	require.NotNil(t, out.MaxPriceOK)
	require.True(t, *out.MaxPriceOK)
}

func TestQuoteStable(t *testing.T) {
	out, err := quote(config.QuoteConfig{
		Kind:      "stable",
		ReserveA:  10_000_000,
		ReserveB:  10_000_000,
		FeeBps:    4,
		Amp:       100,
		Direction: "b_to_a",
		AmountIn:  100_000,
		MaxPrice:  "1",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, uint64(100), out.Amp)
	require.Greater(t, out.AmountOut, uint64(99_000))
	require.Less(t, out.AmountOut, uint64(100_000))
	require.False(t, *out.MaxPriceOK)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	_, err := quote(config.QuoteConfig{Kind: "constant_product", ReserveA: 1_000_000, ReserveB: 1_000_000, Direction: "up", AmountIn: 1}, nil)
	require.Error(t, err)

	_, err = quote(config.QuoteConfig{Kind: "stable", ReserveA: 1_000_000, ReserveB: 1_000_000, Amp: 0, Direction: "a_to_b", AmountIn: 1}, nil)
	require.ErrorIs(t, err, ammerr.ErrInvalidAmp)

	_, err = quote(config.QuoteConfig{Kind: "constant_product", ReserveA: 10, ReserveB: 10, Direction: "a_to_b", AmountIn: 1}, nil)
	require.ErrorIs(t, err, ammerr.ErrInsufficientLiquidity)
}

func TestQuoteCommandPrintsJSON(t *testing.T) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"quote", "--reserve-a", "1000000", "--reserve-b", "2000000", "--amount-in", "1000"})
	require.NoError(t, root.Execute())

	var out quoteOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "2", out.SpotPrice)
	require.Equal(t, "a_to_b", out.Direction)
	require.NotZero(t, out.AmountOut)
}

func TestRedactDSN(t *testing.T) {
	require.Equal(t, "", redactDSN(""))
	require.Equal(t, "***", redactDSN("postgres://user:secret@db/amm"))
}
