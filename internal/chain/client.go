package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Client is the read-only RPC surface used to seed pools from on-chain pairs.
// All reads are pinned to an explicit block so a seed is reproducible.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	chainID   uint64
	logger    *zap.Logger

	mu         sync.RWMutex
	blockTimes map[uint64]uint64
}

// Dial connects to rpcURL. A non-zero expectChainID is checked against the
// node and a mismatch fails the dial.
func Dial(ctx context.Context, rpcURL string, expectChainID uint64, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		rpcClient:  rpcClient,
		ethClient:  ethclient.NewClient(rpcClient),
		logger:     logger,
		blockTimes: make(map[uint64]uint64),
	}

	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if !id.IsUint64() {
		c.Close()
		return nil, fmt.Errorf("chain id %s out of range", id)
	}
	c.chainID = id.Uint64()
	if expectChainID != 0 && c.chainID != expectChainID {
		c.Close()
		return nil, fmt.Errorf("connected to chain %d, expected %d", c.chainID, expectChainID)
	}
	logger.Debug("rpc connected", zap.Uint64("chain_id", c.chainID))
	return c, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) ChainID() uint64 {
	return c.chainID
}

// ResolveBlock returns block, or the node's head when block is zero.
func (c *Client) ResolveBlock(ctx context.Context, block uint64) (uint64, error) {
	if block > 0 {
		return block, nil
	}
	head, err := c.ethClient.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}
	return head, nil
}

// BlockTimeMs returns the block timestamp in milliseconds, the clock unit of
// journaled operations. Results are cached per block.
func (c *Client) BlockTimeMs(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ms, ok := c.blockTimes[number]
	c.mu.RUnlock()
	if ok {
		return ms, nil
	}

	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ms = header.Time * 1000
	c.mu.Lock()
	c.blockTimes[number] = ms
	c.mu.Unlock()

	return ms, nil
}

// CallContract performs an eth_call at blockNumber; nil means latest.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
