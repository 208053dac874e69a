package pairsource

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
)

// RetryCaller retries failed RPC reads with exponential backoff.
type RetryCaller struct {
	Caller     Caller
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *zap.Logger
}

func (r *RetryCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := r.retry(ctx, "eth_call", func(ctx context.Context) error {
		var err error
		out, err = r.Caller.CallContract(ctx, msg, blockNumber)
		return err
	})
	return out, err
}

func (r *RetryCaller) BlockTimeMs(ctx context.Context, number uint64) (uint64, error) {
	var ts uint64
	err := r.retry(ctx, "block_timestamp", func(ctx context.Context) error {
		var err error
		ts, err = r.Caller.BlockTimeMs(ctx, number)
		return err
	})
	return ts, err
}

func (r *RetryCaller) retry(ctx context.Context, method string, fn func(context.Context) error) error {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempt := 0
	return withRetry(ctx, r.MaxRetries, r.BaseDelay, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && attempt <= r.MaxRetries {
			logger.Debug("rpc read failed, retrying", zap.String("method", method), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
