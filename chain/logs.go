package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
)

// LogPollInterval is the polling period used when the backend cannot push logs.
var LogPollInterval = 5 * time.Second

// SubscribeLogs streams logs matching q into ch. Backends reached over plain HTTP
// cannot push notifications; for those the logs are polled from the next block on.
func SubscribeLogs(ctx context.Context, b Backend, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	sub, err := b.SubscribeFilterLogs(ctx, q, ch)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, rpc.ErrNotificationsUnsupported) {
		return nil, err
	}
	return pollLogs(ctx, b, q, ch)
}

func pollLogs(ctx context.Context, b Backend, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	head, err := b.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	from := head + 1

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(LogPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-quit:
				return nil
			case <-ticker.C:
			}

			to, err := b.BlockNumber(ctx)
			if err != nil {
				return err
			}
			if to < from {
				continue
			}

			fq := q
			fq.FromBlock = new(big.Int).SetUint64(from)
			fq.ToBlock = new(big.Int).SetUint64(to)
			logs, err := b.FilterLogs(ctx, fq)
			if err != nil {
				return err
			}
			for _, l := range logs {
				select {
				case ch <- l:
				case <-quit:
					return nil
				}
			}
			from = to + 1
		}
	}), nil
}
