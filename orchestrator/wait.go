package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"raffle/raffle"
)

// DefaultWinnerTimeout bounds the development winner wait.
const DefaultWinnerTimeout = 2 * time.Minute

// ErrSubscriptionClosed is returned when the event subscription ends before an event arrives.
var ErrSubscriptionClosed = errors.New("subscription closed before event")

var winnerWaitSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "raffle_winner_wait_seconds",
		Help:    "Time spent waiting for WinnerPicked",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	},
	[]string{"outcome"},
)

// SubscribeFunc starts delivering events into sink.
type SubscribeFunc[T any] func(ctx context.Context, sink chan<- *T) (event.Subscription, error)

// AwaitEvent waits for one event. The subscription is live before trigger runs,
// so an event caused by trigger is never missed. handler runs at most once and
// its error is returned. The subscription is always released.
func AwaitEvent[T any](ctx context.Context, subscribe SubscribeFunc[T], trigger func(context.Context) error, handler func(*T) error) error {
	sink := make(chan *T, 1)
	sub, err := subscribe(ctx, sink)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	if trigger != nil {
		if err := trigger(ctx); err != nil {
			return fmt.Errorf("trigger: %w", err)
		}
	}

	select {
	case ev := <-sink:
		return handler(ev)
	case err := <-sub.Err():
		if err == nil {
			err = ErrSubscriptionClosed
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AwaitWinner waits for the next WinnerPicked of r. A positive timeout bounds
// the wait; zero waits until ctx is done.
func AwaitWinner(ctx context.Context, r *raffle.Raffle, timeout time.Duration, trigger func(context.Context) error, handler func(*raffle.WinnerPicked) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	subscribe := func(ctx context.Context, sink chan<- *raffle.WinnerPicked) (event.Subscription, error) {
		return r.WatchWinnerPicked(ctx, sink)
	}

	start := time.Now()
	handled := false
	err := AwaitEvent(ctx, subscribe, trigger, func(ev *raffle.WinnerPicked) error {
		handled = true
		return handler(ev)
	})

	outcome := "picked"
	switch {
	case handled && err != nil:
		outcome = "handler_error"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	winnerWaitSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil && !handled {
		return fmt.Errorf("waiting for WinnerPicked: %w", err)
	}
	return err
}
