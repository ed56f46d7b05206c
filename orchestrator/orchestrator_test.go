package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap/zaptest"

	"raffle/chain"
	"raffle/config"
	"raffle/devchain"
	"raffle/raffle"
)

type ping struct{ n int }

func feedSubscriber(feed *event.Feed) SubscribeFunc[ping] {
	return func(_ context.Context, sink chan<- *ping) (event.Subscription, error) {
		return feed.Subscribe(sink), nil
	}
}

// ====================
// AwaitEvent
// ====================

func TestAwaitEvent_DeliversEventFromTrigger(t *testing.T) {
	var feed event.Feed
	var calls atomic.Int32

	err := AwaitEvent(context.Background(), feedSubscriber(&feed),
		func(context.Context) error {
			// only delivered if the subscription already exists
			go func() {
				feed.Send(&ping{n: 1})
				feed.Send(&ping{n: 2})
			}()
			return nil
		},
		func(p *ping) error {
			calls.Add(1)
			if p.n != 1 {
				t.Errorf("got event %d, want 1", p.n)
			}
			return nil
		})
	if err != nil {
		t.Fatalf("AwaitEvent() error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
}

func TestAwaitEvent_ReturnsHandlerError(t *testing.T) {
	var feed event.Feed
	wantErr := errors.New("assertion failed")

	err := AwaitEvent(context.Background(), feedSubscriber(&feed),
		func(context.Context) error {
			go feed.Send(&ping{})
			return nil
		},
		func(*ping) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestAwaitEvent_Timeout(t *testing.T) {
	var feed event.Feed
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := AwaitEvent(ctx, feedSubscriber(&feed), nil, func(*ping) error {
		t.Error("handler must not run")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
	// the subscription was released
	if n := feed.Send(&ping{}); n != 0 {
		t.Errorf("feed still has %d subscribers", n)
	}
}

func TestAwaitEvent_TriggerError(t *testing.T) {
	var feed event.Feed
	wantErr := errors.New("send failed")

	err := AwaitEvent(context.Background(), feedSubscriber(&feed),
		func(context.Context) error { return wantErr },
		func(*ping) error { return nil })
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
	if n := feed.Send(&ping{}); n != 0 {
		t.Errorf("feed still has %d subscribers", n)
	}
}

func TestAwaitEvent_SubscriptionClosed(t *testing.T) {
	subscribe := func(context.Context, chan<- *ping) (event.Subscription, error) {
		return event.NewSubscription(func(<-chan struct{}) error { return nil }), nil
	}
	err := AwaitEvent(context.Background(), subscribe, nil, func(*ping) error { return nil })
	if !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("error = %v, want ErrSubscriptionClosed", err)
	}
}

func TestAwaitEvent_SubscribeError(t *testing.T) {
	wantErr := errors.New("no websocket")
	subscribe := func(context.Context, chan<- *ping) (event.Subscription, error) { return nil, wantErr }

	triggered := false
	err := AwaitEvent(context.Background(), subscribe,
		func(context.Context) error { triggered = true; return nil },
		func(*ping) error { return nil })
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
	if triggered {
		t.Error("trigger ran without a subscription")
	}
}

// ====================
// Suite gating
// ====================

func TestRequireDevelopmentAndLive(t *testing.T) {
	tests := []struct {
		network string
		devRuns bool
	}{
		{network: "hardhat", devRuns: true},
		{network: "localhost", devRuns: true},
		{network: "sepolia", devRuns: false},
		{network: "rinkeby", devRuns: false},
	}

	for _, tt := range tests {
		var devRan, liveRan bool
		t.Run(tt.network+"/development", func(t *testing.T) {
			RequireDevelopment(t, tt.network)
			devRan = true
		})
		t.Run(tt.network+"/live", func(t *testing.T) {
			RequireLive(t, tt.network)
			liveRan = true
		})
		if devRan != tt.devRuns || liveRan == tt.devRuns {
			t.Errorf("%s: development ran=%v live ran=%v", tt.network, devRan, liveRan)
		}
	}
}

// ====================
// Development fixture
// ====================

func newDevFixture(t *testing.T) (*Fixture, *devchain.Chain) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	env, err := Connect(context.Background(), &config.Config{Network: "hardhat"}, logger)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(env.Close)

	dev, ok := env.(*devchain.Chain)
	if !ok {
		t.Fatalf("Connect(hardhat) returned %T, want *devchain.Chain", env)
	}
	f, err := SetupDevelopment(context.Background(), env, logger)
	if err != nil {
		t.Fatalf("SetupDevelopment() error: %v", err)
	}
	return f, dev
}

func TestSetupDevelopment(t *testing.T) {
	f, _ := newDevFixture(t)

	if f.Interval != 30*time.Second {
		t.Errorf("Interval = %s, want 30s", f.Interval)
	}
	if f.EntranceFee.Cmp(big.NewInt(1e16)) != 0 {
		t.Errorf("EntranceFee = %s, want 1e16", f.EntranceFee)
	}
	if f.Coordinator == nil {
		t.Fatal("development fixture has no coordinator")
	}
	if f.Deployer.Address == f.Player.Address {
		t.Error("deployer and player should be distinct accounts")
	}

	s, err := f.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if s.State != raffle.StateOpen || s.Players.Sign() != 0 || s.Balance.Sign() != 0 {
		t.Errorf("fresh snapshot = %s", s)
	}
}

func TestSetupLive_RejectsDevelopment(t *testing.T) {
	f, _ := newDevFixture(t)
	if _, err := SetupLive(context.Background(), f.Env, nil); err == nil {
		t.Error("expected SetupLive to reject a development chain")
	}
}

func TestAwaitWinner_Development(t *testing.T) {
	ctx := context.Background()
	f, _ := newDevFixture(t)

	if _, err := f.Raffle.Connect(f.Player).EnterRaffle(ctx, f.EntranceFee); err != nil {
		t.Fatalf("EnterRaffle() error: %v", err)
	}
	if err := f.AdvancePastInterval(ctx); err != nil {
		t.Fatalf("AdvancePastInterval() error: %v", err)
	}

	var winner *raffle.WinnerPicked
	err := AwaitWinner(ctx, f.Raffle, DefaultWinnerTimeout, f.PickWinner, func(ev *raffle.WinnerPicked) error {
		winner = ev
		return nil
	})
	if err != nil {
		t.Fatalf("AwaitWinner() error: %v", err)
	}
	if winner.Player != f.Player.Address {
		t.Errorf("winner = %s, want the only player %s", winner.Player.Hex(), f.Player.Address.Hex())
	}

	s, err := f.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if s.RecentWinner != f.Player.Address || s.Players.Sign() != 0 || s.State != raffle.StateOpen {
		t.Errorf("snapshot after winner = %s", s)
	}
	if _, err := f.Raffle.Player(ctx, 0); !errors.Is(err, raffle.ErrReverted) {
		t.Errorf("Player(0) after winner: error = %v, want revert", err)
	}
}

func TestAwaitWinner_TimesOutWithoutTrigger(t *testing.T) {
	f, _ := newDevFixture(t)

	err := AwaitWinner(context.Background(), f.Raffle, 50*time.Millisecond, nil, func(*raffle.WinnerPicked) error {
		t.Error("handler must not run")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestPickWinner_RequiresCoordinator(t *testing.T) {
	f, _ := newDevFixture(t)
	f.Coordinator = nil
	if err := f.PickWinner(context.Background()); !errors.Is(err, chain.ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}
