package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// fakeRedis models the three commands the locker uses.
type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, exp time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	f.ttls[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	if f.data[keys[0]] == args[0].(string) {
		delete(f.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestNew_EmptyAddrIsNoop(t *testing.T) {
	l, err := New(context.Background(), "", time.Minute, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, ok := l.(Noop); !ok {
		t.Fatalf("expected Noop locker, got %T", l)
	}
	held, err := l.Acquire(context.Background(), "collect")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if err := held.Release(context.Background()); err != nil {
		t.Fatalf("Release error: %v", err)
	}
}

func TestRedis_SecondAcquireFails(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	l := newRedis(fake, time.Minute, zaptest.NewLogger(t))

	first, err := l.Acquire(ctx, "load:warehouse")
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	if got := fake.ttls[keyPrefix+"load:warehouse"]; got != time.Minute {
		t.Errorf("ttl = %v, want 1m", got)
	}

	if _, err := l.Acquire(ctx, "load:warehouse"); !errors.Is(err, domain.ErrLeaseHeld) {
		t.Fatalf("expected ErrLeaseHeld, got %v", err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if _, err := l.Acquire(ctx, "load:warehouse"); err != nil {
		t.Fatalf("Acquire after release error: %v", err)
	}
}

func TestRedis_ReleaseKeepsForeignLease(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	l := newRedis(fake, time.Minute, zaptest.NewLogger(t))

	held, err := l.Acquire(ctx, "collect:aws")
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	// Simulate expiry followed by another holder.
	fake.data[keyPrefix+"collect:aws"] = "other-host/token"

	if err := held.Release(ctx); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if fake.data[keyPrefix+"collect:aws"] != "other-host/token" {
		t.Fatal("release removed a lease it did not own")
	}
}
