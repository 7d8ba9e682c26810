package lease

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalLease_Exclusive(t *testing.T) {
	l := NewLocalLease()
	ctx := context.Background()

	_, release, ok, err := l.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v; want ok", ok, err)
	}

	if _, _, ok, _ := l.Acquire(ctx); ok {
		t.Error("second Acquire succeeded while lease held")
	}

	release()
	release() // double release is harmless

	_, release2, ok, err := l.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("Acquire after release = %v, %v; want ok", ok, err)
	}
	release2()
}

func TestLocalLease_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, ok, err := NewLocalLease().Acquire(ctx); ok || err == nil {
		t.Errorf("Acquire on cancelled ctx = %v, %v; want error", ok, err)
	}
}

func TestLocalLease_ReleaseEndsHeldContext(t *testing.T) {
	held, release, ok, err := NewLocalLease().Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v; want ok", ok, err)
	}
	if held.Err() != nil {
		t.Fatalf("held ctx done before release: %v", held.Err())
	}
	release()
	if held.Err() == nil {
		t.Error("held ctx still live after release")
	}
}

func TestLocalLease_HeldFollowsParent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	held, release, ok, err := NewLocalLease().Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v; want ok", ok, err)
	}
	defer release()

	cancel()
	if held.Err() == nil {
		t.Error("held ctx still live after parent cancelled")
	}
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("APPLYNOW_TEST_REDIS_URL")
	if url == "" {
		t.Skip("APPLYNOW_TEST_REDIS_URL not set")
	}
	client, err := NewRedisClient(context.Background(), url)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLease_Integration(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()

	key := "applynow:test:lease"
	client.Del(ctx, key)

	a := NewRedisLease(client, key, 10*time.Second, discardLogger())
	b := NewRedisLease(client, key, 10*time.Second, discardLogger())

	_, release, ok, err := a.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("a.Acquire = %v, %v", ok, err)
	}
	if _, _, ok, err := b.Acquire(ctx); err != nil || ok {
		t.Fatalf("b.Acquire while held = %v, %v; want not ok", ok, err)
	}

	release()

	_, releaseB, ok, err := b.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("b.Acquire after release = %v, %v", ok, err)
	}
	// a's stale release must not drop b's lease.
	release()
	if _, _, ok, _ := a.Acquire(ctx); ok {
		t.Error("stale release removed another holder's lease")
	}
	releaseB()
}

func TestRedisLease_RenewedPastTTL(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()

	key := "applynow:test:lease:renew"
	client.Del(ctx, key)

	ttl := 300 * time.Millisecond
	a := NewRedisLease(client, key, ttl, discardLogger())
	b := NewRedisLease(client, key, ttl, discardLogger())

	held, release, ok, err := a.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("a.Acquire = %v, %v", ok, err)
	}
	defer release()

	time.Sleep(3 * ttl)

	if held.Err() != nil {
		t.Fatalf("held ctx ended while renewing: %v", context.Cause(held))
	}
	if _, _, ok, err := b.Acquire(ctx); err != nil || ok {
		t.Fatalf("b.Acquire past the TTL = %v, %v; want not ok", ok, err)
	}
}

func TestRedisLease_LostWhenTakenOver(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()

	key := "applynow:test:lease:lost"
	client.Del(ctx, key)

	ttl := 300 * time.Millisecond
	held, release, ok, err := NewRedisLease(client, key, ttl, discardLogger()).Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v", ok, err)
	}
	defer release()

	if err := client.Set(ctx, key, "someone-else", time.Minute).Err(); err != nil {
		t.Fatalf("overwriting key: %v", err)
	}

	select {
	case <-held.Done():
	case <-time.After(3 * ttl):
		t.Fatal("held ctx still live after the key changed owner")
	}
	if !errors.Is(context.Cause(held), ErrLost) {
		t.Errorf("cause = %v; want ErrLost", context.Cause(held))
	}

	// Release must not delete the new owner's key.
	release()
	if got, _ := client.Get(ctx, key).Result(); got != "someone-else" {
		t.Errorf("key after release = %q; want the new owner's token", got)
	}
	client.Del(ctx, key)
}
