package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRedisWindowSharedBudget(t *testing.T) {
	url := os.Getenv("WATCHLIST_TEST_REDIS_URL")
	if url == "" {
		t.Skip("WATCHLIST_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	key := "watchlist:test:" + uuid.NewString()
	const window = 300 * time.Millisecond

	first, err := OpenRedisWindow(ctx, url, key, 2, window, nil)
	if err != nil {
		t.Fatalf("OpenRedisWindow: %v", err)
	}
	defer first.Close()
	second, err := OpenRedisWindow(ctx, url, key, 2, window, nil)
	if err != nil {
		t.Fatalf("OpenRedisWindow: %v", err)
	}
	defer second.Close()

	start := time.Now()
	for _, w := range []*RedisWindow{first, second, first} {
		if err := w.Acquire(ctx); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < window-20*time.Millisecond {
		t.Fatalf("third acquire across processes finished after %v, want ~%v", elapsed, window)
	}
}

func TestNewRedisWindowValidatesArguments(t *testing.T) {
	if _, err := NewRedisWindow(nil, "key", 1, time.Second, nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestOpenRedisWindowRejectsBadURL(t *testing.T) {
	if _, err := OpenRedisWindow(context.Background(), "not a url", "k", 1, time.Second, nil); err == nil {
		t.Fatal("expected parse error")
	}
}
