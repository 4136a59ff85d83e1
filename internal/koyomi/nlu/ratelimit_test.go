package nlu_test

import (
	"sync"
	"testing"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := nlu.NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.Allow("U1") {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if rl.Allow("U1") {
		t.Fatal("fourth call should be rejected")
	}
	if !rl.Allow("U2") {
		t.Fatal("another user must have an independent quota")
	}
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rl := nlu.NewRateLimiter(1, time.Minute)
	rl.SetClock(func() time.Time { return now })

	if !rl.Allow("U1") {
		t.Fatal("first call should be allowed")
	}
	if rl.Allow("U1") {
		t.Fatal("second call inside the window should be rejected")
	}
	now = now.Add(61 * time.Second)
	if !rl.Allow("U1") {
		t.Fatal("call after the window should be allowed")
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := nlu.NewRateLimiter(0, 0)
	for i := 0; i < nlu.DefaultRateLimit; i++ {
		if !rl.Allow("U1") {
			t.Fatalf("call %d should be allowed under the default limit", i+1)
		}
	}
	if rl.Allow("U1") {
		t.Fatal("call beyond the default limit should be rejected")
	}
}

func TestRateLimiter_NilAllows(t *testing.T) {
	var rl *nlu.RateLimiter
	if !rl.Allow("U1") {
		t.Fatal("nil limiter should allow")
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := nlu.NewRateLimiter(50, time.Minute)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("U1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	rl.Sweep()
	if allowed != 50 {
		t.Fatalf("expected exactly 50 allowed calls, got %d", allowed)
	}
}
