package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/invoicer/internal/clock"
	"golang.org/x/time/rate"
)

// MemoryStore keeps buckets in process. Limits are per instance.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	buckets map[string]*memoryBucket
	takes   int
}

type memoryBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sweepEvery is the number of takes between idle bucket sweeps.
const sweepEvery = 1024

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryStore{
		clock:   clk,
		buckets: make(map[string]*memoryBucket),
	}
}

func (m *MemoryStore) Take(_ context.Context, key string, r float64, burst int) (Result, error) {
	if err := checkBucket(key, r, burst); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.takes++
	if m.takes%sweepEvery == 0 {
		m.sweep(now, bucketTTL(r, burst))
	}

	b, ok := m.buckets[key]
	if !ok {
		b = &memoryBucket{limiter: rate.NewLimiter(rate.Limit(r), burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	return newResult(allowed, b.limiter.TokensAt(now), r, burst), nil
}

func (m *MemoryStore) sweep(now time.Time, ttl time.Duration) {
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) > ttl {
			delete(m.buckets, key)
		}
	}
}

func (m *MemoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
