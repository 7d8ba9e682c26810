package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/applynow/internal/model"
)

// Limiter spaces requests to the same ATS backend. Companies hosted on one
// ATS share a bucket, so a cycle over many boards never bursts a single host.
type Limiter struct {
	mu        sync.Mutex
	gap       time.Duration
	overrides map[string]time.Duration
	buckets   map[string]*rate.Limiter
}

// NewLimiter creates a Limiter with gap between consecutive requests to one
// ATS. overrides replaces the gap for individual ATS names; a zero gap
// disables limiting for that ATS.
func NewLimiter(gap time.Duration, overrides map[string]time.Duration) *Limiter {
	l := &Limiter{
		gap:       gap,
		overrides: make(map[string]time.Duration, len(overrides)),
		buckets:   make(map[string]*rate.Limiter),
	}
	for ats, d := range overrides {
		l.overrides[ats] = d
	}
	return l
}

func (l *Limiter) bucket(ats string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[ats]; ok {
		return b
	}
	gap := l.gap
	if d, ok := l.overrides[ats]; ok {
		gap = d
	}
	limit := rate.Inf
	if gap > 0 {
		limit = rate.Every(gap)
	}
	b := rate.NewLimiter(limit, 1)
	l.buckets[ats] = b
	return b
}

// Wait blocks until a request to ats may proceed.
func (l *Limiter) Wait(ctx context.Context, ats string) error {
	if err := l.bucket(ats).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", ats, err)
	}
	return nil
}

// Source is a PostingSource that waits on the shared Limiter before every
// fetch.
type Source struct {
	inner   model.PostingSource
	limiter *Limiter
	ats     string
}

// Wrap limits inner as a board hosted on ats.
func Wrap(inner model.PostingSource, limiter *Limiter, ats string) *Source {
	return &Source{inner: inner, limiter: limiter, ats: ats}
}

func (s *Source) FetchPostings(ctx context.Context) ([]model.Posting, error) {
	if err := s.limiter.Wait(ctx, s.ats); err != nil {
		return nil, err
	}
	return s.inner.FetchPostings(ctx)
}
