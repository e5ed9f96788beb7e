// Package pacing spaces out delivery attempts.
package pacing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultMin = 8 * time.Second
	DefaultMax = 25 * time.Second
)

type Config struct {
	Min time.Duration
	Max time.Duration

	// PerHour caps attempts per rolling hour; 0 disables the ceiling.
	PerHour int

	// Rand drives the delay draw. Nil means a time-seeded source.
	Rand *rand.Rand

	// Sleep replaces the real timer. It must return ctx.Err() when ctx ends first.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Pacer draws a uniform delay after each attempt and optionally enforces an hourly ceiling.
type Pacer struct {
	min     time.Duration
	max     time.Duration
	rng     *rand.Rand
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) (*Pacer, error) {
	if cfg.Min < 0 || cfg.Max < 0 {
		return nil, fmt.Errorf("pacing: delays must be non-negative (min=%s max=%s)", cfg.Min, cfg.Max)
	}
	if cfg.Min > cfg.Max {
		return nil, fmt.Errorf("pacing: min delay %s exceeds max delay %s", cfg.Min, cfg.Max)
	}
	if cfg.PerHour < 0 {
		return nil, fmt.Errorf("pacing: per-hour ceiling must be >= 0 (got %d)", cfg.PerHour)
	}

	p := &Pacer{
		min:   cfg.Min,
		max:   cfg.Max,
		rng:   cfg.Rand,
		sleep: cfg.Sleep,
	}
	if p.rng == nil {
		now := uint64(time.Now().UnixNano())
		p.rng = rand.New(rand.NewPCG(now, now>>1))
	}
	if p.sleep == nil {
		p.sleep = Sleep
	}
	if cfg.PerHour > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(cfg.PerHour)), 1)
	}
	return p, nil
}

// Next returns a delay drawn uniformly from [min, max].
func (p *Pacer) Next() time.Duration {
	span := int64(p.max - p.min)
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(p.rng.Int64N(span+1))
}

// Pause sleeps for one drawn delay and returns it.
func (p *Pacer) Pause(ctx context.Context) (time.Duration, error) {
	d := p.Next()
	if d <= 0 {
		return 0, ctx.Err()
	}
	return d, p.sleep(ctx, d)
}

// Wait blocks until the hourly ceiling admits another attempt. No-op without a ceiling.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}
