package pacing_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/multi-sender-outreach/internal/pacing"
)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestNewRejectsBadRanges(t *testing.T) {
	tests := []struct {
		name string
		cfg  pacing.Config
	}{
		{name: "negative", cfg: pacing.Config{Min: -time.Second, Max: time.Second}},
		{name: "inverted", cfg: pacing.Config{Min: 3 * time.Second, Max: time.Second}},
		{name: "negative ceiling", cfg: pacing.Config{Min: 0, Max: 0, PerHour: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pacing.New(tc.cfg)
			require.Error(t, err)
		})
	}
}

func TestNextStaysWithinBounds(t *testing.T) {
	p, err := pacing.New(pacing.Config{Min: 8 * time.Second, Max: 25 * time.Second, Rand: seeded()})
	require.NoError(t, err)

	seenLow, seenHigh := false, false
	for i := 0; i < 2000; i++ {
		d := p.Next()
		if d < 8*time.Second || d > 25*time.Second {
			t.Fatalf("delay out of range: %s", d)
		}
		if d < 12*time.Second {
			seenLow = true
		}
		if d > 21*time.Second {
			seenHigh = true
		}
	}
	assert.True(t, seenLow, "expected draws near the lower bound")
	assert.True(t, seenHigh, "expected draws near the upper bound")
}

func TestNextFixedWhenMinEqualsMax(t *testing.T) {
	p, err := pacing.New(pacing.Config{Min: 5 * time.Second, Max: 5 * time.Second, Rand: seeded()})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, p.Next())
}

func TestPauseUsesInjectedSleep(t *testing.T) {
	var slept []time.Duration
	p, err := pacing.New(pacing.Config{
		Min:  time.Second,
		Max:  2 * time.Second,
		Rand: seeded(),
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})
	require.NoError(t, err)

	d, err := p.Pause(context.Background())
	require.NoError(t, err)
	require.Len(t, slept, 1)
	assert.Equal(t, d, slept[0])
}

func TestSleepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := pacing.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitWithoutCeilingIsImmediate(t *testing.T) {
	p, err := pacing.New(pacing.Config{})
	require.NoError(t, err)
	require.NoError(t, p.Wait(context.Background()))
	require.NoError(t, p.Wait(context.Background()))
}

func TestWaitEnforcesCeiling(t *testing.T) {
	// 3600 per hour is one per second; the second Wait must block until cancel.
	p, err := pacing.New(pacing.Config{PerHour: 3600})
	require.NoError(t, err)

	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, p.Wait(ctx))
}
