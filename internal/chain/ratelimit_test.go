package chain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/tally/internal/chain"
)

const testEndpoint = "https://rpc.example"

func TestRateLimiter_Wait(t *testing.T) {
	t.Parallel()

	rl := chain.NewRateLimiter(100, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, rl.Wait(ctx, testEndpoint))

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, testEndpoint))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestRateLimiter_DeadlineTooShort(t *testing.T) {
	t.Parallel()

	rl := chain.NewRateLimiter(1, 1)
	require.NoError(t, rl.Wait(context.Background(), testEndpoint+"/eth"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Same host, next token is a second away.
	require.Error(t, rl.Wait(ctx, testEndpoint+"/bsc"))
	// Other hosts have their own bucket.
	require.NoError(t, rl.Wait(ctx, "https://other.example"))
}

func TestRateLimiter_Canceled(t *testing.T) {
	t.Parallel()

	rl := chain.NewRateLimiter(1, 1)
	require.NoError(t, rl.Wait(context.Background(), testEndpoint))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx, testEndpoint))
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	for _, perSecond := range []float64{0, -1} {
		rl := chain.NewRateLimiter(perSecond, 10)
		assert.Nil(t, rl)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		for range 50 {
			require.NoError(t, rl.Wait(ctx, testEndpoint))
		}
	}
}
