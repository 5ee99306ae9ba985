package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estimates-cli/internal/config"
)

var errBusy = errors.New("busy")

func always(error) bool { return true }

func fast() Policy {
	return Policy{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond, Retryable: always}
}

func TestDo_FirstAttempt(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fast(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestDo_RecoversAfterRetries(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fast(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errBusy
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fast(), func(context.Context) (int, error) {
		calls++
		return 7, errBusy
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 0, v)
	assert.Equal(t, 3, calls)
}

func TestDo_DefaultClassifierStopsOnPermanent(t *testing.T) {
	p := fast()
	p.Retryable = nil
	calls := 0
	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 5, Initial: time.Second, Max: time.Second, Retryable: always}
	calls := 0
	_, err := Do(ctx, p, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errBusy
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, calls)
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond}.withDefaults()
	within := func(d, centre time.Duration) {
		t.Helper()
		assert.GreaterOrEqual(t, d, centre*3/4)
		assert.LessOrEqual(t, d, centre*5/4)
	}
	for range 20 {
		within(p.Delay(0), 100*time.Millisecond)
		within(p.Delay(1), 200*time.Millisecond)
		within(p.Delay(2), 300*time.Millisecond)
		within(p.Delay(8), 300*time.Millisecond)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RetryConfig{MaxAttempts: 5, InitialBackoffMs: 10, MaxBackoffMs: 20})
	assert.Equal(t, 5, p.Attempts)
	assert.Equal(t, 10*time.Millisecond, p.Initial)
	assert.Equal(t, 20*time.Millisecond, p.Max)

	def := PolicyFromConfig(config.RetryConfig{})
	assert.Equal(t, 3, def.Attempts)
	assert.Equal(t, 500*time.Millisecond, def.Initial)
	assert.Equal(t, 10*time.Second, def.Max)
}
