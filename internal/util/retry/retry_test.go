package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast() []Option {
	return []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond)}
}

func TestDo_Success(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return nil
	}, fast()...)

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	attempts := 0

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, fast()...)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	t.Parallel()
	attempts := 0
	cause := errors.New("still broken")

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return cause
	}, append(fast(), WithMaxRetries(2), WithName("create server"))...)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "create server failed after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestDo_FatalStopsImmediately(t *testing.T) {
	t.Parallel()
	attempts := 0
	cause := errors.New("invalid input")

	err := Do(context.Background(), func(context.Context) error {
		attempts++
		return Fatal(cause)
	}, fast()...)

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("transient")
	}, WithInitialDelay(time.Hour))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestFatal(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Fatal(nil))
	assert.False(t, IsFatal(errors.New("plain")))

	err := Fatal(errors.New("bad"))
	assert.Equal(t, "bad", err.Error())
	assert.True(t, IsFatal(err))
}
