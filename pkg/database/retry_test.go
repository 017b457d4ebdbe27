package database

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errStr string

func (e errStr) Error() string { return string(e) }

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errStr("dial tcp 127.0.0.1:5432: connect: connection refused"), true},
		{errStr("read: connection reset by peer"), true},
		{errStr("write: broken pipe"), true},
		{errStr("unexpected EOF"), true},
		{errStr("syntax error at or near \"FROM\""), false},
		{errStr("duplicate key value violates unique constraint \"reviews_pkey\""), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isConnectionError(tt.err), "%v", tt.err)
	}
}

func TestStartupBackOff_Bounds(t *testing.T) {
	b := startupBackOff()
	first := b.NextBackOff()
	assert.GreaterOrEqual(t, first, 750*time.Millisecond)
	assert.LessOrEqual(t, first, 1250*time.Millisecond)
	second := b.NextBackOff()
	assert.GreaterOrEqual(t, second, 1500*time.Millisecond)
	assert.LessOrEqual(t, second, 2500*time.Millisecond)
}

func TestRetryStartup_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	_, err := retryStartup(context.Background(), discardLogger(), "test", func() (int, error) {
		calls++
		return 0, backoff.Permanent(errStr("syntax error"))
	})

	require.Error(t, err)
	assert.Equal(t, "syntax error", err.Error())
	assert.Equal(t, 1, calls)
}

func TestRetryStartup_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := retryStartup(ctx, nil, "test", func() (int, error) {
		calls++
		cancel()
		return 0, errStr("connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
