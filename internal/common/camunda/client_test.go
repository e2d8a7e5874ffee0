// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"interview-prep-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return Wrap(nil, &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	})
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"rpc error: code = NotFound desc = expected to find job", false},
		{"rpc error: code = InvalidArgument", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(stderrors.New(tt.msg)))
		})
	}
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	c := testClient()
	attempts := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, stderrors.New("connection reset by peer")
		}
		return "ok", nil
	}, "publish")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := testClient()
	attempts := 0
	cause := stderrors.New("rpc error: code = InvalidArgument desc = bad message")

	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, cause
	}, "publish")

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUpstream))
	assert.True(t, stderrors.Is(err, cause))

	stdErr, _ := errors.AsStandardError(err)
	assert.False(t, stdErr.Retryable)
}

func TestExecuteWithRetry_HonoursCancellation(t *testing.T) {
	c := Wrap(nil, &ClientConfig{RetryConfig: &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, stderrors.New("unavailable")
	}, "publish")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
