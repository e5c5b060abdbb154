package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_AllowConsumesTokens(t *testing.T) {
	tb := NewTokenBucket(60, 2) // 每秒1个令牌，容量2

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	// 桶已空，立即请求应被拒绝
	assert.False(t, tb.Allow())
}

func TestTokenBucket_WaitRespectsContext(t *testing.T) {
	tb := NewTokenBucket(1, 1) // 每分钟1个令牌
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenBucket_RetryWithBackoff(t *testing.T) {
	t.Run("可重试错误会重试直到成功", func(t *testing.T) {
		tb := NewTokenBucket(6000, 10).WithRetryPolicy(time.Millisecond, 3)

		calls := 0
		err := tb.RetryWithBackoff(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("429 Too Many Requests")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("不可重试错误立即返回", func(t *testing.T) {
		tb := NewTokenBucket(6000, 10).WithRetryPolicy(time.Millisecond, 3)

		calls := 0
		err := tb.RetryWithBackoff(context.Background(), func() error {
			calls++
			return errors.New("无效的请求参数")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryableError(errors.New("rate limit exceeded")))
	assert.False(t, isRetryableError(errors.New("解析失败")))
	assert.False(t, isRetryableError(nil))
}
