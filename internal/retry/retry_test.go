package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	result, err := Do(func() (interface{}, error) {
		calls++
		return "ok", nil
	}, IsRateLimitError, DefaultConfig)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsImmediatelyOnNonRetryableError(t *testing.T) {
	calls := 0
	wantErr := errors.New("boom")
	_, err := Do(func() (interface{}, error) {
		calls++
		return nil, wantErr
	}, IsRateLimitError, DefaultConfig)

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRateLimitErrorsThenSucceeds(t *testing.T) {
	cfg := Config{MaxRetries: 3, InitialWait: time.Millisecond, MaxWait: 10 * time.Millisecond, Factor: 2}

	calls := 0
	result, err := Do(func() (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("429 too many requests")
		}
		return "recovered", nil
	}, IsRateLimitError, cfg)

	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetriesAndFails(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: 10 * time.Millisecond, Factor: 2}

	calls := 0
	_, err := Do(func() (interface{}, error) {
		calls++
		return nil, errors.New("rate limit exceeded")
	}, IsRateLimitError, cfg)

	assert.Error(t, err)
	assert.Equal(t, cfg.MaxRetries+1, calls)
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"429 status", errors.New("status 429"), true},
		{"rate limit phrase", errors.New("Rate Limit exceeded"), true},
		{"quota exceeded", errors.New("quota exceeded for this project"), true},
		{"too many requests", errors.New("Too Many Requests"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

func TestExtractRetryTime(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want time.Duration
	}{
		{"retry in seconds", "rate limited, retry in 5s", 5 * time.Second},
		{"try again in seconds word", "please try again in 10 seconds", 10 * time.Second},
		{"no hint present", "rate limited", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractRetryTime(tt.msg))
		})
	}
}
