// Package retry provides exponential-backoff retry for the LLM provider
// clients in internal/llm. It has nothing to do with recipe step retries,
// which the engine itself deliberately does not implement.
package retry

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"
)

// Config holds retry tuning. Providers that hit rate limits share
// DefaultConfig; a provider with a distinctive backoff contract may build
// its own.
type Config struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Factor      float64
}

// DefaultConfig matches the teacher's provider defaults.
var DefaultConfig = Config{
	MaxRetries:  5,
	InitialWait: 1 * time.Second,
	MaxWait:     60 * time.Second,
	Factor:      2.0,
}

// Do runs operation, retrying while shouldRetry(err) is true, with
// exponential backoff honoring any retry-after hint found in the error text.
func Do(operation func() (interface{}, error), shouldRetry func(error) bool, cfg Config) (interface{}, error) {
	wait := cfg.InitialWait

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := operation()
		if err == nil || !shouldRetry(err) {
			return result, err
		}

		if attempt == cfg.MaxRetries {
			return nil, fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, err)
		}

		retryWait := time.Duration(math.Min(float64(wait), float64(cfg.MaxWait)))
		if hinted := extractRetryTime(err.Error()); hinted > 0 {
			retryWait = hinted
		}

		log.Printf("rate limit detected, retrying in %v (attempt %d/%d)", retryWait, attempt+1, cfg.MaxRetries)
		time.Sleep(retryWait)
		wait = time.Duration(float64(wait) * cfg.Factor)
	}

	return nil, fmt.Errorf("unexpected exit from retry loop")
}

// IsRateLimitError reports whether err looks like a 429/rate-limit response.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "too many requests")
}

func extractRetryTime(errMsg string) time.Duration {
	patterns := []string{"retry in ", "retry after ", "try again in ", "try again after "}
	lower := strings.ToLower(errMsg)

	for _, pattern := range patterns {
		idx := strings.Index(lower, pattern)
		if idx < 0 {
			continue
		}
		rest := errMsg[idx+len(pattern):]

		var seconds int
		if _, err := fmt.Sscanf(rest, "%ds", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if _, err := fmt.Sscanf(rest, "%d seconds", &seconds); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
