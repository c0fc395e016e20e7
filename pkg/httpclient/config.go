// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpclient

import (
	"fmt"
	"log/slog"
	"time"
)

// Config configures the HTTP client.
type Config struct {
	// Timeout is the total request timeout. Must be > 0.
	Timeout time.Duration

	// KeepAlive reuses connections between requests. Default: true.
	KeepAlive bool

	// MaxSockets caps concurrent connections per host (0 = unlimited).
	MaxSockets int

	// RetryAttempts is the maximum number of retries (0 = no retries).
	// Default: 0.
	RetryAttempts int

	// RetryBackoff is the initial backoff delay before the first retry.
	// Must be > 0 if RetryAttempts > 0.
	RetryBackoff time.Duration

	// MaxBackoff caps the backoff delay. Must be >= RetryBackoff.
	MaxBackoff time.Duration

	// AllowNonIdempotentRetry enables retry for POST and friends.
	AllowNonIdempotentRetry bool

	// RateLimit is the client-side request rate in requests per second
	// (0 = unlimited).
	RateLimit float64

	// RateBurst is the token bucket size. Defaults to 1 when RateLimit > 0.
	RateBurst int

	// UserAgent is the User-Agent header value. Required.
	UserAgent string

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		KeepAlive:    true,
		RetryBackoff: 100 * time.Millisecond,
		MaxBackoff:   30 * time.Second,
		UserAgent:    "dingtalk-go/1.0",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}
	if c.MaxSockets < 0 {
		return fmt.Errorf("max_sockets must be >= 0, got %d", c.MaxSockets)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be >= 0, got %d", c.RetryAttempts)
	}
	if c.RetryAttempts > 0 {
		if c.RetryBackoff <= 0 {
			return fmt.Errorf("retry_backoff must be > 0 when retry_attempts > 0, got %v", c.RetryBackoff)
		}
		if c.MaxBackoff < c.RetryBackoff {
			return fmt.Errorf("max_backoff (%v) must be >= retry_backoff (%v)", c.MaxBackoff, c.RetryBackoff)
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be >= 0, got %v", c.RateLimit)
	}
	if c.RateBurst < 0 {
		return fmt.Errorf("rate_burst must be >= 0, got %d", c.RateBurst)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}
	return nil
}
