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

// Package errors holds error types shared by the SDK, the configuration
// loader and the CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClassifier is implemented by errors that can be grouped for exit codes,
// metrics and retry decisions.
type ErrorClassifier interface {
	error

	// ErrorType returns a category such as "validation", "api" or "config".
	ErrorType() string

	// IsRetryable reports whether repeating the operation may succeed.
	IsRetryable() bool
}

// ConfigError represents configuration problems: unreadable files, parse
// errors and invalid values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g. "app.secret").
	Key string

	// Reason explains what's wrong with the configuration.
	Reason string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := "config error: " + e.Reason
	if e.Key != "" {
		msg = fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return "config" }

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool { return false }

// Classify returns the first ErrorClassifier in err's chain.
func Classify(err error) (ErrorClassifier, bool) {
	var c ErrorClassifier
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}

// Wrap creates a new error that wraps the given error with additional context.
// If err is nil, returns nil.
//
// Usage:
//
//	if err := store.Set(ctx, key, tok); err != nil {
//	    return errors.Wrap(err, "saving token")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
