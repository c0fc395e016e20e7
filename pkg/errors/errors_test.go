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

package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "with key",
			err:  &ConfigError{Key: "app.secret", Reason: "is required"},
			want: "config error at app.secret: is required",
		},
		{
			name: "without key",
			err:  &ConfigError{Reason: "bad file"},
			want: "config error: bad file",
		},
		{
			name: "with cause",
			err:  &ConfigError{Key: "config_file", Reason: "failed to load", Cause: fs.ErrNotExist},
			want: "config error at config_file: failed to load: file does not exist",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	err := fmt.Errorf("loading: %w", &ConfigError{Key: "k", Reason: "r", Cause: fs.ErrPermission})
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("expected errors.Is to find the cause")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Key != "k" {
		t.Errorf("errors.As failed: %v", cfgErr)
	}
}

func TestClassify(t *testing.T) {
	c, ok := Classify(fmt.Errorf("wrapped: %w", &ConfigError{Reason: "x"}))
	if !ok {
		t.Fatal("expected a classifier")
	}
	if c.ErrorType() != "config" || c.IsRetryable() {
		t.Errorf("unexpected classification %q retryable=%v", c.ErrorType(), c.IsRetryable())
	}

	if _, ok := Classify(errors.New("plain")); ok {
		t.Error("plain errors must not classify")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	base := errors.New("base")
	err := Wrap(base, "saving token")
	if err.Error() != "saving token: base" || !errors.Is(err, base) {
		t.Errorf("unexpected wrap: %v", err)
	}
}
