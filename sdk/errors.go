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

package sdk

import (
	"errors"
	"fmt"

	pkgerrors "github.com/tombee/dingtalk/pkg/errors"
)

// ErrMissingCredentials is returned by New when no app key or secret is set.
var ErrMissingCredentials = errors.New("app key and app secret are required")

// ErrClosed is returned when a closed Client is used.
var ErrClosed = errors.New("client is closed")

// ValidationError reports invalid input detected before any request is sent.
type ValidationError struct {
	Field      string
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation error: %s", e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	if e.Suggestion != "" {
		msg += " (" + e.Suggestion + ")"
	}
	return msg
}

// ErrorType implements errors.ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements errors.ErrorClassifier.
func (e *ValidationError) IsRetryable() bool { return false }

// APIError is a non-zero errcode returned by the platform.
type APIError struct {
	Code    int
	Message string
	Path    string

	// Data is the complete response body.
	Data []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dingtalk %s: errcode %d: %s", e.Path, e.Code, e.Message)
}

// ErrCodeSystemBusy is the errcode the platform returns when overloaded.
const ErrCodeSystemBusy = -1

// ErrorType implements errors.ErrorClassifier.
func (e *APIError) ErrorType() string { return "api" }

// IsRetryable implements errors.ErrorClassifier.
func (e *APIError) IsRetryable() bool { return e.Code == ErrCodeSystemBusy }

// IsAPIError reports whether err is an APIError with the given code.
func IsAPIError(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

var (
	_ pkgerrors.ErrorClassifier = (*ValidationError)(nil)
	_ pkgerrors.ErrorClassifier = (*APIError)(nil)
)

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "required field is missing"}
}
