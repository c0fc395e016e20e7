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
	"net/http"
	"strings"
)

// ErrorType classifies a non-2xx HTTP response.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeServer    ErrorType = "server"
	ErrorTypeClient    ErrorType = "client"
	ErrorTypeTimeout   ErrorType = "timeout"
)

// TransportError is returned when the platform answers with a non-2xx status.
// Application errors inside 2xx responses are not TransportErrors.
type TransportError struct {
	Type       ErrorType
	StatusCode int

	// Message is a short excerpt of the response body.
	Message string

	// RequestID is the platform's request identifier, if one was returned.
	RequestID string

	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ErrorType implements errors.ErrorClassifier.
func (e *TransportError) ErrorType() string {
	return string(e.Type)
}

// IsRetryable reports whether repeating the request may succeed.
func (e *TransportError) IsRetryable() bool {
	return e.Retryable
}

const maxMessageLen = 256

// NewStatusError classifies a response status and body excerpt.
func NewStatusError(resp *http.Response, body []byte) *TransportError {
	e := &TransportError{
		StatusCode: resp.StatusCode,
		Message:    excerpt(body, resp.Status),
		RequestID:  firstHeader(resp.Header, "X-Acs-Request-Id", "X-Request-Id", "Eagleeye-Traceid"),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		e.Type = ErrorTypeAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimit
		e.Retryable = true
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		e.Type = ErrorTypeTimeout
		e.Retryable = true
	case resp.StatusCode >= 500:
		e.Type = ErrorTypeServer
		e.Retryable = true
	default:
		e.Type = ErrorTypeClient
	}
	return e
}

func excerpt(body []byte, fallback string) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return fallback
	}
	if len(s) > maxMessageLen {
		return s[:maxMessageLen] + "..."
	}
	return s
}

func firstHeader(h http.Header, names ...string) string {
	for _, n := range names {
		if v := h.Get(n); v != "" {
			return v
		}
	}
	return ""
}
