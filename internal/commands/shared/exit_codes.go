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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tombee/dingtalk/pkg/httpclient"
	pkgerrors "github.com/tombee/dingtalk/pkg/errors"
	"github.com/tombee/dingtalk/sdk"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitConfig  = 3
	ExitAPI     = 4
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewUsageError creates an error for bad arguments or flags.
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: msg, Cause: cause}
}

// NewConfigError creates an error for unusable configuration.
func NewConfigError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Cause: cause}
}

// ExitCode maps err to a process exit code. An explicit ExitError wins;
// otherwise the error's classification decides.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	c, ok := pkgerrors.Classify(err)
	if !ok {
		return ExitFailure
	}
	switch c.ErrorType() {
	case "validation":
		return ExitUsage
	case "config":
		return ExitConfig
	case "api",
		string(httpclient.ErrorTypeAuth),
		string(httpclient.ErrorTypeRateLimit),
		string(httpclient.ErrorTypeServer),
		string(httpclient.ErrorTypeClient),
		string(httpclient.ErrorTypeTimeout):
		return ExitAPI
	default:
		return ExitFailure
	}
}

// ReportError writes err to w, as a JSON error envelope when JSON output is
// selected, and returns the exit code.
func ReportError(w io.Writer, command string, err error) int {
	code := ExitCode(err)

	if GetJSON() {
		_ = EmitJSONError(w, command, []JSONError{NewJSONError(err)})
		return code
	}

	fmt.Fprintln(w, RenderError("Error: "+err.Error()))
	if s := suggestion(err); s != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", s)
	}
	return code
}

// HandleExitError reports err on stderr and exits with the matching code.
func HandleExitError(command string, err error) {
	if err == nil {
		return
	}
	os.Exit(ReportError(os.Stderr, command, err))
}

func suggestion(err error) string {
	var verr *sdk.ValidationError
	if errors.As(err, &verr) && verr.Suggestion != "" {
		return verr.Suggestion
	}
	var apiErr *sdk.APIError
	if errors.As(err, &apiErr) && apiErr.IsRetryable() {
		return "the platform is busy; retry shortly"
	}
	var transErr *httpclient.TransportError
	if errors.As(err, &transErr) && transErr.Type == httpclient.ErrorTypeAuth {
		return "check app.key and app.secret"
	}
	return ""
}
