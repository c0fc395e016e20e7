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
	"encoding/json"
	"errors"
	"io"

	pkgerrors "github.com/tombee/dingtalk/pkg/errors"
	"github.com/tombee/dingtalk/sdk"
)

// JSONResponse is the base envelope for JSON error output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError is one structured error.
type JSONError struct {
	// Type is the error classification, such as "api" or "validation".
	Type       string `json:"type"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	ErrCode    *int   `json:"errcode,omitempty"`
	Retryable  bool   `json:"retryable"`
	Suggestion string `json:"suggestion,omitempty"`
}

// NewJSONError describes err for JSON output.
func NewJSONError(err error) JSONError {
	je := JSONError{Type: "error", Message: err.Error(), Suggestion: suggestion(err)}
	if c, ok := pkgerrors.Classify(err); ok {
		je.Type = c.ErrorType()
		je.Retryable = c.IsRetryable()
	}

	var verr *sdk.ValidationError
	if errors.As(err, &verr) {
		je.Field = verr.Field
	}
	var apiErr *sdk.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		je.ErrCode = &code
		je.Message = apiErr.Message
	}
	return je
}

// EmitJSON writes v as indented JSON.
func EmitJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

// EmitJSONError writes a failed-command envelope carrying errs.
func EmitJSONError(w io.Writer, command string, errs []JSONError) error {
	type errorResponse struct {
		JSONResponse
		Errors []JSONError `json:"errors"`
	}

	return EmitJSON(w, errorResponse{
		JSONResponse: JSONResponse{
			Version: "1.0",
			Command: command,
			Success: false,
		},
		Errors: errs,
	})
}
