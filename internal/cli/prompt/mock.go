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

package prompt

import (
	"context"
	"fmt"
)

// MockPrompter implements Prompter with scripted responses for testing.
// Answers are consumed in order; once exhausted each prompt returns its
// default. Validators run against scripted answers.
type MockPrompter struct {
	responses    []any
	currentIndex int
	interactive  bool
	callLog      []string
}

// NewMockPrompter creates a new mock prompter with pre-scripted responses.
func NewMockPrompter(interactive bool, responses ...any) *MockPrompter {
	return &MockPrompter{
		responses:   responses,
		interactive: interactive,
	}
}

func (mp *MockPrompter) next(kind, msg string) (any, bool, error) {
	mp.callLog = append(mp.callLog, fmt.Sprintf("%s(%s)", kind, msg))
	if !mp.interactive {
		return nil, false, ErrNonInteractive
	}
	if mp.currentIndex >= len(mp.responses) {
		return nil, false, nil
	}
	resp := mp.responses[mp.currentIndex]
	mp.currentIndex++
	return resp, true, nil
}

// String returns the next string response.
func (mp *MockPrompter) String(ctx context.Context, msg, def string, validate Validator) (string, error) {
	resp, ok, err := mp.next("String", msg)
	if err != nil {
		return "", err
	}
	if !ok {
		return def, nil
	}
	str, isStr := resp.(string)
	if !isStr {
		return "", fmt.Errorf("mock response for %q is not a string", msg)
	}
	if validate != nil {
		if err := validate(str); err != nil {
			return "", err
		}
	}
	return str, nil
}

// Secret returns the next string response.
func (mp *MockPrompter) Secret(ctx context.Context, msg string, validate Validator) (string, error) {
	resp, ok, err := mp.next("Secret", msg)
	if err != nil || !ok {
		return "", err
	}
	str, isStr := resp.(string)
	if !isStr {
		return "", fmt.Errorf("mock response for %q is not a string", msg)
	}
	if validate != nil {
		if err := validate(str); err != nil {
			return "", err
		}
	}
	return str, nil
}

// Bool returns the next boolean response.
func (mp *MockPrompter) Bool(ctx context.Context, msg string, def bool) (bool, error) {
	resp, ok, err := mp.next("Bool", msg)
	if err != nil {
		return false, err
	}
	if !ok {
		return def, nil
	}
	b, isBool := resp.(bool)
	if !isBool {
		return false, fmt.Errorf("mock response for %q is not a bool", msg)
	}
	return b, nil
}

// Enum returns the next response, which must be one of options.
func (mp *MockPrompter) Enum(ctx context.Context, msg string, options []string, def string) (string, error) {
	resp, ok, err := mp.next("Enum", msg)
	if err != nil {
		return "", err
	}
	if !ok {
		return def, nil
	}
	str, _ := resp.(string)
	return ValidateEnum(str, options)
}

// IsInteractive returns the configured interactive mode.
func (mp *MockPrompter) IsInteractive() bool {
	return mp.interactive
}

// CallLog returns the prompts issued so far.
func (mp *MockPrompter) CallLog() []string {
	return mp.callLog
}
