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

// Package prompt collects interactive answers for the configure command.
// SurveyPrompter drives a terminal; MockPrompter replays scripted answers
// in tests.
package prompt

import (
	"context"
	"errors"
)

// ErrNonInteractive is returned when a prompt is attempted without a terminal.
var ErrNonInteractive = errors.New("cannot prompt in non-interactive mode")

// Validator rejects an answer with a message shown to the user.
type Validator func(string) error

// Prompter defines the interface for interactive input collection.
type Prompter interface {
	// String collects a line of text.
	String(ctx context.Context, msg, def string, validate Validator) (string, error)

	// Secret collects text without echoing it.
	Secret(ctx context.Context, msg string, validate Validator) (string, error)

	// Bool asks a yes/no question.
	Bool(ctx context.Context, msg string, def bool) (bool, error)

	// Enum presents options and returns the chosen one.
	Enum(ctx context.Context, msg string, options []string, def string) (string, error)

	// IsInteractive returns true if prompts can be displayed
	IsInteractive() bool
}
