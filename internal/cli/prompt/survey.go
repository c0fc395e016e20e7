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

	"github.com/AlecAivazis/survey/v2"
)

// SurveyPrompter implements Prompter using the survey library.
type SurveyPrompter struct {
	interactive bool
}

// NewSurveyPrompter creates a new survey-based prompter.
func NewSurveyPrompter(interactive bool) *SurveyPrompter {
	return &SurveyPrompter{
		interactive: interactive,
	}
}

// String collects a line of text using survey.Input.
func (sp *SurveyPrompter) String(ctx context.Context, msg, def string, validate Validator) (string, error) {
	if !sp.interactive {
		return "", ErrNonInteractive
	}

	var result string
	err := survey.AskOne(&survey.Input{Message: msg, Default: def}, &result, withValidator(validate))
	return result, err
}

// Secret collects a secret using survey.Password.
func (sp *SurveyPrompter) Secret(ctx context.Context, msg string, validate Validator) (string, error) {
	if !sp.interactive {
		return "", ErrNonInteractive
	}

	var result string
	err := survey.AskOne(&survey.Password{Message: msg}, &result, withValidator(validate))
	return result, err
}

// Bool asks a yes/no question using survey.Confirm.
func (sp *SurveyPrompter) Bool(ctx context.Context, msg string, def bool) (bool, error) {
	if !sp.interactive {
		return false, ErrNonInteractive
	}

	var result bool
	err := survey.AskOne(&survey.Confirm{Message: msg, Default: def}, &result)
	return result, err
}

// Enum collects a selection using survey.Select.
func (sp *SurveyPrompter) Enum(ctx context.Context, msg string, options []string, def string) (string, error) {
	if !sp.interactive {
		return "", ErrNonInteractive
	}
	if len(options) == 0 {
		return "", fmt.Errorf("no options provided for %q", msg)
	}

	var result string
	prompt := &survey.Select{Message: msg, Options: options}
	if def != "" {
		prompt.Default = def
	}
	err := survey.AskOne(prompt, &result)
	return result, err
}

// IsInteractive returns whether the prompter can display interactive prompts.
func (sp *SurveyPrompter) IsInteractive() bool {
	return sp.interactive
}

func withValidator(validate Validator) survey.AskOpt {
	return survey.WithValidator(func(ans interface{}) error {
		str, ok := ans.(string)
		if !ok || validate == nil {
			return nil
		}
		return validate(str)
	})
}
