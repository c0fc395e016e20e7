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
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/jq"
)

// Print writes v to the command's output. With --jq the filter runs over the
// JSON form of v; with --json v is printed as JSON; otherwise text renders it.
func Print(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	out := cmd.OutOrStdout()
	if GetJQ() != "" {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		return PrintBody(cmd, data)
	}
	if GetJSON() || text == nil {
		return EmitJSON(out, v)
	}
	if GetQuiet() {
		return nil
	}
	return text(out)
}

// PrintBody writes a raw JSON document, filtered by --jq when set. jq string
// results are printed without quotes.
func PrintBody(cmd *cobra.Command, body []byte) error {
	out := cmd.OutOrStdout()
	if GetJQ() == "" {
		return EmitJSON(out, json.RawMessage(body))
	}

	results, err := jq.NewExecutor(0, 0).Filter(commandContext(cmd), GetJQ(), body)
	if err != nil {
		return NewUsageError("jq filter failed", err)
	}
	for _, r := range results {
		if s, ok := r.(string); ok {
			fmt.Fprintln(out, s)
			continue
		}
		if err := EmitJSON(out, r); err != nil {
			return err
		}
	}
	return nil
}

// ValidateJQ checks the --jq expression before any request is sent.
func ValidateJQ() error {
	if err := jq.NewExecutor(0, 0).Validate(GetJQ()); err != nil {
		return NewUsageError("invalid --jq expression", err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
