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

// Package endpoint implements the call and endpoints commands over the
// declarative endpoint table.
package endpoint

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/sdk"
)

// NewCallCommand creates the call command.
func NewCallCommand() *cobra.Command {
	var (
		pairs  []string
		data   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "call <endpoint>",
		Short: "Call an endpoint from the endpoint table",
		Long: `Call a named endpoint such as user.get or message.send. Parameters come
from --data (a JSON object, @file or - for stdin) and -p key=value pairs,
which override --data. Required fields are checked before any request is
sent; --dry-run stops after that check.

Run 'dingtalk endpoints' to list the table.`,
		Example: `  dingtalk call user.get -p userid=manager4220
  dingtalk call department.list -p fetch_child=true --jq '.department[].name'
  dingtalk call message.send --data @message.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shared.ValidateJQ(); err != nil {
				return err
			}
			e, ok := sdk.LookupEndpoint(args[0])
			if !ok {
				return &sdk.ValidationError{
					Field:      "endpoint",
					Message:    fmt.Sprintf("unknown endpoint %q", args[0]),
					Suggestion: "run 'dingtalk endpoints' to list available endpoints",
				}
			}

			p, err := buildParams(cmd.InOrStdin(), data, pairs)
			if err != nil {
				return err
			}
			if err := e.Validate(p); err != nil {
				return err
			}
			if dryRun {
				return shared.Print(cmd, dryRunView{Endpoint: newView(e), Params: p}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, shared.RenderOK(fmt.Sprintf("%s %s: parameters valid", e.Method, e.Path)))
					return err
				})
			}

			ctx := cmd.Context()
			env, err := shared.NewEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			resp, err := env.Client.Call(ctx, e.Name, p)
			if err != nil {
				return err
			}
			return shared.PrintBody(cmd, resp.Body)
		},
	}

	cmd.Flags().StringArrayVarP(&pairs, "param", "p", nil, "Parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON object of parameters, @file, or - for stdin")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate parameters without sending the request")
	return cmd
}

type dryRunView struct {
	Endpoint view       `json:"endpoint"`
	Params   sdk.Params `json:"params"`
}

func buildParams(stdin io.Reader, data string, pairs []string) (sdk.Params, error) {
	var raw []byte
	switch {
	case data == "":
	case data == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		raw = b
	case strings.HasPrefix(data, "@"):
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, shared.NewUsageError("failed to read --data file", err)
		}
		raw = b
	default:
		raw = []byte(data)
	}

	p, err := sdk.RawParams(raw)
	if err != nil {
		return nil, shared.NewUsageError("--data must be a JSON object", err)
	}
	if p == nil {
		p = sdk.Params{}
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, shared.NewUsageError(fmt.Sprintf("invalid parameter %q", pair), fmt.Errorf("expected key=value"))
		}
		p[k] = v
	}
	return p, nil
}
