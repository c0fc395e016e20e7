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

// Package diagnostics implements the doctor and metrics commands.
package diagnostics

import (
	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/shared"
)

// NewMetricsCommand creates the metrics command.
func NewMetricsCommand() *cobra.Command {
	var tickets []string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print client metrics in Prometheus format",
		Long: `Obtain an access token (and any --ticket types) through the configured
credential store, then print the request, refresh and cache-hit metrics
recorded by this process in Prometheus text format.

Useful to check whether a shared store (redis, sqlite, file) is serving
cached credentials: a cache hit shows up in dingtalk_credential_cache_hits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := shared.NewEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			if _, err := env.Client.AccessTokenInfo(ctx); err != nil {
				return err
			}
			for _, t := range tickets {
				if _, err := env.Client.JSAPITicketInfo(ctx, t); err != nil {
					return err
				}
			}
			return env.Telemetry.WriteMetrics(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&tickets, "ticket", nil, "Also fetch these ticket types")
	return cmd
}
