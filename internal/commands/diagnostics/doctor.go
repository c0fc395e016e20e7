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

package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/internal/config"
)

// DoctorResult contains the overall health check results
type DoctorResult struct {
	ConfigPath      string        `json:"config_path"`
	ConfigExists    bool          `json:"config_exists"`
	ConfigValid     bool          `json:"config_valid"`
	ConfigError     string        `json:"config_error,omitempty"`
	Store           string        `json:"store,omitempty"`
	Checks          []CheckResult `json:"checks"`
	Recommendations []string      `json:"recommendations"`
	OverallHealthy  bool          `json:"overall_healthy"`
}

// CheckResult is one live check against the platform.
type CheckResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewDoctorCommand creates the doctor command
func NewDoctorCommand() *cobra.Command {
	var tickets []string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and credentials",
		Long: `Check that the configuration is valid, the credential store opens and
DingTalk issues an access token for the configured app.

With --ticket the named ticket types are fetched as well. Exits with
status 1 when any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			result := runDoctor(ctx, tickets)
			err := shared.Print(cmd, result, func(w io.Writer) error {
				renderDoctor(w, result)
				return nil
			})
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				return &shared.ExitError{Code: shared.ExitFailure, Message: "health check found issues"}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tickets, "ticket", nil, "Also fetch these ticket types")
	return cmd
}

func runDoctor(ctx context.Context, tickets []string) DoctorResult {
	result := DoctorResult{
		Checks:          []CheckResult{},
		Recommendations: []string{},
		OverallHealthy:  true,
	}
	fail := func(recommendation string) {
		result.OverallHealthy = false
		if recommendation != "" {
			result.Recommendations = append(result.Recommendations, recommendation)
		}
	}

	result.ConfigPath = shared.GetConfigPath()
	if result.ConfigPath == "" {
		result.ConfigPath = os.Getenv("DINGTALK_CONFIG")
	}
	if result.ConfigPath == "" {
		if path, err := config.ConfigPath(); err == nil {
			result.ConfigPath = path
		}
	}
	if _, err := os.Stat(result.ConfigPath); err == nil {
		result.ConfigExists = true
	}

	cfg, err := shared.LoadConfig()
	if err != nil {
		result.ConfigError = err.Error()
		fail("Fix the configuration errors above or run 'dingtalk configure'.")
		return result
	}
	result.ConfigValid = true
	result.Store = cfg.Store.Type

	if err := cfg.RequireCredentials(); err != nil {
		result.ConfigError = err.Error()
		if errors.Is(err, config.ErrNoCredentials) {
			fail("Run 'dingtalk configure' or set DINGTALK_APP_KEY and DINGTALK_APP_SECRET.")
		} else {
			fail("Check that the keychain entry for the app secret exists.")
		}
		return result
	}

	env, err := shared.NewEnvFromConfig(ctx, cfg)
	if err != nil {
		result.Checks = append(result.Checks, CheckResult{Name: "credential store", Error: err.Error()})
		fail(fmt.Sprintf("The %s credential store could not be opened; try --store memory to rule it out.", cfg.Store.Type))
		return result
	}
	defer env.Close(ctx)
	result.Checks = append(result.Checks, CheckResult{Name: "credential store", OK: true})

	check := func(name string, fn func() error) bool {
		start := time.Now()
		err := fn()
		c := CheckResult{Name: name, OK: err == nil, Latency: time.Since(start).Round(time.Millisecond).String()}
		if err != nil {
			c.Error = err.Error()
		}
		result.Checks = append(result.Checks, c)
		return err == nil
	}

	if !check("access token", func() error {
		_, err := env.Client.RefreshAccessToken(ctx)
		return err
	}) {
		fail("DingTalk rejected the app credentials or is unreachable; check app.key, app.secret and api.host.")
		return result
	}

	for _, t := range tickets {
		if !check(t+" ticket", func() error {
			_, err := env.Client.JSAPITicketInfo(ctx, t)
			return err
		}) {
			fail(fmt.Sprintf("The app may not be allowed to issue %s tickets.", t))
		}
	}

	if cfg.App.AgentID == "" {
		result.Recommendations = append(result.Recommendations, "Set app.agent_id to send messages without --agent.")
	}
	return result
}

func renderDoctor(w io.Writer, result DoctorResult) {
	fmt.Fprintln(w, shared.Header.Render("DingTalk Health Check"))
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	status := "Not found (using defaults and environment)"
	if result.ConfigExists {
		status = "Found"
	}
	fmt.Fprintf(w, "  Path: %s\n", result.ConfigPath)
	fmt.Fprintf(w, "  Status: %s\n", status)
	if result.Store != "" {
		fmt.Fprintf(w, "  Store: %s\n", result.Store)
	}
	if result.ConfigError != "" {
		fmt.Fprintf(w, "  Error: %s\n", result.ConfigError)
	}
	fmt.Fprintln(w)

	if len(result.Checks) > 0 {
		fmt.Fprintln(w, "Checks:")
		for _, c := range result.Checks {
			line := c.Name
			if c.Latency != "" {
				line += " (" + c.Latency + ")"
			}
			if c.OK {
				fmt.Fprintln(w, "  "+shared.RenderOK(line))
			} else {
				fmt.Fprintln(w, "  "+shared.RenderError(line+": "+c.Error))
			}
		}
		fmt.Fprintln(w)
	}

	if len(result.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
		fmt.Fprintln(w)
	}

	if result.OverallHealthy {
		fmt.Fprintln(w, "Overall Status: Healthy")
	} else {
		fmt.Fprintln(w, "Overall Status: Issues Found")
	}
}
