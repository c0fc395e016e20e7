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

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/internal/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and validate configuration",
		Long: `View and validate the CLI configuration.

Subcommands:
  show     - Display the effective configuration
  path     - Show config file location
  validate - Check the configuration without contacting DingTalk`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(newConfigValidateCommand())

	// If no subcommand provided, default to 'show'
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, args)
	}

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the configuration after defaults and DINGTALK_* overrides.

The app secret is masked. Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load and validate the configuration, including DINGTALK_* overrides.
Exits with status 3 when the configuration is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig()
			if err != nil {
				return err
			}

			var warnings []string
			if err := cfg.RequireCredentials(); err != nil {
				warnings = append(warnings, err.Error())
			}
			if cfg.App.AgentID == "" {
				warnings = append(warnings, "app.agent_id is not set; send needs --agent")
			}

			result := struct {
				Valid    bool     `json:"valid"`
				Warnings []string `json:"warnings,omitempty"`
			}{Valid: true, Warnings: warnings}

			return shared.Print(cmd, result, func(w io.Writer) error {
				fmt.Fprintln(w, shared.RenderOK("configuration is valid"))
				for _, warning := range warnings {
					fmt.Fprintln(w, shared.RenderWarn(warning))
				}
				return nil
			})
		},
	}
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	masked := *cfg
	masked.App.Secret = maskSecret(cfg.App.Secret)
	masked.Store.Redis.Password = maskSecret(cfg.Store.Redis.Password)

	// Round trip through YAML so JSON output uses the file's key names.
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return shared.Print(cmd, doc, func(w io.Writer) error {
		source := path
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			source += " (not found, showing defaults)"
		}
		fmt.Fprintln(w, shared.Header.Render("Configuration: "+source))
		fmt.Fprintln(w)
		_, err := w.Write(data)
		return err
	})
}

func configPath() (string, error) {
	if path := shared.GetConfigPath(); path != "" {
		return path, nil
	}
	if path := os.Getenv("DINGTALK_CONFIG"); path != "" {
		return path, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine config path: %w", err)
	}
	return path, nil
}

// maskSecret keeps keychain references and the first and last four characters.
func maskSecret(secret string) string {
	if secret == "" || strings.HasPrefix(secret, config.KeychainPrefix) {
		return secret
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
