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

// Package setup implements the interactive configure wizard.
package setup

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/cli/prompt"
	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/internal/config"
	"github.com/tombee/dingtalk/pkg/credential"
)

var storeTypes = []string{
	string(credential.TypeSQLite),
	string(credential.TypeFile),
	string(credential.TypeMemory),
	string(credential.TypeRedis),
	string(credential.TypeKeychain),
}

// newPrompter is replaced in tests.
var newPrompter = func() prompt.Prompter {
	return prompt.NewSurveyPrompter(!shared.IsNonInteractive())
}

// NewCommand creates the configure command
func NewCommand() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Interactively write the configuration file",
		Long: `Prompt for the app credentials and credential store and write them to the
configuration file. Existing values are offered as defaults.

The app secret can be kept in the OS keychain instead of the file. With
--verify an access token is fetched with the new settings before saving.

In CI or other non-interactive shells use DINGTALK_* variables instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter()
			if !p.IsInteractive() {
				return shared.NewUsageError("configure needs an interactive terminal; set DINGTALK_APP_KEY and DINGTALK_APP_SECRET instead", prompt.ErrNonInteractive)
			}

			cfg, err := shared.LoadConfigOrInit()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			secret, err := Run(ctx, p, cfg)
			if err != nil {
				return err
			}

			if verify {
				if err := verifyCredentials(ctx, cfg, secret); err != nil {
					return err
				}
			}

			if err := config.Save(shared.GetConfigPath(), cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if !shared.GetQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("configuration saved"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Fetch an access token before saving")
	return cmd
}

// Run walks through the prompts and updates cfg. It returns the plain app
// secret, which cfg may only reference when it went to the keychain.
func Run(ctx context.Context, p prompt.Prompter, cfg *config.Config) (string, error) {
	key, err := p.String(ctx, "App key", cfg.App.Key, prompt.Required)
	if err != nil {
		return "", err
	}

	existing := ""
	if key == cfg.App.Key {
		if err := cfg.ResolveSecrets(); err == nil {
			existing = cfg.App.Secret
		}
	}
	msg := "App secret"
	if existing != "" {
		msg += " (leave empty to keep the current one)"
	}
	secret, err := p.Secret(ctx, msg, prompt.ValidateString)
	if err != nil {
		return "", err
	}
	if secret == "" {
		secret = existing
	}
	if secret == "" {
		return "", shared.NewUsageError("app secret is required", nil)
	}

	useKeychain, err := p.Bool(ctx, "Store the app secret in the OS keychain?", true)
	if err != nil {
		return "", err
	}
	cfg.App.Key = key
	cfg.App.Secret = secret
	if useKeychain {
		if err := credential.SetSecret(config.SecretName(key), secret); err != nil {
			return "", err
		}
		cfg.App.Secret = config.KeychainPrefix
	}

	if cfg.App.CorpID, err = p.String(ctx, "Corp ID (optional)", cfg.App.CorpID, prompt.ValidateString); err != nil {
		return "", err
	}
	if cfg.App.AgentID, err = p.String(ctx, "Agent ID for sending messages (optional)", cfg.App.AgentID, prompt.ValidateString); err != nil {
		return "", err
	}
	sso := false
	if cfg.App.CorpID != "" {
		if sso, err = p.Bool(ctx, "Issue tokens through SSO (/sso/gettoken)?", cfg.App.SSO); err != nil {
			return "", err
		}
	}
	cfg.App.SSO = sso

	def := cfg.Store.Type
	if !slices.Contains(storeTypes, def) {
		def = storeTypes[0]
	}
	storeType, err := p.Enum(ctx, "Credential store", storeTypes, def)
	if err != nil {
		return "", err
	}
	if storeType != cfg.Store.Type {
		cfg.Store.Type = storeType
		cfg.Store.Path = ""
	}
	if storeType == string(credential.TypeRedis) {
		addr := cfg.Store.Redis.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		if cfg.Store.Redis.Addr, err = p.String(ctx, "Redis address", addr, prompt.ValidateHostPort); err != nil {
			return "", err
		}
	}

	return secret, nil
}

func verifyCredentials(ctx context.Context, cfg *config.Config, secret string) error {
	check := *cfg
	check.App.Secret = secret
	env, err := shared.NewEnvFromConfig(ctx, &check)
	if err != nil {
		return err
	}
	defer env.Close(ctx)

	if _, err := env.Client.RefreshAccessToken(ctx); err != nil {
		return fmt.Errorf("credentials rejected: %w", err)
	}
	return nil
}
