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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/config"
	"github.com/tombee/dingtalk/internal/commands/credentials"
	"github.com/tombee/dingtalk/internal/commands/diagnostics"
	"github.com/tombee/dingtalk/internal/commands/endpoint"
	"github.com/tombee/dingtalk/internal/commands/jsapi"
	"github.com/tombee/dingtalk/internal/commands/message"
	"github.com/tombee/dingtalk/internal/commands/setup"
	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/internal/commands/user"
	"github.com/tombee/dingtalk/internal/commands/version"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dingtalk",
		Short: "DingTalk open platform client",
		Long: `dingtalk talks to the DingTalk open platform. It caches access tokens and
JSAPI tickets in a configurable credential store, signs JSAPI configs and
calls any endpoint of the built-in endpoint table.

Run 'dingtalk configure' to set up app credentials, or set
DINGTALK_APP_KEY and DINGTALK_APP_SECRET.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	shared.RegisterFlags(cmd.PersistentFlags())

	// Credentials
	cmd.AddCommand(credentials.NewTokenCommand())
	cmd.AddCommand(credentials.NewTicketCommand())

	// JSAPI and signing helpers
	cmd.AddCommand(jsapi.NewJSAPIConfigCommand())
	cmd.AddCommand(jsapi.NewNormalizeURLCommand())
	cmd.AddCommand(jsapi.NewSignCommand())

	// API access
	cmd.AddCommand(endpoint.NewCallCommand())
	cmd.AddCommand(endpoint.NewListCommand())
	cmd.AddCommand(message.NewSendCommand())
	cmd.AddCommand(user.NewUserCommand())

	// Configuration and diagnostics
	cmd.AddCommand(setup.NewCommand())
	cmd.AddCommand(config.NewConfigCommand())
	cmd.AddCommand(diagnostics.NewDoctorCommand())
	cmd.AddCommand(diagnostics.NewMetricsCommand())
	cmd.AddCommand(version.NewVersionCommand())

	cmd.SetHelpCommand(NewHelpCommand(cmd))
	return cmd
}

// Execute runs the command tree with os.Args and exits non-zero on error.
func Execute() {
	root := NewRootCommand()
	cmd, err := root.ExecuteC()
	if err != nil {
		name := root.Name()
		if cmd != nil {
			name = cmd.CommandPath()
		}
		shared.HandleExitError(name, err)
	}
}
