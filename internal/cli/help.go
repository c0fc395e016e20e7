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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tombee/dingtalk/internal/commands/shared"
)

// CommandInfo describes a command for machine-readable help.
type CommandInfo struct {
	Name        string     `json:"name"`
	Short       string     `json:"short"`
	Long        string     `json:"long,omitempty"`
	Usage       string     `json:"usage"`
	Examples    string     `json:"examples,omitempty"`
	Flags       []FlagInfo `json:"flags,omitempty"`
	Subcommands []string   `json:"subcommands,omitempty"`
}

// FlagInfo describes one flag.
type FlagInfo struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Type      string `json:"type"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
}

// helpOutput is the --json form of help.
type helpOutput struct {
	shared.JSONResponse
	Commands    []CommandInfo `json:"commands,omitempty"`
	Command     *CommandInfo  `json:"command,omitempty"`
	GlobalFlags []FlagInfo    `json:"global_flags"`
}

// NewHelpCommand replaces cobra's help command with one that also emits JSON.
func NewHelpCommand(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		Long: `Show help for the CLI or one command. With --json (or --jq) the
command tree, flags and examples are printed as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := root
			if len(args) > 0 {
				found, _, err := root.Find(args)
				if err != nil || found == root {
					return shared.NewUsageError(fmt.Sprintf("unknown command %q", args[0]), nil)
				}
				target = found
			}

			if !shared.GetJSON() {
				target.SetOut(cmd.OutOrStdout())
				return target.Help()
			}

			out := helpOutput{
				JSONResponse: shared.JSONResponse{Version: "1.0", Command: "help", Success: true},
				GlobalFlags:  flagInfo(root.PersistentFlags()),
			}
			if target == root {
				for _, c := range root.Commands() {
					if !c.Hidden && c.Name() != "help" {
						out.Commands = append(out.Commands, commandInfo(c))
					}
				}
			} else {
				info := commandInfo(target)
				out.Command = &info
				out.Command.Name = target.CommandPath()
			}
			return shared.Print(cmd, out, nil)
		},
	}
}

func commandInfo(c *cobra.Command) CommandInfo {
	info := CommandInfo{
		Name:     c.Name(),
		Short:    c.Short,
		Long:     c.Long,
		Usage:    c.UseLine(),
		Examples: c.Example,
		Flags:    flagInfo(c.LocalNonPersistentFlags()),
	}
	for _, sub := range c.Commands() {
		if !sub.Hidden {
			info.Subcommands = append(info.Subcommands, sub.Name())
		}
	}
	return info
}

func flagInfo(fs *pflag.FlagSet) []FlagInfo {
	flags := []FlagInfo{}
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		flags = append(flags, FlagInfo{
			Name:      f.Name,
			Shorthand: f.Shorthand,
			Type:      f.Value.Type(),
			Usage:     f.Usage,
			Default:   f.DefValue,
		})
	})
	return flags
}
