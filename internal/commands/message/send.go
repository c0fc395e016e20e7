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

// Package message implements the send command.
package message

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/sdk"
)

// NewSendCommand creates the send command.
func NewSendCommand() *cobra.Command {
	var (
		agentID string
		users   []string
		parties []string
		chatID  string
		sender  string
		text    string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a text message",
		Long: `Send a text work notification to users or departments, or with --chat
to a group conversation. The agent ID defaults to app.agent_id.`,
		Example: `  dingtalk send --to manager4220,user1 --text "deploy finished"
  dingtalk send --party 1 --agent 12345 --text "all hands at 3pm"
  dingtalk send --chat chat6a93c2... --sender manager4220 --text "hello"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shared.ValidateJQ(); err != nil {
				return err
			}
			if text == "" {
				return &sdk.ValidationError{Field: "text", Message: "required field is missing", Suggestion: "pass --text"}
			}

			ctx := cmd.Context()
			env, err := shared.NewEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			body := sdk.Params{
				"msgtype": "text",
				"text":    map[string]string{"content": text},
			}

			if chatID != "" {
				body["cid"] = chatID
				body["sender"] = sender
				resp, err := env.Client.SendToConversation(ctx, body)
				if err != nil {
					return err
				}
				return shared.PrintBody(cmd, resp.Body)
			}

			if agentID == "" {
				agentID = env.Config.App.AgentID
			}
			body["agentid"] = agentID
			if len(users) > 0 {
				body["touser"] = strings.Join(users, "|")
			}
			if len(parties) > 0 {
				body["toparty"] = strings.Join(parties, "|")
			}

			result, err := env.Client.SendMessage(ctx, body)
			if err != nil {
				return err
			}
			return shared.Print(cmd, result, func(w io.Writer) error {
				fmt.Fprintln(w, shared.RenderOK("message sent"))
				fmt.Fprintln(w, shared.RenderField("message id", result.MessageID))
				if result.InvalidUser != "" {
					fmt.Fprintln(w, shared.RenderWarn("invalid users: "+result.InvalidUser))
				}
				if result.InvalidParty != "" {
					fmt.Fprintln(w, shared.RenderWarn("invalid departments: "+result.InvalidParty))
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&agentID, "agent", "", "Agent ID of the sending micro-app")
	f.StringSliceVar(&users, "to", nil, "Recipient user IDs")
	f.StringSliceVar(&parties, "party", nil, "Recipient department IDs")
	f.StringVar(&chatID, "chat", "", "Send to this group conversation instead")
	f.StringVar(&sender, "sender", "", "Sending user ID for --chat")
	f.StringVar(&text, "text", "", "Message text")
	return cmd
}
