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

// Package credentials implements the token and ticket commands.
package credentials

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/dingtalk/internal/commands/shared"
	"github.com/tombee/dingtalk/pkg/credential"
)

// Output describes a cached credential.
type Output struct {
	Kind       string    `json:"kind"`
	Type       string    `json:"type,omitempty"`
	Value      string    `json:"value"`
	ExpireTime time.Time `json:"expire_time"`
	ExpiresIn  int64     `json:"expires_in"`
	Refreshed  bool      `json:"refreshed,omitempty"`
}

// NewTokenCommand creates the token command.
func NewTokenCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Show the current access token",
		Long: `Print a valid access token, fetching one when the stored token is
missing or expired. --refresh fetches a new token even if the stored one
is still valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shared.ValidateJQ(); err != nil {
				return err
			}
			ctx := cmd.Context()
			env, err := shared.NewEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			var tok *credential.Token
			if refresh {
				tok, err = env.Client.RefreshAccessToken(ctx)
			} else {
				tok, err = env.Client.AccessTokenInfo(ctx)
			}
			if err != nil {
				return err
			}
			return render(cmd, newOutput(credential.KindAccessToken, "", tok, refresh))
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch a new token even if the stored one is valid")
	return cmd
}

// NewTicketCommand creates the ticket command.
func NewTicketCommand() *cobra.Command {
	var ticketType string

	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Show the current JSAPI ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shared.ValidateJQ(); err != nil {
				return err
			}
			ctx := cmd.Context()
			env, err := shared.NewEnv(ctx)
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			tok, err := env.Client.JSAPITicketInfo(ctx, ticketType)
			if err != nil {
				return err
			}
			return render(cmd, newOutput(credential.KindTicket, ticketType, tok, false))
		},
	}

	cmd.Flags().StringVar(&ticketType, "type", "jsapi", "Ticket type")
	return cmd
}

func newOutput(kind credential.Kind, ticketType string, tok *credential.Token, refreshed bool) Output {
	return Output{
		Kind:       string(kind),
		Type:       ticketType,
		Value:      tok.Value,
		ExpireTime: tok.ExpireTime,
		ExpiresIn:  int64(time.Until(tok.ExpireTime).Seconds()),
		Refreshed:  refreshed,
	}
}

func render(cmd *cobra.Command, out Output) error {
	return shared.Print(cmd, out, func(w io.Writer) error {
		if !shared.GetVerbose() {
			_, err := fmt.Fprintln(w, out.Value)
			return err
		}
		fmt.Fprintln(w, shared.RenderField("value", out.Value))
		fmt.Fprintln(w, shared.RenderField("expires", out.ExpireTime.Local().Format(time.RFC3339)))
		fmt.Fprintln(w, shared.RenderField("remaining", (time.Duration(out.ExpiresIn)*time.Second).String()))
		return nil
	})
}
