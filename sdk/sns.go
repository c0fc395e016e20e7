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

package sdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// SNSUser is the identity returned by a login code exchange.
type SNSUser struct {
	Nick    string `json:"nick"`
	OpenID  string `json:"openid"`
	UnionID string `json:"unionid"`
}

// GetUserInfoByCode exchanges a temporary auth code from QR or password login
// for the user's identity. The request is signed with the SNS app secret
// rather than an access token.
func (c *Client) GetUserInfoByCode(ctx context.Context, tmpAuthCode string) (*SNSUser, error) {
	if tmpAuthCode == "" {
		return nil, missingField("tmp_auth_code")
	}

	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	sig, err := SignatureHMAC(ts, c.snsAppSecret, SHA256, Base64)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/sns/getuserinfo_bycode",
		Query: url.Values{
			"accessKey": {c.snsAppID},
			"timestamp": {ts},
			"signature": {sig},
		},
		Body:              map[string]string{"tmp_auth_code": tmpAuthCode},
		IgnoreAccessToken: true,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		UserInfo SNSUser `json:"user_info"`
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out.UserInfo, nil
}

// QRConnectURL returns the scan-to-login page that redirects to redirectURI
// with a temporary auth code and state.
func (c *Client) QRConnectURL(redirectURI, state string) (string, error) {
	if redirectURI == "" {
		return "", missingField("redirect_uri")
	}
	q := url.Values{
		"appid":         {c.snsAppID},
		"response_type": {"code"},
		"scope":         {"snsapi_login"},
		"state":         {state},
		"redirect_uri":  {redirectURI},
	}
	return c.host + "/connect/qrconnect?" + q.Encode(), nil
}
