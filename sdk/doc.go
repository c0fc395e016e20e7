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

// Package sdk is a client for the DingTalk open platform HTTP API.
//
// # Quick Start
//
//	c, err := sdk.New(
//		sdk.WithCredentials(os.Getenv("DINGTALK_APP_KEY"), os.Getenv("DINGTALK_APP_SECRET")),
//		sdk.WithCorpID("ding123"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	_, err = c.SendMessage(ctx, sdk.Params{
//		"touser":  "user1|user2",
//		"agentid": "1234",
//		"msgtype": "text",
//		"text":    map[string]string{"content": "hello"},
//	})
//
// # Credentials
//
// Every call needs an access token. The client fetches it on first use, keeps
// it in a credential.Store and refreshes it lazily once it expires (ten
// seconds before the lifetime the platform declares). JSAPI tickets work the
// same way, keyed by ticket type.
//
// The default store lives in memory and is private to the Client. Processes
// that share an application should share a store (redis, sqlite, file) so they
// do not keep invalidating each other's tokens:
//
//	store, closer, err := credential.New(credential.Config{Type: credential.TypeRedis, Redis: redisCfg})
//	c, err := sdk.New(sdk.WithCredentials(key, secret), sdk.WithStore(store))
//
// Refreshes are not serialized by default: concurrent callers that find an
// expired token each fetch a new one. WithRefreshDedup(true) makes latecomers
// wait for the in-flight refresh instead.
//
// # Errors
//
//   - *ValidationError: a required field is missing; no request was sent
//   - *APIError: the platform answered with a non-zero errcode
//   - *httpclient.TransportError: the platform answered with a non-2xx status
//   - anything else: the HTTP transport failed and its error is returned as is
//
// The client never retries.
//
// # Page signing
//
// JSAPIConfig produces the config object that pages embedded in the DingTalk
// client pass to dd.config:
//
//	cfg, err := c.JSAPIConfig(ctx, "https://example.com/page?x=1#top", sdk.JSAPIOptions{})
package sdk
