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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Endpoint is one row of the business endpoint table.
type Endpoint struct {
	Name   string
	Method string
	Path   string

	// Required lists fields that must be present. "a|b" accepts either.
	Required []string

	Description string
}

// Params are the fields of a table call. GET endpoints send them as query
// values, POST endpoints as a JSON object.
type Params map[string]any

var endpoints = []Endpoint{
	{"message.send", http.MethodPost, "/message/send", []string{"touser|toparty", "agentid", "msgtype"}, "Send a work notification to users or departments"},
	{"message.send_to_conversation", http.MethodPost, "/message/send_to_conversation", []string{"sender", "cid", "msgtype"}, "Send a message to a group conversation"},
	{"message.list_status", http.MethodPost, "/message/list_message_status", []string{"messageId"}, "Read and unread status of a sent message"},
	{"message.corp_async_send", http.MethodPost, "/topapi/message/corpconversation/asyncsend_v2", []string{"agent_id", "msg"}, "Send a corp conversation message asynchronously"},
	{"message.corp_send_result", http.MethodPost, "/topapi/message/corpconversation/getsendresult", []string{"agent_id", "task_id"}, "Result of an asynchronous corp message"},

	{"user.get_user_info", http.MethodGet, "/user/getuserinfo", []string{"code"}, "Resolve a login code to a user ID"},
	{"user.get", http.MethodGet, "/user/get", []string{"userid"}, "User details"},
	{"user.simple_list", http.MethodGet, "/user/simplelist", []string{"department_id"}, "User IDs and names in a department"},
	{"user.list", http.MethodGet, "/user/list", []string{"department_id"}, "User details in a department"},
	{"user.get_by_mobile", http.MethodGet, "/user/get_by_mobile", []string{"mobile"}, "User ID for a mobile number"},
	{"user.get_by_unionid", http.MethodGet, "/user/getUseridByUnionid", []string{"unionid"}, "User ID for a union ID"},
	{"user.get_admin", http.MethodGet, "/user/get_admin", nil, "Administrators of the corp"},

	{"department.list", http.MethodGet, "/department/list", nil, "Sub-departments"},
	{"department.get", http.MethodGet, "/department/get", []string{"id"}, "Department details"},
	{"department.create", http.MethodPost, "/department/create", []string{"name", "parentid"}, "Create a department"},
	{"department.update", http.MethodPost, "/department/update", []string{"id"}, "Update a department"},
	{"department.delete", http.MethodGet, "/department/delete", []string{"id"}, "Delete a department"},
	{"department.list_parents", http.MethodGet, "/department/list_parent_depts_by_dept", []string{"id"}, "Parent department chain"},

	{"callback.register", http.MethodPost, "/call_back/register_call_back", []string{"call_back_tag", "token", "aes_key", "url"}, "Register an event callback"},
	{"callback.get", http.MethodGet, "/call_back/get_call_back", nil, "Registered callback"},
	{"callback.update", http.MethodPost, "/call_back/update_call_back", []string{"call_back_tag", "token", "aes_key", "url"}, "Update the event callback"},
	{"callback.delete", http.MethodGet, "/call_back/delete_call_back", nil, "Delete the event callback"},
	{"callback.failed_result", http.MethodGet, "/call_back/get_call_back_failed_result", nil, "Events whose delivery failed"},

	{"sso.get_user_info", http.MethodGet, "/sso/getuserinfo", []string{"code"}, "Resolve an admin SSO code"},
}

var endpointIndex = func() map[string]Endpoint {
	m := make(map[string]Endpoint, len(endpoints))
	for _, e := range endpoints {
		m[e.Name] = e
	}
	return m
}()

// Endpoints returns the endpoint table sorted by name.
func Endpoints() []Endpoint {
	out := make([]Endpoint, len(endpoints))
	copy(out, endpoints)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupEndpoint finds an endpoint by name.
func LookupEndpoint(name string) (Endpoint, bool) {
	e, ok := endpointIndex[name]
	return e, ok
}

// Validate checks that every required field of e is present in p.
func (e Endpoint) Validate(p Params) error {
	for _, req := range e.Required {
		alternatives := strings.Split(req, "|")
		found := false
		for _, field := range alternatives {
			if p.has(field) {
				found = true
				break
			}
		}
		if !found {
			verr := missingField(req)
			if len(alternatives) > 1 {
				verr.Message = "one of " + strings.Join(alternatives, ", ") + " is required"
			}
			verr.Suggestion = fmt.Sprintf("%s requires %s", e.Name, strings.Join(e.Required, ", "))
			return verr
		}
	}
	return nil
}

func (p Params) has(field string) bool {
	v, ok := p[field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

// Call invokes a table endpoint by name. Missing required fields fail before
// any network activity.
func (c *Client) Call(ctx context.Context, name string, p Params) (*Response, error) {
	e, ok := LookupEndpoint(name)
	if !ok {
		return nil, &ValidationError{
			Field:      "endpoint",
			Message:    fmt.Sprintf("unknown endpoint %q", name),
			Suggestion: "run 'dingtalk endpoints' to list them",
		}
	}
	if err := e.Validate(p); err != nil {
		return nil, err
	}

	req := &Request{Method: e.Method, Path: e.Path}
	if e.Method == http.MethodGet {
		q, err := p.query()
		if err != nil {
			return nil, err
		}
		req.Query = q
	} else {
		if p == nil {
			p = Params{}
		}
		req.Body = p
	}
	return c.Do(ctx, req)
}

// query flattens p: scalars are formatted, everything else is JSON.
func (p Params) query() (url.Values, error) {
	q := make(url.Values, len(p))
	for k, v := range p {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			q.Set(k, x)
		case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
			q.Set(k, fmt.Sprint(x))
		default:
			data, err := json.Marshal(x)
			if err != nil {
				return nil, &ValidationError{Field: k, Message: fmt.Sprintf("cannot encode value: %v", err)}
			}
			q.Set(k, string(data))
		}
	}
	return q, nil
}

// toParams converts a tagged struct into Params via its JSON form.
func toParams(v any) (Params, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	var p Params
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return p, nil
}
