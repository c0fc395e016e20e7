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
	"encoding/json"
)

// MessageResult is returned by SendMessage.
type MessageResult struct {
	MessageID    string `json:"messageId"`
	InvalidUser  string `json:"invaliduser,omitempty"`
	InvalidParty string `json:"invalidparty,omitempty"`
}

// UserInfo is the identity behind a login code.
type UserInfo struct {
	UserID   string `json:"userid"`
	DeviceID string `json:"deviceId,omitempty"`
	IsSys    bool   `json:"is_sys"`
	SysLevel int    `json:"sys_level"`
}

// User is a member of the corp directory.
type User struct {
	UserID     string  `json:"userid"`
	UnionID    string  `json:"unionid,omitempty"`
	Name       string  `json:"name"`
	Mobile     string  `json:"mobile,omitempty"`
	Email      string  `json:"email,omitempty"`
	Position   string  `json:"position,omitempty"`
	JobNumber  string  `json:"jobnumber,omitempty"`
	Avatar     string  `json:"avatar,omitempty"`
	Department []int64 `json:"department,omitempty"`
	Active     bool    `json:"active"`
	IsAdmin    bool    `json:"isAdmin"`
	IsBoss     bool    `json:"isBoss"`
}

// Department is a node of the org tree.
type Department struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ParentID        int64  `json:"parentid"`
	CreateDeptGroup bool   `json:"createDeptGroup"`
	AutoAddUser     bool   `json:"autoAddUser"`
}

// Callback is an event subscription.
type Callback struct {
	Tags   []string `json:"call_back_tag"`
	Token  string   `json:"token"`
	AESKey string   `json:"aes_key"`
	URL    string   `json:"url"`
}

// SendMessage sends a work notification. msg must carry touser or toparty,
// agentid, msgtype and the body named by msgtype.
func (c *Client) SendMessage(ctx context.Context, msg Params) (*MessageResult, error) {
	var out MessageResult
	if err := c.callInto(ctx, "message.send", msg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendToConversation sends a message to a group chat.
func (c *Client) SendToConversation(ctx context.Context, msg Params) (*Response, error) {
	return c.Call(ctx, "message.send_to_conversation", msg)
}

// MessageStatus reports who has read a sent message.
func (c *Client) MessageStatus(ctx context.Context, messageID string) (*Response, error) {
	return c.Call(ctx, "message.list_status", Params{"messageId": messageID})
}

// SendCorpMessage queues a corp conversation message and returns its task ID.
func (c *Client) SendCorpMessage(ctx context.Context, msg Params) (int64, error) {
	var out struct {
		TaskID int64 `json:"task_id"`
	}
	if err := c.callInto(ctx, "message.corp_async_send", msg, &out); err != nil {
		return 0, err
	}
	return out.TaskID, nil
}

// CorpMessageResult reports delivery of a queued corp message.
func (c *Client) CorpMessageResult(ctx context.Context, agentID string, taskID int64) (*Response, error) {
	return c.Call(ctx, "message.corp_send_result", Params{"agent_id": agentID, "task_id": taskID})
}

// GetUserInfo resolves a micro-app login code.
func (c *Client) GetUserInfo(ctx context.Context, code string) (*UserInfo, error) {
	var out UserInfo
	if err := c.callInto(ctx, "user.get_user_info", Params{"code": code}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser returns the directory entry for userID.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var out User
	if err := c.callInto(ctx, "user.get", Params{"userid": userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns the members of a department.
func (c *Client) ListUsers(ctx context.Context, departmentID int64) ([]User, error) {
	var out struct {
		UserList []User `json:"userlist"`
	}
	if err := c.callInto(ctx, "user.list", Params{"department_id": departmentID}, &out); err != nil {
		return nil, err
	}
	return out.UserList, nil
}

// UserIDByMobile looks a user up by phone number.
func (c *Client) UserIDByMobile(ctx context.Context, mobile string) (string, error) {
	return c.callString(ctx, "user.get_by_mobile", Params{"mobile": mobile}, "userid")
}

// UserIDByUnionID looks a user up by union ID.
func (c *Client) UserIDByUnionID(ctx context.Context, unionID string) (string, error) {
	return c.callString(ctx, "user.get_by_unionid", Params{"unionid": unionID}, "userid")
}

// ListDepartments returns the sub-departments of parentID. An empty parentID
// lists from the root.
func (c *Client) ListDepartments(ctx context.Context, parentID string, recursive bool) ([]Department, error) {
	p := Params{"fetch_child": recursive}
	if parentID != "" {
		p["id"] = parentID
	}
	var out struct {
		Department []Department `json:"department"`
	}
	if err := c.callInto(ctx, "department.list", p, &out); err != nil {
		return nil, err
	}
	return out.Department, nil
}

// GetDepartment returns one department.
func (c *Client) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	var out Department
	if err := c.callInto(ctx, "department.get", Params{"id": id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDepartment creates a department and returns its ID. extra may set
// optional fields such as order or deptHiding.
func (c *Client) CreateDepartment(ctx context.Context, name string, parentID int64, extra Params) (int64, error) {
	p := Params{"name": name, "parentid": parentID}
	for k, v := range extra {
		p[k] = v
	}
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.callInto(ctx, "department.create", p, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// UpdateDepartment changes the fields in p of department id.
func (c *Client) UpdateDepartment(ctx context.Context, id int64, p Params) error {
	body := Params{"id": id}
	for k, v := range p {
		body[k] = v
	}
	_, err := c.Call(ctx, "department.update", body)
	return err
}

// DeleteDepartment removes an empty department.
func (c *Client) DeleteDepartment(ctx context.Context, id int64) error {
	_, err := c.Call(ctx, "department.delete", Params{"id": id})
	return err
}

// RegisterCallback subscribes cb.URL to the events in cb.Tags.
func (c *Client) RegisterCallback(ctx context.Context, cb Callback) error {
	return c.callStruct(ctx, "callback.register", cb)
}

// UpdateCallback replaces the registered callback.
func (c *Client) UpdateCallback(ctx context.Context, cb Callback) error {
	return c.callStruct(ctx, "callback.update", cb)
}

// GetCallback returns the registered callback.
func (c *Client) GetCallback(ctx context.Context) (*Callback, error) {
	var out Callback
	if err := c.callInto(ctx, "callback.get", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCallback(ctx context.Context) error {
	_, err := c.Call(ctx, "callback.delete", nil)
	return err
}

// CallbackFailures lists events the platform could not deliver.
func (c *Client) CallbackFailures(ctx context.Context) (*Response, error) {
	return c.Call(ctx, "callback.failed_result", nil)
}

// SSOUserInfo resolves an admin SSO code. The client must be in SSO mode.
func (c *Client) SSOUserInfo(ctx context.Context, code string) (*Response, error) {
	return c.Call(ctx, "sso.get_user_info", Params{"code": code})
}

func (c *Client) callInto(ctx context.Context, name string, p Params, out any) error {
	resp, err := c.Call(ctx, name, p)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) callString(ctx context.Context, name string, p Params, field string) (string, error) {
	resp, err := c.Call(ctx, name, p)
	if err != nil {
		return "", err
	}
	return resp.Get(field).String(), nil
}

func (c *Client) callStruct(ctx context.Context, name string, v any) error {
	p, err := toParams(v)
	if err != nil {
		return err
	}
	_, err = c.Call(ctx, name, p)
	return err
}

// RawParams decodes a JSON object into Params, keeping numbers exact.
func RawParams(data []byte) (Params, error) {
	if len(data) == 0 {
		return Params{}, nil
	}
	return toParams(json.RawMessage(data))
}
