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
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	internallog "github.com/tombee/dingtalk/internal/log"
	"github.com/tombee/dingtalk/internal/tracing"
	"github.com/tombee/dingtalk/pkg/httpclient"
)

// Request describes one API call.
type Request struct {
	// Method defaults to GET.
	Method string

	// Path is relative to the API host, e.g. "/user/get".
	Path string

	Query url.Values

	// Body is sent as JSON when non-nil.
	Body any

	// Multipart, when set, replaces Body with a multipart/form-data upload.
	Multipart *Multipart

	// IgnoreAccessToken suppresses the access_token query parameter.
	IgnoreAccessToken bool

	Header http.Header
}

// Multipart is a single-file form upload.
type Multipart struct {
	Field    string
	Filename string
	Reader   io.Reader

	// Fields are extra form values sent alongside the file.
	Fields map[string]string
}

// Response is a successful (errcode 0) API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Get returns the value at a gjson path, e.g. "user_info.nick".
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// Map decodes the body into a generic map.
func (r *Response) Map() (map[string]any, error) {
	var m map[string]any
	if err := r.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get issues a GET request with the access token attached.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post issues a JSON POST request with the access token attached.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Query: query, Body: body})
}

// Upload posts a single file as multipart/form-data.
func (c *Client) Upload(ctx context.Context, path string, query url.Values, field, filename string, r io.Reader) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:    http.MethodPost,
		Path:      path,
		Query:     query,
		Multipart: &Multipart{Field: field, Filename: filename, Reader: r},
	})
}

// Do sends req and unwraps the errcode envelope. A non-zero errcode yields an
// *APIError; a non-2xx status yields an *httpclient.TransportError; transport
// failures are returned unchanged.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.Path == "" {
		return nil, &ValidationError{Field: "path", Message: "request path is required"}
	}
	if c.isClosed() {
		return nil, ErrClosed
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	ctx, correlationID := tracing.EnsureContext(ctx)
	logger := internallog.WithCorrelationID(c.logger, correlationID.String())
	ctx, span := c.tracer.Start(ctx, "dingtalk.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("dingtalk.path", req.Path),
		))

	start := time.Now()
	resp, err := c.do(ctx, logger, method, req)
	c.instruments.recordRequest(ctx, req.Path, err, time.Since(start))
	endSpan(span, err)
	return resp, err
}

func (c *Client) do(ctx context.Context, logger *slog.Logger, method string, req *Request) (*Response, error) {
	query := url.Values{}
	for k, v := range req.Query {
		query[k] = append([]string(nil), v...)
	}
	if !req.IgnoreAccessToken {
		token, err := c.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		query.Set("access_token", token)
	}

	target, err := c.buildURL(req.Path, query)
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.WarnContext(ctx, "dingtalk request failed",
			slog.String("method", method),
			slog.String("path", req.Path),
			internallog.Error(err))
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	internallog.Trace(ctx, logger, "dingtalk response",
		slog.String("path", req.Path),
		slog.Int("status", httpResp.StatusCode),
		slog.Int("bytes", len(data)))

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, httpclient.NewStatusError(httpResp, data)
	}

	if err := checkEnvelope(req.Path, data); err != nil {
		logger.DebugContext(ctx, "dingtalk api error",
			slog.String("path", req.Path),
			slog.Any("error", err))
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// checkEnvelope turns a non-zero errcode into an *APIError. Bodies without an
// errcode field count as success.
func checkEnvelope(path string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("dingtalk %s: response is not valid JSON", path)
	}

	code := gjson.GetBytes(data, "errcode")
	if !code.Exists() || code.Int() == 0 {
		return nil
	}
	return &APIError{
		Code:    int(code.Int()),
		Message: gjson.GetBytes(data, "errmsg").String(),
		Path:    path,
		Data:    data,
	}
}

// buildURL joins the base (host or proxy) with path and query.
func (c *Client) buildURL(path string, query url.Values) (string, error) {
	base := c.host
	if c.proxy != "" && c.useProxy(path) {
		base = c.proxy
	}

	u, err := url.Parse(base + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", &ValidationError{Field: "path", Message: fmt.Sprintf("invalid path %q", path)}
	}
	if len(query) > 0 {
		merged := u.Query()
		for k, v := range query {
			merged[k] = v
		}
		u.RawQuery = merged.Encode()
	}
	return u.String(), nil
}

func (c *Client) useProxy(path string) bool {
	p := strings.TrimLeft(path, "/")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	for _, pattern := range c.proxyPaths {
		if ok, _ := doublestar.Match(strings.TrimLeft(pattern, "/"), p); ok {
			return true
		}
	}
	return false
}

func encodeBody(req *Request) (io.Reader, string, error) {
	if req.Multipart != nil {
		return encodeMultipart(req.Multipart)
	}
	if req.Body == nil {
		return nil, "", nil
	}
	switch b := req.Body.(type) {
	case []byte:
		return bytes.NewReader(b), "application/json", nil
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", nil
	}
	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

func encodeMultipart(m *Multipart) (io.Reader, string, error) {
	if m.Reader == nil {
		return nil, "", &ValidationError{Field: "media", Message: "file content is required"}
	}
	field := m.Field
	if field == "" {
		field = "media"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write form field: %w", err)
		}
	}
	part, err := w.CreateFormFile(field, m.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, m.Reader); err != nil {
		return nil, "", fmt.Errorf("copy upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
