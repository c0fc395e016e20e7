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
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/dingtalk/pkg/credential"
	"github.com/tombee/dingtalk/pkg/httpclient"
)

// Request outcomes recorded on dingtalk.client.requests.
const (
	outcomeOK         = "ok"
	outcomeAPIError   = "api_error"
	outcomeHTTPError  = "http_error"
	outcomeTransport  = "transport_error"
	outcomeValidation = "validation_error"
)

type instruments struct {
	requests  metric.Int64Counter
	duration  metric.Float64Histogram
	refreshes metric.Int64Counter
	cacheHits metric.Int64Counter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	requests, err := meter.Int64Counter("dingtalk.client.requests",
		metric.WithDescription("DingTalk API requests by path and outcome"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("dingtalk.client.request.duration",
		metric.WithDescription("DingTalk API request latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	refreshes, err := meter.Int64Counter("dingtalk.credential.refreshes",
		metric.WithDescription("Access token and ticket fetches by kind and outcome"))
	if err != nil {
		return nil, err
	}
	cacheHits, err := meter.Int64Counter("dingtalk.credential.cache_hits",
		metric.WithDescription("Credential lookups served from the store"))
	if err != nil {
		return nil, err
	}
	return &instruments{requests: requests, duration: duration, refreshes: refreshes, cacheHits: cacheHits}, nil
}

func (i *instruments) recordRequest(ctx context.Context, path string, err error, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("outcome", outcomeOf(err)),
	)
	i.requests.Add(ctx, 1, attrs)
	i.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (i *instruments) recordRefresh(ctx context.Context, key credential.Key, err error) {
	i.refreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(key.Kind)),
		attribute.String("outcome", outcomeOf(err)),
	))
}

func (i *instruments) recordCacheHit(ctx context.Context, key credential.Key) {
	i.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(key.Kind))))
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeOK
	}
	var (
		apiErr   *APIError
		valErr   *ValidationError
		transErr *httpclient.TransportError
	)
	switch {
	case errors.As(err, &apiErr):
		return outcomeAPIError
	case errors.As(err, &valErr):
		return outcomeValidation
	case errors.As(err, &transErr):
		return outcomeHTTPError
	default:
		return outcomeTransport
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			span.SetAttributes(attribute.Int("dingtalk.errcode", apiErr.Code))
		}
	}
	span.End()
}
