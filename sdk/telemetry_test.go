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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTelemetryClient(t *testing.T, fake *fakeDingTalk) (*Client, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	c := newTestClient(t, fake, newFakeClock(), WithTracerProvider(tp), WithMeterProvider(mp))
	return c, recorder, reader
}

// counterTotal sums an int64 counter, optionally filtered by one attribute.
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string, attr ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if len(attr) > 0 {
					if v, ok := dp.Attributes.Value(attr[0].Key); !ok || v != attr[0].Value {
						continue
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}

func TestTelemetry_Spans(t *testing.T) {
	fake := newFakeDingTalk(t)
	c, recorder, _ := newTelemetryClient(t, fake)

	_, err := c.Get(context.Background(), "/user/get", nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	// gettoken request, refresh, user/get request
	assert.ElementsMatch(t, []string{"dingtalk.request", "dingtalk.credential.refresh", "dingtalk.request"}, names)

	var refresh, outer sdktrace.ReadOnlySpan
	for _, s := range spans {
		switch {
		case s.Name() == "dingtalk.credential.refresh":
			refresh = s
		case s.Name() == "dingtalk.request" && hasAttr(s, attribute.String("dingtalk.path", "/user/get")):
			outer = s
		}
	}
	require.NotNil(t, refresh)
	require.NotNil(t, outer)
	assert.Equal(t, outer.SpanContext().SpanID(), refresh.Parent().SpanID())
}

func TestTelemetry_APIErrorSpan(t *testing.T) {
	fake := newFakeDingTalk(t)
	fake.handle("/user/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"errcode": 60121, "errmsg": "user not found"})
	})
	c, recorder, reader := newTelemetryClient(t, fake)

	_, err := c.Get(context.Background(), "/user/get", nil)
	require.Error(t, err)

	var found bool
	for _, s := range recorder.Ended() {
		if s.Name() == "dingtalk.request" && hasAttr(s, attribute.String("dingtalk.path", "/user/get")) {
			found = true
			assert.Equal(t, codes.Error, s.Status().Code)
			assert.True(t, hasAttr(s, attribute.Int("dingtalk.errcode", 60121)))
		}
	}
	assert.True(t, found)
	assert.Equal(t, int64(1), counterTotal(t, reader, "dingtalk.client.requests", attribute.String("outcome", "api_error")))
}

func TestTelemetry_Metrics(t *testing.T) {
	fake := newFakeDingTalk(t)
	c, _, reader := newTelemetryClient(t, fake)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Get(ctx, "/user/get", nil)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(4), counterTotal(t, reader, "dingtalk.client.requests"))
	assert.Equal(t, int64(3), counterTotal(t, reader, "dingtalk.client.requests", attribute.String("path", "/user/get")))
	assert.Equal(t, int64(1), counterTotal(t, reader, "dingtalk.credential.refreshes", attribute.String("outcome", "ok")))
	assert.Equal(t, int64(2), counterTotal(t, reader, "dingtalk.credential.cache_hits", attribute.String("kind", "access_token")))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, "ok", outcomeOf(nil))
	assert.Equal(t, "api_error", outcomeOf(&APIError{Code: 1}))
	assert.Equal(t, "validation_error", outcomeOf(missingField("x")))
	assert.Equal(t, "transport_error", outcomeOf(context.DeadlineExceeded))
}

func hasAttr(s sdktrace.ReadOnlySpan, want attribute.KeyValue) bool {
	for _, kv := range s.Attributes() {
		if kv.Key == want.Key && kv.Value == want.Value {
			return true
		}
	}
	return false
}
