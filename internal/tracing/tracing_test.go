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

package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewCorrelationID(t *testing.T) {
	id := NewCorrelationID()
	if !id.IsValid() {
		t.Errorf("expected valid UUID format, got %q", id)
	}
	if len(id) != 36 {
		t.Errorf("expected length 36, got %d", len(id))
	}
}

func TestCorrelationID_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		id    CorrelationID
		valid bool
	}{
		{"valid UUID", "550e8400-e29b-41d4-a716-446655440000", true},
		{"valid UUID uppercase", "550E8400-E29B-41D4-A716-446655440000", true},
		{"empty", "", false},
		{"too short", "550e8400-e29b-41d4", false},
		{"missing hyphens", "550e8400e29b41d4a716446655440000", false},
		{"invalid characters", "550e8400-e29b-41d4-a716-44665544000g", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.IsValid(); got != tt.valid {
				t.Errorf("IsValid(%q) = %v, want %v", tt.id, got, tt.valid)
			}
		})
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, id := EnsureContext(context.Background())
	if !id.IsValid() {
		t.Fatalf("expected generated id, got %q", id)
	}
	if got := FromContextOrEmpty(ctx); got != id {
		t.Errorf("expected %q in context, got %q", id, got)
	}

	ctx2, id2 := EnsureContext(ctx)
	if id2 != id || ctx2 != ctx {
		t.Error("expected existing correlation id to be kept")
	}

	if got := FromContextOrEmpty(context.Background()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestSetup_StdoutAndMetrics(t *testing.T) {
	ctx := context.Background()
	var spans bytes.Buffer

	p, err := Setup(ctx, Config{ServiceName: "dingtalk-test", Exporter: ExporterStdout, Writer: &spans})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, span := p.TracerProvider.Tracer("test").Start(ctx, "dingtalk.request")
	span.End()

	counter, err := p.MeterProvider.Meter("test").Int64Counter("dingtalk_test_requests")
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(ctx, 2)

	var metrics bytes.Buffer
	if err := p.WriteMetrics(&metrics); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}
	if !strings.Contains(metrics.String(), "dingtalk_test_requests") {
		t.Errorf("expected counter in metrics output, got:\n%s", metrics.String())
	}

	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !strings.Contains(spans.String(), "dingtalk.request") {
		t.Errorf("expected span in stdout export, got:\n%s", spans.String())
	}
}

func TestSetup_UnknownExporter(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Exporter: "zipkin"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestSetup_OTLPExportersConstruct(t *testing.T) {
	for _, exp := range []string{ExporterOTLPHTTP, ExporterOTLPGRPC} {
		p, err := Setup(context.Background(), Config{Exporter: exp, Endpoint: "127.0.0.1:4318", Insecure: true})
		if err != nil {
			t.Fatalf("%s: Setup failed: %v", exp, err)
		}
		// Nothing was recorded, so shutdown does not need a reachable collector.
		_ = p.Shutdown(context.Background())
	}
}
