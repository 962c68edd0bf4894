// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

// Runtime telemetry counters, emitted through the process metrics
// sink. All counters are monotonic.
var (
	// MetricFiberStartCount counts fibers created, root and forked.
	MetricFiberStartCount = []string{"fiber", "start", "count"}
	// MetricFiberDoneCount counts fibers that reached a terminal Exit.
	MetricFiberDoneCount = []string{"fiber", "done", "count"}
	// MetricFiberFailureCount counts non-interrupt failure Exits.
	MetricFiberFailureCount = []string{"fiber", "failure", "count"}
	// MetricFiberInterruptCount counts interrupt requests that won the
	// request CAS.
	MetricFiberInterruptCount = []string{"fiber", "interrupt", "request", "count"}
	// MetricFiberInterruptedCount counts Exits that reflect
	// interruption.
	MetricFiberInterruptedCount = []string{"fiber", "interrupted", "count"}
	// MetricFiberUnobservedCount counts failure Exits delivered to the
	// failure sink because no observer was registered.
	MetricFiberUnobservedCount = []string{"fiber", "unobserved", "count"}
	// MetricBlockingSpawnCount counts blocking workers spawned.
	MetricBlockingSpawnCount = []string{"fiber", "blocking", "spawn", "count"}
	// MetricBlockingReuseCount counts blocking calls served by a
	// parked worker.
	MetricBlockingReuseCount = []string{"fiber", "blocking", "reuse", "count"}
)

// TelemetryLabel is a structured label key shared between metrics and
// log records.
type TelemetryLabel string

var (
	LabelFiberID TelemetryLabel = "fiber_id"
	LabelCause   TelemetryLabel = "cause"
	LabelStatus  TelemetryLabel = "status"
)

// M builds a metrics label.
func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

// L builds a slog attribute.
func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}
