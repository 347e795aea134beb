// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "kodiak.graph"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)
)

// Build metrics. Instruments come from the global meter provider; with no
// SDK installed they are no-ops.
var (
	buildsCounter, _ = meter.Int64Counter("kodiak.graph.builds",
		metric.WithDescription("Number of call graph builds"),
	)
	nodesCounter, _ = meter.Int64Counter("kodiak.graph.nodes",
		metric.WithDescription("Call graph nodes created"),
	)
	edgesCounter, _ = meter.Int64Counter("kodiak.graph.edges",
		metric.WithDescription("Call graph edges created"),
	)
	excludedCounter, _ = meter.Int64Counter("kodiak.graph.calls_excluded",
		metric.WithDescription("Call sites excluded for weak resolution confidence"),
	)
	buildDuration, _ = meter.Float64Histogram("kodiak.graph.build_duration_seconds",
		metric.WithDescription("Wall time of call graph builds"),
	)
)

// startBuildSpan opens the span covering one graph build.
func startBuildSpan(ctx context.Context, files int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "graph.Build",
		trace.WithAttributes(
			attribute.Int("corpus.files", files),
		),
	)
}

// setBuildSpanResult annotates the build span with outcome counts.
func setBuildSpanResult(span trace.Span, stats BuildStats) {
	span.SetAttributes(
		attribute.Int("graph.nodes", stats.Nodes),
		attribute.Int("graph.edges", stats.Edges),
		attribute.Int("graph.total_calls", stats.TotalCalls),
		attribute.Int("graph.entry_points", stats.EntryPoints),
		attribute.Int("graph.calls_excluded", stats.CallsExcluded),
	)
}

// recordBuildMetrics records one build's counters and duration.
func recordBuildMetrics(ctx context.Context, stats BuildStats, seconds float64) {
	buildsCounter.Add(ctx, 1)
	nodesCounter.Add(ctx, int64(stats.Nodes))
	edgesCounter.Add(ctx, int64(stats.Edges))
	excludedCounter.Add(ctx, int64(stats.CallsExcluded))
	buildDuration.Record(ctx, seconds)
}
