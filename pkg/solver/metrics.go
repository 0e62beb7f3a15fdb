package solver

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter. Without an installed SDK both are no-ops.
var (
	tracer = otel.Tracer("lignin.solver")
	meter  = otel.Meter("lignin.solver")
)

var (
	solveLatency    metric.Float64Histogram
	solveIterations metric.Int64Histogram
	solveTotal      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments once.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		solveLatency, err = meter.Float64Histogram(
			"solver_solve_duration_seconds",
			metric.WithDescription("Duration of constraint solves"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		solveIterations, err = meter.Int64Histogram(
			"solver_iterations",
			metric.WithDescription("Outer iterations per solve"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		solveTotal, err = meter.Int64Counter(
			"solver_solve_total",
			metric.WithDescription("Total number of constraint solves"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordSolveMetrics(ctx context.Context, duration time.Duration, res *Result) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("converged", res.Converged),
		attribute.Bool("success", res.Success),
	)
	solveLatency.Record(ctx, duration.Seconds(), attrs)
	solveIterations.Record(ctx, int64(res.Iterations), attrs)
	solveTotal.Add(ctx, 1, attrs)
}

func startSolveSpan(ctx context.Context, components, constraints int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Solver.Solve",
		trace.WithAttributes(
			attribute.Int("solver.component_count", components),
			attribute.Int("solver.constraint_count", constraints),
		),
	)
}

func finishSolveSpan(span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.Int("solver.iterations", res.Iterations),
		attribute.Float64("solver.error", res.Error),
		attribute.Bool("solver.converged", res.Converged),
	)
	span.End()
}
