package telemetry

import (
	"context"
	"sync"

	"github.com/mansoorceksport/cohab/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	sweepOnce     sync.Once
	sweepStudents metric.Int64Gauge
)

// RecordSweep publishes the per-category counts of a status sweep
func RecordSweep(ctx context.Context, summary *domain.RosterSummary) {
	sweepOnce.Do(func() {
		sweepStudents, _ = otel.Meter(tracerName).Int64Gauge("cohab.students.by_status",
			metric.WithDescription("Students per status category at the last sweep"))
	})
	if sweepStudents == nil || summary == nil {
		return
	}
	for category, count := range summary.Counts {
		sweepStudents.Record(ctx, int64(count), metric.WithAttributes(
			attribute.String("category", string(category)),
		))
	}
}
