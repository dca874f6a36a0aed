package conversation

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/voxloop/voxloop/internal/observe"
)

func metricStatus(status string) metric.AddOption {
	return metric.WithAttributes(observe.AttrStatus.String(status))
}

func metricStage(stage string) metric.AddOption {
	return metric.WithAttributes(observe.AttrStage.String(stage))
}
