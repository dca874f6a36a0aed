package observe

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name used for all voxloop spans.
const tracerName = "github.com/voxloop/voxloop"

// Tracer returns the application tracer from the global tracer provider.
// Spans are no-ops until [InitProvider] has run.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
