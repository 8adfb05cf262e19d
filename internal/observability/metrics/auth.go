package metrics

import (
	"strings"
	"time"

	"github.com/ocfl-archive/clerk-login/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// BootstrapMetric captures the outcome of one authentication bootstrap run.
type BootstrapMetric struct {
	Result   string
	Stage    string // failing stage, empty on success
	Duration time.Duration
}

// EmitBootstrap emits the standard bootstrap counter and timing.
func EmitBootstrap(sink statsd.Sink, in BootstrapMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Stage != "" {
		tags["stage"] = stageTag(in.Stage)
	}

	sink.Count("auth.bootstrap", 1, tags)

	if in.Duration > 0 {
		sink.Timing("auth.bootstrap.duration", in.Duration, CloneTags(tags))
	}
}

func stageTag(stage string) string {
	return strings.ReplaceAll(strings.TrimSpace(stage), " ", "_")
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
