package core

import (
	"context"
	"fmt"
	"strings"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

const (
	metricKindTotal    = "total"
	metricKindDuration = "duration_ms"
)

// metricTagKeys are the observation fields promoted to metric tags. Entity
// ids and error text stay in logs only.
var metricTagKeys = []string{"client", "model", "stage"}

// metricName returns shelf.<operation>.<kind>.
func metricName(operation string, kind string) string {
	return PluginName + "." + operation + "." + kind
}

func metricTags(operation string, status string, fields map[string]any) map[string]string {
	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range metricTagKeys {
		value, ok := fields[key]
		if !ok || value == nil {
			continue
		}
		if text := strings.TrimSpace(fmt.Sprint(value)); text != "" {
			tags[key] = text
		}
	}
	return tags
}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
