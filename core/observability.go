package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"
)

// observer reports one operation as a counter, a duration histogram and a
// structured log line.
type observer struct {
	logger   Logger
	recorder MetricsRecorder
}

// observe records operation. Quiet operations log success at debug and
// failure at warn; the rest use info and error.
func (o observer) observe(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
	quiet bool,
) {
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	elapsed := time.Since(startedAt).Milliseconds()

	logFields := cloneFields(fields)
	logFields["event_type"] = operation
	logFields["status"] = status
	logFields["duration_ms"] = elapsed
	if err != nil {
		logFields["error"] = err.Error()
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			logFields["error_category"] = fmt.Sprint(richErr.Category)
			logFields["error_text_code"] = richErr.TextCode
		}
	}

	if o.recorder != nil {
		tags := metricTags(operation, status, logFields)
		o.recorder.IncCounter(ctx, metricName(operation, metricKindTotal), 1, cloneTags(tags))
		o.recorder.ObserveHistogram(ctx, metricName(operation, metricKindDuration), float64(elapsed), cloneTags(tags))
	}

	switch {
	case err != nil && quiet:
		o.log(ctx, levelWarn, operation+" failed", logFields)
	case err != nil:
		o.log(ctx, levelError, operation+" failed", logFields)
	case quiet:
		o.log(ctx, levelDebug, operation+" succeeded", logFields)
	default:
		o.log(ctx, levelInfo, operation+" succeeded", logFields)
	}
}

func (o observer) log(ctx context.Context, level string, message string, fields map[string]any) {
	if o.logger == nil {
		return
	}
	logger := o.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch level {
	case levelError:
		logger.Error(message, args...)
	case levelWarn:
		logger.Warn(message, args...)
	case levelDebug:
		logger.Debug(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func cloneFields(fields map[string]any) map[string]any {
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

// flattenFields turns fields into sorted key/value pairs for loggers without
// WithFields.
func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(operation)
}
