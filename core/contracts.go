package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// PluginName is the well-known name the handle is exposed under.
const PluginName = "shelf"

// Host is the server a plugin registers against.
type Host interface {
	// Expose publishes value under name for the rest of the application.
	Expose(name string, value any)
	// OnStop schedules hook to run when the host shuts down.
	OnStop(hook func(ctx context.Context) error)
}

// Registrant is implemented by plugins. next must be called exactly once,
// with nil on success.
type Registrant interface {
	Name() string
	Register(host Host, options map[string]any, next func(error))
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
