package core

import (
	"context"
	"sync"
	"testing"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
	err    error
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if l.err != nil {
		return nil, l.err
	}
	return cloneOptions(l.values), nil
}

// recordingHost captures what a registration exposes and the stop hooks it
// schedules.
type recordingHost struct {
	mu      sync.Mutex
	exposed map[string]any
	onStop  []func(context.Context) error
}

func newRecordingHost() *recordingHost {
	return &recordingHost{exposed: map[string]any{}}
}

func (h *recordingHost) Expose(name string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exposed[name] = value
}

func (h *recordingHost) OnStop(hook func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStop = append(h.onStop, hook)
}

func (h *recordingHost) stop(ctx context.Context) error {
	h.mu.Lock()
	hooks := append([]func(context.Context) error(nil), h.onStop...)
	h.mu.Unlock()
	for index := len(hooks) - 1; index >= 0; index-- {
		if err := hooks[index](ctx); err != nil {
			return err
		}
	}
	return nil
}

type callbackRecorder struct {
	mu    sync.Mutex
	calls []error
}

func (r *callbackRecorder) next(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, err)
}

func (r *callbackRecorder) only(t *testing.T) error {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(r.calls))
	}
	return r.calls[0]
}

func sqliteOptions(extra map[string]any) map[string]any {
	options := map[string]any{
		"client-config": map[string]any{"client": "sqlite3"},
	}
	for key, value := range extra {
		options[key] = value
	}
	return options
}

func newTestPlugin(t *testing.T, opts ...Option) *Plugin {
	t.Helper()
	plugin, err := NewPlugin(append([]Option{WithLogger(stubLogger{})}, opts...)...)
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	return plugin
}

// newTestHandle builds a sqlite memory handle with a users table.
func newTestHandle(t *testing.T, plugins []any, opts ...Option) *Handle {
	t.Helper()
	plugin := newTestPlugin(t, opts...)
	handle, err := plugin.Build(context.Background(), sqliteOptions(map[string]any{
		"plugin-list": plugins,
	}))
	if err != nil {
		t.Fatalf("build handle: %v", err)
	}
	t.Cleanup(func() {
		_ = handle.Close()
	})
	createUsersTable(t, handle)
	return handle
}

func createUsersTable(t *testing.T, handle *Handle) {
	t.Helper()
	_, err := handle.DB().ExecContext(context.Background(), `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT,
		password_hash TEXT,
		login_count INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		t.Fatalf("create users table: %v", err)
	}
}
