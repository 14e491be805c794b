package command

import (
	"context"
	"errors"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-shelf/core"
	"github.com/goliatone/go-shelf/naming"
)

type stubEntityWriter struct {
	saveFn    func(ctx context.Context, model string, attrs naming.Attributes) (naming.Attributes, error)
	destroyFn func(ctx context.Context, model string, id any) error
}

func (s stubEntityWriter) Save(ctx context.Context, model string, attrs naming.Attributes) (naming.Attributes, error) {
	if s.saveFn == nil {
		return nil, nil
	}
	return s.saveFn(ctx, model, attrs)
}

func (s stubEntityWriter) Destroy(ctx context.Context, model string, id any) error {
	if s.destroyFn == nil {
		return nil
	}
	return s.destroyFn(ctx, model, id)
}

func TestSaveEntityCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	writer := stubEntityWriter{
		saveFn: func(_ context.Context, model string, attrs naming.Attributes) (naming.Attributes, error) {
			called = true
			if model != "User" || attrs["firstName"] != "Ada" {
				t.Fatalf("unexpected save payload: %q %#v", model, attrs)
			}
			return naming.Attributes{"id": "usr_1", "firstName": "Ada"}, nil
		},
	}

	cmd := NewSaveEntityCommand(writer)
	collector := gocmd.NewResult[naming.Attributes]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, SaveEntityMessage{Model: "User", Attributes: naming.Attributes{"firstName": "Ada"}})
	if err != nil {
		t.Fatalf("execute save: %v", err)
	}
	if !called {
		t.Fatalf("expected save invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result["id"] != "usr_1" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestDestroyEntityCommand_PropagatesErrors(t *testing.T) {
	sentinel := errors.New("destroy failed")
	cmd := NewDestroyEntityCommand(stubEntityWriter{
		destroyFn: func(_ context.Context, model string, id any) error {
			if model != "User" || id != "usr_1" {
				t.Fatalf("unexpected destroy payload: %q %#v", model, id)
			}
			return sentinel
		},
	})
	err := cmd.Execute(context.Background(), DestroyEntityMessage{Model: "User", ID: "usr_1"})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected writer error, got %v", err)
	}
}

func TestEntityCommands_AgainstHandle(t *testing.T) {
	ctx := context.Background()
	catalog := core.NewModelCatalog()
	if err := catalog.Definitions(core.ModelDefinition{Name: "User"}); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	plugin, err := core.NewPlugin(core.WithModelCatalog(catalog))
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	handle, err := plugin.Build(ctx, map[string]any{
		"client-config": map[string]any{"client": "sqlite3"},
		"model-list":    []any{"User"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer handle.Close()
	if _, err := handle.DB().ExecContext(ctx, "CREATE TABLE users (id TEXT PRIMARY KEY, display_name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	collector := gocmd.NewResult[naming.Attributes]()
	saveCtx := gocmd.ContextWithResult(ctx, collector)
	msg := SaveEntityMessage{Model: "User", Attributes: naming.Attributes{"displayName": "Ada"}}
	if err := msg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := NewSaveEntityCommand(handle).Execute(saveCtx, msg); err != nil {
		t.Fatalf("save: %v", err)
	}
	saved, ok := collector.Load()
	if !ok || saved["displayName"] != "Ada" {
		t.Fatalf("expected stored entity result, got %#v", saved)
	}

	if err := NewDestroyEntityCommand(handle).Execute(ctx, DestroyEntityMessage{Model: "User", ID: saved["id"]}); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	err = NewDestroyEntityCommand(handle).Execute(ctx, DestroyEntityMessage{Model: "User", ID: saved["id"]})
	if !core.IsEntityNotFound(err) {
		t.Fatalf("expected entity not found on repeated destroy, got %v", err)
	}
}
