package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-shelf/core"
	"github.com/goliatone/go-shelf/naming"
)

type stubEntityReader struct {
	fetchFn    func(ctx context.Context, model string, id any) (naming.Attributes, error)
	fetchAllFn func(ctx context.Context, model string, opts core.FetchOptions) ([]naming.Attributes, error)
}

func (s stubEntityReader) Fetch(ctx context.Context, model string, id any) (naming.Attributes, error) {
	if s.fetchFn == nil {
		return nil, nil
	}
	return s.fetchFn(ctx, model, id)
}

func (s stubEntityReader) FetchAll(ctx context.Context, model string, opts core.FetchOptions) ([]naming.Attributes, error) {
	if s.fetchAllFn == nil {
		return nil, nil
	}
	return s.fetchAllFn(ctx, model, opts)
}

func TestFetchEntityQuery_QueryDelegates(t *testing.T) {
	called := false
	reader := stubEntityReader{
		fetchFn: func(_ context.Context, model string, id any) (naming.Attributes, error) {
			called = true
			if model != "User" || id != "usr_1" {
				t.Fatalf("unexpected fetch request: %q %#v", model, id)
			}
			return naming.Attributes{"id": "usr_1", "firstName": "Ada"}, nil
		},
	}

	result, err := NewFetchEntityQuery(reader).Query(context.Background(), FetchEntityMessage{Model: "User", ID: "usr_1"})
	if err != nil {
		t.Fatalf("query entity: %v", err)
	}
	if !called {
		t.Fatalf("expected reader invocation")
	}
	if result["firstName"] != "Ada" {
		t.Fatalf("unexpected entity: %#v", result)
	}
}

func TestListEntitiesQuery_QueryDelegates(t *testing.T) {
	reader := stubEntityReader{
		fetchAllFn: func(_ context.Context, model string, opts core.FetchOptions) ([]naming.Attributes, error) {
			if opts.Limit != 10 || opts.Where["lastName"] != "Team" {
				t.Fatalf("unexpected list options: %#v", opts)
			}
			return []naming.Attributes{{"id": "usr_1"}}, nil
		},
	}
	rows, err := NewListEntitiesQuery(reader).Query(context.Background(), ListEntitiesMessage{
		Model:   "User",
		Options: core.FetchOptions{Limit: 10, Where: naming.Attributes{"lastName": "Team"}},
	})
	if err != nil {
		t.Fatalf("list entities: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
}

func TestEntityQueries_AgainstHandle(t *testing.T) {
	ctx := context.Background()
	catalog := core.NewModelCatalog()
	if err := catalog.Definitions(core.ModelDefinition{Name: "Task", IDStrategy: core.IDStrategyAuto}); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	plugin, err := core.NewPlugin(core.WithModelCatalog(catalog))
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	handle, err := plugin.Build(ctx, map[string]any{
		"client-config": map[string]any{"client": "sqlite3"},
		"model-list":    []any{"Task"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer handle.Close()
	if _, err := handle.DB().ExecContext(ctx, "CREATE TABLE tasks (id INTEGER PRIMARY KEY AUTOINCREMENT, due_on TEXT, done_flag INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for index := 1; index <= 3; index++ {
		if _, err := handle.Save(ctx, "Task", naming.Attributes{"dueOn": fmt.Sprintf("2026-01-0%d", index), "doneFlag": index % 2}); err != nil {
			t.Fatalf("save task %d: %v", index, err)
		}
	}

	rows, err := NewListEntitiesQuery(handle).Query(ctx, ListEntitiesMessage{
		Model:   "Task",
		Options: core.FetchOptions{Where: naming.Attributes{"doneFlag": 1}, OrderBy: "dueOn", Desc: true},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || fmt.Sprint(rows[0]["dueOn"]) != "2026-01-03" {
		t.Fatalf("unexpected rows %#v", rows)
	}

	fetched, err := NewFetchEntityQuery(handle).Query(ctx, FetchEntityMessage{Model: "Task", ID: rows[0]["id"]})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fmt.Sprint(fetched["dueOn"]) != "2026-01-03" {
		t.Fatalf("unexpected entity %#v", fetched)
	}

	_, err = NewFetchEntityQuery(handle).Query(ctx, FetchEntityMessage{Model: "Task", ID: 999})
	if !core.IsEntityNotFound(err) {
		t.Fatalf("expected entity not found, got %v", err)
	}
}
