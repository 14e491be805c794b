package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlstore "github.com/goliatone/go-shelf/store/sql"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestEntityStore_InsertGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t, "CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, note_title TEXT, pinned INTEGER)")

	store, err := sqlstore.NewEntityStore(db, "notes", "")
	if err != nil {
		t.Fatalf("new entity store: %v", err)
	}
	if store.IDColumn() != "id" {
		t.Fatalf("expected default id column, got %q", store.IDColumn())
	}

	id, err := store.Insert(ctx, map[string]any{"note_title": "first", "pinned": 0})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	row, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fmt.Sprint(row["note_title"]) != "first" {
		t.Fatalf("unexpected row %#v", row)
	}

	if err := store.Update(ctx, id, map[string]any{"note_title": "renamed", "id": 999}); err != nil {
		t.Fatalf("update: %v", err)
	}
	row, err = store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if fmt.Sprint(row["note_title"]) != "renamed" || fmt.Sprint(row["id"]) != fmt.Sprint(id) {
		t.Fatalf("expected title update with stable id, got %#v", row)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, sqlstore.ErrEntityNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := store.Delete(ctx, id); !errors.Is(err, sqlstore.ErrEntityNotFound) {
		t.Fatalf("expected not found on repeated delete, got %v", err)
	}
	if err := store.Update(ctx, id, map[string]any{"note_title": "ghost"}); !errors.Is(err, sqlstore.ErrEntityNotFound) {
		t.Fatalf("expected not found on update of missing row, got %v", err)
	}
}

func TestEntityStore_InsertKeepsSuppliedID(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t, "CREATE TABLE tags (tag_id TEXT PRIMARY KEY, label TEXT)")

	store, err := sqlstore.NewEntityStore(db, "tags", "tag_id")
	if err != nil {
		t.Fatalf("new entity store: %v", err)
	}
	id, err := store.Insert(ctx, map[string]any{"tag_id": "tag_go", "label": "go"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != "tag_go" {
		t.Fatalf("expected supplied id, got %#v", id)
	}
	if _, err := store.Insert(ctx, map[string]any{}); err == nil {
		t.Fatalf("expected empty insert to fail")
	}
}

func TestEntityStore_ListFiltersOrdersAndPages(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t, "CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, note_title TEXT, pinned INTEGER)")
	store, err := sqlstore.NewEntityStore(db, "notes", "id")
	if err != nil {
		t.Fatalf("new entity store: %v", err)
	}
	for index, title := range []string{"alpha", "bravo", "charlie", "delta"} {
		if _, err := store.Insert(ctx, map[string]any{"note_title": title, "pinned": index % 2}); err != nil {
			t.Fatalf("insert %s: %v", title, err)
		}
	}

	rows, err := store.List(ctx, sqlstore.ListOptions{
		Where:   map[string]any{"pinned": 1},
		OrderBy: "note_title",
		Desc:    true,
	})
	if err != nil {
		t.Fatalf("list pinned: %v", err)
	}
	if len(rows) != 2 || fmt.Sprint(rows[0]["note_title"]) != "delta" {
		t.Fatalf("unexpected pinned rows %#v", rows)
	}

	rows, err = store.List(ctx, sqlstore.ListOptions{OrderBy: "note_title", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(rows) != 2 || fmt.Sprint(rows[0]["note_title"]) != "bravo" {
		t.Fatalf("unexpected page rows %#v", rows)
	}

	rows, err = store.List(ctx, sqlstore.ListOptions{Where: map[string]any{"note_title": "missing"}})
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty result, got %#v", rows)
	}
}

func TestNewEntityStore_RequiresDBAndTable(t *testing.T) {
	if _, err := sqlstore.NewEntityStore(nil, "notes", "id"); err == nil {
		t.Fatalf("expected nil db to fail")
	}
	db := newSQLiteDB(t, "")
	if _, err := sqlstore.NewEntityStore(db, "  ", "id"); err == nil {
		t.Fatalf("expected blank table to fail")
	}
}

func newSQLiteDB(t *testing.T, schema string) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:sqlstore-test-%s?mode=memory&cache=shared", uuid.NewString())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	if schema != "" {
		if _, err := db.ExecContext(context.Background(), schema); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}
