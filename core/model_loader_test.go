package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestDecodeModelDefinition_YAMLAndJSON(t *testing.T) {
	yamlDef, err := DecodeModelDefinition([]byte(`
name: BlogPost
id_strategy: auto
hidden: [draftNotes]
`))
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if yamlDef.Name != "BlogPost" || yamlDef.IDStrategy != IDStrategyAuto || len(yamlDef.Hidden) != 1 {
		t.Fatalf("unexpected yaml definition %#v", yamlDef)
	}

	jsonDef, err := DecodeModelDefinition([]byte(`{"name":"User","table":"accounts","id_attribute":"accountId"}`))
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if jsonDef.Table != "accounts" || jsonDef.IDAttribute != "accountId" {
		t.Fatalf("unexpected json definition %#v", jsonDef)
	}

	if _, err := DecodeModelDefinition([]byte("  ")); err == nil {
		t.Fatalf("expected empty document to fail")
	}
}

func TestModelLoader_ResolvesAgainstFS(t *testing.T) {
	handle := newTestHandle(t, []any{"registry"})
	loader := ModelLoader{FS: fstest.MapFS{
		"models/user.yaml":  {Data: []byte("name: User\n")},
		"models/order.json": {Data: []byte(`{"name":"Order"}`)},
		"models/tag.yml":    {Data: []byte("table: labels\n")},
	}}

	err := loader.LoadAll(context.Background(), handle, []string{"./models/user", "models/order.json", "models/tag"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tag, err := handle.Model("tag")
	if err != nil {
		t.Fatalf("expected name derived from file, got %v", err)
	}
	if tag.Table() != "labels" {
		t.Fatalf("expected labels table, got %q", tag.Table())
	}
	for _, name := range []string{"User", "Order"} {
		if _, err := handle.Model(name); err != nil {
			t.Fatalf("expected model %s, got %v", name, err)
		}
	}
}

func TestModelLoader_ResolvesAgainstBaseDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "user.yaml"), []byte("name: User\n"), 0o600); err != nil {
		t.Fatalf("write model: %v", err)
	}
	handle := newTestHandle(t, []any{"registry"})

	if err := (ModelLoader{BaseDir: dir}).Load(context.Background(), handle, "user"); err != nil {
		t.Fatalf("load relative: %v", err)
	}

	other := newTestHandle(t, []any{"registry"})
	if err := (ModelLoader{}).Load(context.Background(), other, filepath.Join(dir, "user.yaml")); err != nil {
		t.Fatalf("load absolute: %v", err)
	}
}

func TestModelLoader_CatalogWinsOverFiles(t *testing.T) {
	handle := newTestHandle(t, []any{"registry"})
	catalog := NewModelCatalog()
	called := false
	if err := catalog.Register("models/user", func(_ context.Context, h *Handle) error {
		called = true
		_, err := h.Define(ModelDefinition{Name: "Member", Table: "users"})
		return err
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	loader := ModelLoader{Catalog: catalog, FS: fstest.MapFS{
		"models/user.yaml": {Data: []byte("name: User\n")},
	}}

	if err := loader.Load(context.Background(), handle, "./models/user"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !called {
		t.Fatalf("expected catalog entry to run")
	}
	if _, err := handle.Model("User"); !IsModelNotFound(err) {
		t.Fatalf("expected file definition to be skipped, got %v", err)
	}
}

func TestModelCatalog_Definitions(t *testing.T) {
	handle := newTestHandle(t, []any{"registry"})
	catalog := NewModelCatalog()
	if err := catalog.Definitions(ModelDefinition{Name: "User"}); err != nil {
		t.Fatalf("definitions: %v", err)
	}
	if err := (ModelLoader{Catalog: catalog}).Load(context.Background(), handle, "User"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := handle.Model("User"); err != nil {
		t.Fatalf("expected catalog model, got %v", err)
	}
}

func TestModelLoader_FailuresAreResolutionErrors(t *testing.T) {
	handle := newTestHandle(t, []any{"registry"})
	catalog := NewModelCatalog()
	_ = catalog.Register("broken", func(context.Context, *Handle) error {
		return errors.New("definition exploded")
	})
	loader := ModelLoader{Catalog: catalog, FS: fstest.MapFS{
		"bad.yaml": {Data: []byte("name: [unterminated\n")},
	}}

	for _, entry := range []string{"missing/model", "bad", "broken", "../escape"} {
		err := loader.Load(context.Background(), handle, entry)
		if !IsModelResolutionError(err) {
			t.Fatalf("expected model resolution error for %q, got %v", entry, err)
		}
	}
}
