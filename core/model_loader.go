package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var modelFileExtensions = []string{".yaml", ".yml", ".json"}

// ModelFunc defines one or more models on a handle.
type ModelFunc func(ctx context.Context, handle *Handle) error

// ModelCatalog maps model-list entries to Go definitions. Entries here win
// over files with the same path.
type ModelCatalog struct {
	mu      sync.RWMutex
	entries map[string]ModelFunc
}

func NewModelCatalog() *ModelCatalog {
	return &ModelCatalog{entries: map[string]ModelFunc{}}
}

func (c *ModelCatalog) Register(entry string, fn ModelFunc) error {
	if c == nil {
		return fmt.Errorf("core: model catalog is nil")
	}
	key := catalogKey(entry)
	if key == "" {
		return fmt.Errorf("core: model entry is required")
	}
	if fn == nil {
		return fmt.Errorf("core: model func is required for %s", entry)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string]ModelFunc{}
	}
	c.entries[key] = fn
	return nil
}

// Definitions registers each definition under its own name.
func (c *ModelCatalog) Definitions(defs ...ModelDefinition) error {
	for _, def := range defs {
		err := c.Register(def.Name, func(_ context.Context, handle *Handle) error {
			_, err := handle.Define(def)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *ModelCatalog) Lookup(entry string) (ModelFunc, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.entries[catalogKey(entry)]
	return fn, ok
}

func (c *ModelCatalog) Entries() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

func catalogKey(entry string) string {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return ""
	}
	return path.Clean(filepath.ToSlash(entry))
}

// ModelLoader resolves model-list entries against an explicit base: FS when
// set, BaseDir otherwise. Absolute paths are read from disk as given.
type ModelLoader struct {
	Catalog *ModelCatalog
	FS      fs.FS
	BaseDir string
}

func (l ModelLoader) LoadAll(ctx context.Context, handle *Handle, entries []string) error {
	for _, entry := range entries {
		if err := l.Load(ctx, handle, entry); err != nil {
			return err
		}
	}
	return nil
}

func (l ModelLoader) Load(ctx context.Context, handle *Handle, entry string) error {
	if fn, ok := l.Catalog.Lookup(entry); ok {
		if err := fn(ctx, handle); err != nil {
			return NewModelResolutionError(err, entry)
		}
		return nil
	}

	data, resolved, err := l.read(entry)
	if err != nil {
		return NewModelResolutionError(err, entry)
	}
	def, err := DecodeModelDefinition(data)
	if err != nil {
		return NewModelResolutionError(fmt.Errorf("decode %s: %w", resolved, err), entry)
	}
	if strings.TrimSpace(def.Name) == "" {
		def.Name = modelNameFromPath(resolved)
	}
	if _, err := handle.Define(def); err != nil {
		return NewModelResolutionError(err, entry)
	}
	return nil
}

// DecodeModelDefinition reads a YAML or JSON model definition.
func DecodeModelDefinition(data []byte) (ModelDefinition, error) {
	var def ModelDefinition
	if len(strings.TrimSpace(string(data))) == 0 {
		return def, fmt.Errorf("model definition is empty")
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, err
	}
	return def, nil
}

func (l ModelLoader) read(entry string) ([]byte, string, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil, "", fmt.Errorf("model path is empty")
	}

	var readFile func(name string) ([]byte, error)
	var base string
	var candidates []string
	switch {
	case filepath.IsAbs(entry):
		readFile = os.ReadFile
		base = "/"
		candidates = modelCandidates(filepath.Clean(entry))
	case l.FS != nil:
		readFile = func(name string) ([]byte, error) { return fs.ReadFile(l.FS, name) }
		base = "fs"
		candidates = modelCandidates(path.Clean(filepath.ToSlash(entry)))
	default:
		base = strings.TrimSpace(l.BaseDir)
		if base == "" {
			base = "."
		}
		readFile = os.ReadFile
		candidates = modelCandidates(filepath.Join(base, filepath.FromSlash(entry)))
	}

	for _, candidate := range candidates {
		data, err := readFile(candidate)
		if err == nil {
			return data, candidate, nil
		}
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) || isDirectoryRead(err) {
			continue
		}
		return nil, candidate, err
	}
	return nil, entry, fmt.Errorf("model %q not found under %s: %w", entry, base, fs.ErrNotExist)
}

func modelCandidates(name string) []string {
	candidates := []string{name}
	if hasModelExtension(name) {
		return candidates
	}
	for _, ext := range modelFileExtensions {
		candidates = append(candidates, name+ext)
	}
	return candidates
}

func hasModelExtension(name string) bool {
	ext := strings.ToLower(path.Ext(filepath.ToSlash(name)))
	for _, known := range modelFileExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

func modelNameFromPath(name string) string {
	base := path.Base(filepath.ToSlash(name))
	return strings.TrimSuffix(base, path.Ext(base))
}

func isDirectoryRead(err error) bool {
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	return strings.Contains(strings.ToLower(pathErr.Err.Error()), "is a directory")
}
