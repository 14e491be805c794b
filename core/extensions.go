package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/extra/bunotel"
)

const (
	ExtensionRegistry   = DefaultExtension
	ExtensionVisibility = "visibility"
	ExtensionCache      = "cache"
	ExtensionDebug      = "debug"
	ExtensionOtel       = "otel"
)

// Extension augments a handle before it is exposed.
type Extension interface {
	Name() string
	Apply(ctx context.Context, handle *Handle) error
}

// ExtensionFunc adapts a function to the Extension interface.
type ExtensionFunc struct {
	ExtensionName string
	Fn            func(ctx context.Context, handle *Handle) error
}

func NewExtension(name string, fn func(ctx context.Context, handle *Handle) error) ExtensionFunc {
	return ExtensionFunc{ExtensionName: name, Fn: fn}
}

func (e ExtensionFunc) Name() string {
	return e.ExtensionName
}

func (e ExtensionFunc) Apply(ctx context.Context, handle *Handle) error {
	if e.Fn == nil {
		return nil
	}
	return e.Fn(ctx, handle)
}

type Extensions struct {
	mu         sync.RWMutex
	extensions map[string]Extension
}

// NewExtensions returns a registry holding only the given extensions.
func NewExtensions(extensions ...Extension) (*Extensions, error) {
	registry := &Extensions{extensions: map[string]Extension{}}
	for _, extension := range extensions {
		if err := registry.Register(extension); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// DefaultExtensions returns a registry with the built-in extensions.
func DefaultExtensions() *Extensions {
	registry, _ := NewExtensions(BuiltinExtensions()...)
	return registry
}

func BuiltinExtensions() []Extension {
	return []Extension{
		NewExtension(ExtensionRegistry, func(_ context.Context, handle *Handle) error {
			handle.enableRegistry()
			return nil
		}),
		NewExtension(ExtensionVisibility, func(_ context.Context, handle *Handle) error {
			handle.enableVisibility()
			return nil
		}),
		NewExtension(ExtensionCache, applyCacheExtension),
		NewExtension(ExtensionDebug, func(_ context.Context, handle *Handle) error {
			return handle.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
		}),
		NewExtension(ExtensionOtel, func(_ context.Context, handle *Handle) error {
			return handle.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(handle.ClientName())))
		}),
	}
}

func applyCacheExtension(_ context.Context, handle *Handle) error {
	config := repositorycache.DefaultConfig()
	config.TTL = handle.cacheTTL
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		return fmt.Errorf("core: new cache service: %w", err)
	}
	handle.enableCache(service)
	return nil
}

func (r *Extensions) Register(extension Extension) error {
	if r == nil {
		return fmt.Errorf("core: extension registry is nil")
	}
	if extension == nil {
		return fmt.Errorf("core: extension is required")
	}
	name := strings.TrimSpace(extension.Name())
	if name == "" {
		return fmt.Errorf("core: extension name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.extensions == nil {
		r.extensions = map[string]Extension{}
	}
	r.extensions[name] = extension
	return nil
}

func (r *Extensions) Get(name string) (Extension, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	extension, ok := r.extensions[strings.TrimSpace(name)]
	return extension, ok
}

func (r *Extensions) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.extensions))
	for name := range r.extensions {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// applyExtensions applies names in order and stops at the first failure.
// Extensions applied before the failure are not rolled back.
func applyExtensions(ctx context.Context, handle *Handle, registry *Extensions, names []string) error {
	for _, name := range names {
		if handle.HasExtension(name) {
			continue
		}
		extension, ok := registry.Get(name)
		if !ok {
			return NewExtensionResolutionError(
				fmt.Errorf("extension %q is not registered", name),
				name,
			)
		}
		if err := extension.Apply(ctx, handle); err != nil {
			return NewExtensionResolutionError(err, name)
		}
		handle.markExtension(name)
	}
	return nil
}
