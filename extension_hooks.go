package shelf

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-shelf/core"
)

// ExtensionPack is a named set of extensions shipped together.
type ExtensionPack struct {
	Name       string
	Extensions []core.Extension
}

// ModelPack is a named set of model definitions shipped together.
type ModelPack struct {
	Name        string
	Definitions []core.ModelDefinition
}

// ExtensionHooks collects packs from downstream modules and turns them into
// plugin options.
type ExtensionHooks struct {
	mu sync.RWMutex

	extensionPacks map[string]ExtensionPack
	modelPacks     map[string]ModelPack
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		extensionPacks: map[string]ExtensionPack{},
		modelPacks:     map[string]ModelPack{},
	}
}

func (h *ExtensionHooks) RegisterExtensionPack(pack ExtensionPack) error {
	if h == nil {
		return fmt.Errorf("shelf: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("shelf: extension pack name is required")
	}
	if len(pack.Extensions) == 0 {
		return fmt.Errorf("shelf: extension pack %q has no extensions", name)
	}
	for _, extension := range pack.Extensions {
		if extension == nil || strings.TrimSpace(extension.Name()) == "" {
			return fmt.Errorf("shelf: extension pack %q contains an unnamed extension", name)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.extensionPacks[name]; exists {
		return fmt.Errorf("shelf: extension pack %q already registered", name)
	}
	h.extensionPacks[name] = ExtensionPack{
		Name:       name,
		Extensions: append([]core.Extension(nil), pack.Extensions...),
	}
	return nil
}

func (h *ExtensionHooks) RegisterModelPack(pack ModelPack) error {
	if h == nil {
		return fmt.Errorf("shelf: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("shelf: model pack name is required")
	}
	if len(pack.Definitions) == 0 {
		return fmt.Errorf("shelf: model pack %q has no definitions", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.modelPacks[name]; exists {
		return fmt.Errorf("shelf: model pack %q already registered", name)
	}
	h.modelPacks[name] = ModelPack{
		Name:        name,
		Definitions: append([]core.ModelDefinition(nil), pack.Definitions...),
	}
	return nil
}

func (h *ExtensionHooks) ExtensionPacks() []ExtensionPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	packs := make([]ExtensionPack, 0, len(h.extensionPacks))
	for _, name := range sortedKeys(h.extensionPacks) {
		packs = append(packs, h.extensionPacks[name])
	}
	return packs
}

func (h *ExtensionHooks) ModelPacks() []ModelPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	packs := make([]ModelPack, 0, len(h.modelPacks))
	for _, name := range sortedKeys(h.modelPacks) {
		packs = append(packs, h.modelPacks[name])
	}
	return packs
}

// Options returns plugin options that register every pack's extensions and
// a model catalog holding every pack's definitions. Packs are applied in
// name order.
func (h *ExtensionHooks) Options() ([]Option, error) {
	if h == nil {
		return nil, nil
	}
	options := make([]Option, 0, 2)

	extensions := make([]core.Extension, 0)
	for _, pack := range h.ExtensionPacks() {
		extensions = append(extensions, pack.Extensions...)
	}
	if len(extensions) > 0 {
		options = append(options, core.WithExtensions(extensions...))
	}

	modelPacks := h.ModelPacks()
	if len(modelPacks) > 0 {
		catalog := core.NewModelCatalog()
		for _, pack := range modelPacks {
			if err := catalog.Definitions(pack.Definitions...); err != nil {
				return nil, fmt.Errorf("shelf: model pack %q: %w", pack.Name, err)
			}
		}
		options = append(options, core.WithModelCatalog(catalog))
	}
	return options, nil
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
