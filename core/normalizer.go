package core

import (
	"context"
	"fmt"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

// RawConfigLoader supplies a raw options layer that sits between the defaults
// and the options passed at registration time.
type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// Normalizer merges raw options over defaults and validates the result. It
// holds no state beyond its loader and is safe for concurrent use.
type Normalizer struct {
	Loader RawConfigLoader
}

func NewNormalizer(loader RawConfigLoader) *Normalizer {
	return &Normalizer{Loader: loader}
}

// NormalizeOptions merges raw with DefaultOptions and validates it.
func NormalizeOptions(raw map[string]any) (Config, error) {
	return NewNormalizer(nil).Normalize(context.Background(), raw)
}

func (n *Normalizer) Normalize(ctx context.Context, runtime map[string]any) (Config, error) {
	var loaded map[string]any
	if n != nil && n.Loader != nil {
		values, err := n.Loader.LoadRaw(ctx)
		if err != nil {
			return Config{}, NewConfigValidationError(fmt.Errorf("load options: %w", err))
		}
		loaded = values
	}

	merged, err := MergeOptions(DefaultOptions(), loaded, runtime)
	if err != nil {
		return Config{}, NewConfigValidationError(err)
	}
	if err := validateRawOptions(merged); err != nil {
		return Config{}, NewConfigValidationError(err)
	}

	cfg, err := cfgx.Build[Config](merged,
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, NewConfigValidationError(err)
	}
	return cfg.withDefaults(), nil
}

// MergeOptions layers defaults < loaded < runtime. A key present in a higher
// layer is kept even when its value is falsy, and lists replace lower layers
// wholesale instead of merging element-wise.
func MergeOptions(defaults, loaded, runtime map[string]any) (map[string]any, error) {
	layers := []map[string]any{cloneOptions(defaults), cloneOptions(loaded), cloneOptions(runtime)}

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			layers[0],
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			layers[1],
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			layers[2],
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, fmt.Errorf("core: options merge failed: %w", err)
	}

	out := cloneOptions(merged.Value)
	for _, layer := range layers {
		overlayOptions(out, layer)
	}
	return out, nil
}

// overlayOptions writes src over dst. Nested objects merge key by key; every
// other value, falsy or list, replaces what dst holds.
func overlayOptions(dst, src map[string]any) {
	for key, value := range src {
		nested, isMap := value.(map[string]any)
		current, hasMap := dst[key].(map[string]any)
		if isMap && hasMap {
			overlayOptions(current, nested)
			continue
		}
		if isMap {
			dst[key] = cloneOptions(nested)
			continue
		}
		dst[key] = value
	}
}

func cloneOptions(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		switch typed := value.(type) {
		case map[string]any:
			out[key] = cloneOptions(typed)
		case []any:
			out[key] = append([]any{}, typed...)
		case []string:
			out[key] = append([]string{}, typed...)
		default:
			out[key] = value
		}
	}
	return out
}
