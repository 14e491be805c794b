package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StaticConfigLoader serves a fixed options layer.
type StaticConfigLoader struct {
	Values map[string]any
}

func (l StaticConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	return cloneOptions(l.Values), nil
}

// FileConfigLoader reads an options layer from a YAML or JSON file. A missing
// file yields an empty layer when Optional is set.
type FileConfigLoader struct {
	Path     string
	Optional bool
}

func NewFileConfigLoader(path string) FileConfigLoader {
	return FileConfigLoader{Path: path}
}

func (l FileConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return nil, fmt.Errorf("options file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if l.Optional && os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return DecodeOptions(data)
}

// DecodeOptions parses a YAML or JSON options document.
func DecodeOptions(data []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return out, nil
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return out, nil
}
