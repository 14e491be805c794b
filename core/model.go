package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-shelf/naming"
	sqlstore "github.com/goliatone/go-shelf/store/sql"
	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"github.com/stoewer/go-strcase"
)

type IDStrategy string

const (
	IDStrategyUUID IDStrategy = "uuid"
	IDStrategyAuto IDStrategy = "auto"
)

const defaultIDAttribute = "id"

// ModelDefinition describes a table-backed entity. Attribute names are in
// application (camelCase) form.
type ModelDefinition struct {
	Name        string     `yaml:"name" json:"name"`
	Table       string     `yaml:"table" json:"table"`
	IDAttribute string     `yaml:"id_attribute" json:"id_attribute"`
	IDStrategy  IDStrategy `yaml:"id_strategy" json:"id_strategy"`
	Hidden      []string   `yaml:"hidden" json:"hidden"`
	Attributes  []string   `yaml:"attributes" json:"attributes"`
}

// DefaultTableName follows bun's convention: plural snake_case.
func DefaultTableName(model string) string {
	return inflection.Plural(strcase.SnakeCase(strings.TrimSpace(model)))
}

func (d ModelDefinition) normalize() (ModelDefinition, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return d, fmt.Errorf("core: model name is required")
	}
	d.Table = strings.TrimSpace(d.Table)
	if d.Table == "" {
		d.Table = DefaultTableName(d.Name)
	}
	d.IDAttribute = strings.TrimSpace(d.IDAttribute)
	if d.IDAttribute == "" {
		d.IDAttribute = defaultIDAttribute
	}
	d.IDStrategy = IDStrategy(strings.ToLower(strings.TrimSpace(string(d.IDStrategy))))
	switch d.IDStrategy {
	case "":
		d.IDStrategy = IDStrategyUUID
	case IDStrategyUUID, IDStrategyAuto:
	default:
		return d, fmt.Errorf("core: model %s has unsupported id strategy %q", d.Name, d.IDStrategy)
	}
	d.Hidden = trimNames(d.Hidden)
	d.Attributes = trimNames(d.Attributes)
	return d, nil
}

func trimNames(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// entityStore is the storage surface shared by the plain and cached stores.
type entityStore interface {
	Table() string
	IDColumn() string
	Get(ctx context.Context, id any) (map[string]any, error)
	List(ctx context.Context, opts sqlstore.ListOptions) ([]map[string]any, error)
	Insert(ctx context.Context, values map[string]any) (any, error)
	Update(ctx context.Context, id any, values map[string]any) error
	Delete(ctx context.Context, id any) error
}

// Model reads and writes entities of one definition through its handle.
type Model struct {
	handle   *Handle
	def      ModelDefinition
	idColumn string
	base     *sqlstore.EntityStore
}

func newModel(h *Handle, def ModelDefinition) (*Model, error) {
	idColumn := h.formatKey(def.IDAttribute)
	base, err := sqlstore.NewEntityStore(h.db, def.Table, idColumn)
	if err != nil {
		return nil, err
	}
	return &Model{handle: h, def: def, idColumn: idColumn, base: base}, nil
}

func (m *Model) Name() string {
	return m.def.Name
}

func (m *Model) Table() string {
	return m.def.Table
}

func (m *Model) Definition() ModelDefinition {
	def := m.def
	def.Hidden = append([]string(nil), m.def.Hidden...)
	def.Attributes = append([]string(nil), m.def.Attributes...)
	return def
}

func (m *Model) store() (entityStore, error) {
	cache := m.handle.cacheService()
	if cache == nil {
		return m.base, nil
	}
	return sqlstore.NewCachedEntityStore(m.base, cache)
}

type FetchOptions struct {
	Where   naming.Attributes
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

func (m *Model) Fetch(ctx context.Context, id any) (naming.Attributes, error) {
	if isBlankID(id) {
		return nil, newBadInputError("core: id is required")
	}
	store, err := m.store()
	if err != nil {
		return nil, err
	}
	row, err := store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sqlstore.ErrEntityNotFound) {
			return nil, newEntityNotFoundError(m.def.Name, id)
		}
		return nil, fmt.Errorf("core: fetch %s: %w", m.def.Name, err)
	}
	return m.present(row), nil
}

func (m *Model) FetchAll(ctx context.Context, opts FetchOptions) ([]naming.Attributes, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, newBadInputError("core: limit and offset must not be negative")
	}
	store, err := m.store()
	if err != nil {
		return nil, err
	}
	listOpts := sqlstore.ListOptions{
		Where:  m.handle.Format(opts.Where),
		Desc:   opts.Desc,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	if orderBy := strings.TrimSpace(opts.OrderBy); orderBy != "" {
		listOpts.OrderBy = m.handle.formatKey(orderBy)
	}
	rows, err := store.List(ctx, listOpts)
	if err != nil {
		return nil, fmt.Errorf("core: fetch all %s: %w", m.def.Name, err)
	}
	out := make([]naming.Attributes, 0, len(rows))
	for _, row := range rows {
		out = append(out, m.present(row))
	}
	return out, nil
}

// Save inserts attrs when they carry no id and updates the stored row
// otherwise. It returns the entity as read back after the write.
func (m *Model) Save(ctx context.Context, attrs naming.Attributes) (naming.Attributes, error) {
	if err := m.checkAttributes(attrs); err != nil {
		return nil, err
	}
	id := attrs[m.def.IDAttribute]
	if isBlankID(id) {
		return m.insert(ctx, attrs)
	}
	store, err := m.store()
	if err != nil {
		return nil, err
	}
	if err := store.Update(ctx, id, m.handle.Format(attrs)); err != nil {
		if errors.Is(err, sqlstore.ErrEntityNotFound) {
			return nil, newEntityNotFoundError(m.def.Name, id)
		}
		return nil, fmt.Errorf("core: update %s: %w", m.def.Name, err)
	}
	return m.Fetch(ctx, id)
}

// Create always inserts, keeping a caller supplied id.
func (m *Model) Create(ctx context.Context, attrs naming.Attributes) (naming.Attributes, error) {
	if err := m.checkAttributes(attrs); err != nil {
		return nil, err
	}
	return m.insert(ctx, attrs)
}

func (m *Model) insert(ctx context.Context, attrs naming.Attributes) (naming.Attributes, error) {
	values := m.handle.Format(attrs)
	if isBlankID(values[m.idColumn]) {
		delete(values, m.idColumn)
		if m.def.IDStrategy == IDStrategyUUID {
			values[m.idColumn] = uuid.NewString()
		}
	}
	store, err := m.store()
	if err != nil {
		return nil, err
	}
	id, err := store.Insert(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("core: insert %s: %w", m.def.Name, err)
	}
	return m.Fetch(ctx, id)
}

func (m *Model) Destroy(ctx context.Context, id any) error {
	if isBlankID(id) {
		return newBadInputError("core: id is required")
	}
	store, err := m.store()
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, id); err != nil {
		if errors.Is(err, sqlstore.ErrEntityNotFound) {
			return newEntityNotFoundError(m.def.Name, id)
		}
		return fmt.Errorf("core: destroy %s: %w", m.def.Name, err)
	}
	return nil
}

func (m *Model) checkAttributes(attrs naming.Attributes) error {
	if len(attrs) == 0 {
		return newBadInputError(fmt.Sprintf("core: %s attributes are required", m.def.Name))
	}
	if len(m.def.Attributes) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(m.def.Attributes)+1)
	allowed[m.def.IDAttribute] = struct{}{}
	for _, name := range m.def.Attributes {
		allowed[name] = struct{}{}
	}
	for key := range attrs {
		if _, ok := allowed[key]; !ok {
			return newBadInputError(fmt.Sprintf("core: %s has no attribute %q", m.def.Name, key))
		}
	}
	return nil
}

// present converts a stored row and, with the visibility extension, drops
// hidden attributes.
func (m *Model) present(row map[string]any) naming.Attributes {
	attrs := m.handle.Parse(row)
	if len(m.def.Hidden) > 0 && m.handle.hidesAttributes() {
		for _, hidden := range m.def.Hidden {
			delete(attrs, hidden)
		}
	}
	return attrs
}

func isBlankID(id any) bool {
	if id == nil {
		return true
	}
	if value, ok := id.(string); ok {
		return strings.TrimSpace(value) == ""
	}
	return false
}
