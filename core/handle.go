package core

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-shelf/naming"
	"github.com/uptrace/bun"
)

// Handle is the ORM context produced by a registration. It owns the
// database connection until Close is called.
type Handle struct {
	client      *persistence.Client
	db          *bun.DB
	clientName  string
	translator  naming.Translator
	observer    observer
	cacheTTL    time.Duration
	pingTimeout time.Duration

	mu              sync.RWMutex
	models          map[string]*Model
	extensions      []string
	registryEnabled bool
	visibility      bool
	cache           repositorycache.CacheService

	closeOnce sync.Once
	closeErr  error
}

type handleConfig struct {
	client      *persistence.Client
	clientName  string
	translator  naming.Translator
	observer    observer
	cacheTTL    time.Duration
	pingTimeout time.Duration
}

// newHandle installs the translator before any model can be defined, so every
// entity read or written through this handle is translated.
func newHandle(cfg handleConfig) *Handle {
	translator := cfg.translator
	if translator == nil {
		translator = naming.CaseTranslator{}
	}
	cacheTTL := cfg.cacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	var db *bun.DB
	if cfg.client != nil {
		db = cfg.client.DB()
	}
	return &Handle{
		client:      cfg.client,
		db:          db,
		clientName:  cfg.clientName,
		translator:  translator,
		observer:    cfg.observer,
		cacheTTL:    cacheTTL,
		pingTimeout: cfg.pingTimeout,
		models:      map[string]*Model{},
		extensions:  make([]string, 0),
	}
}

func (h *Handle) Client() *persistence.Client {
	if h == nil {
		return nil
	}
	return h.client
}

func (h *Handle) DB() *bun.DB {
	if h == nil {
		return nil
	}
	return h.db
}

func (h *Handle) ClientName() string {
	if h == nil {
		return ""
	}
	return h.clientName
}

func (h *Handle) Translator() naming.Translator {
	if h == nil {
		return nil
	}
	return h.translator
}

// Parse converts a stored row to its application form.
func (h *Handle) Parse(attrs naming.Attributes) naming.Attributes {
	return h.translator.ToInternal(attrs)
}

// Format converts application attributes to their stored form.
func (h *Handle) Format(attrs naming.Attributes) naming.Attributes {
	return h.translator.ToExternal(attrs)
}

func (h *Handle) formatKey(key string) string {
	for formatted := range h.Format(naming.Attributes{key: nil}) {
		return formatted
	}
	return key
}

// Define registers a model definition on the handle.
func (h *Handle) Define(def ModelDefinition) (*Model, error) {
	if h == nil || h.db == nil {
		return nil, fmt.Errorf("core: handle is not configured")
	}
	def, err := def.normalize()
	if err != nil {
		return nil, err
	}
	model, err := newModel(h, def)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.models[def.Name]; exists {
		return nil, fmt.Errorf("core: model already defined: %s", def.Name)
	}
	h.models[def.Name] = model
	return model, nil
}

// Model looks up a defined model by name. Lookups by name need the registry
// extension.
func (h *Handle) Model(name string) (*Model, error) {
	if h == nil {
		return nil, fmt.Errorf("core: handle is not configured")
	}
	name = strings.TrimSpace(name)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.registryEnabled {
		return nil, newBadInputError("core: model lookup requires the registry extension")
	}
	model, ok := h.models[name]
	if !ok {
		return nil, newModelNotFoundError(name)
	}
	return model, nil
}

func (h *Handle) ModelNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	names := make([]string, 0, len(h.models))
	for name := range h.models {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Extensions returns applied extension names in application order.
func (h *Handle) Extensions() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.extensions...)
}

func (h *Handle) HasExtension(name string) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, applied := range h.extensions {
		if applied == name {
			return true
		}
	}
	return false
}

// AddQueryHook attaches a bun query hook to the handle's database.
func (h *Handle) AddQueryHook(hook bun.QueryHook) error {
	if h == nil || h.db == nil {
		return fmt.Errorf("core: handle is not configured")
	}
	if hook == nil {
		return fmt.Errorf("core: query hook is required")
	}
	h.db.AddQueryHook(hook)
	return nil
}

func (h *Handle) markExtension(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.extensions = append(h.extensions, name)
}

func (h *Handle) enableRegistry() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registryEnabled = true
}

func (h *Handle) enableVisibility() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visibility = true
}

func (h *Handle) enableCache(cache repositorycache.CacheService) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache = cache
}

func (h *Handle) cacheService() repositorycache.CacheService {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cache
}

func (h *Handle) hidesAttributes() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.visibility
}

func (h *Handle) Fetch(ctx context.Context, model string, id any) (attrs naming.Attributes, err error) {
	done := h.track(ctx, "entity.fetch", model)
	defer func() { done(err) }()

	m, err := h.Model(model)
	if err != nil {
		return nil, err
	}
	return m.Fetch(ctx, id)
}

func (h *Handle) FetchAll(ctx context.Context, model string, opts FetchOptions) (rows []naming.Attributes, err error) {
	done := h.track(ctx, "entity.list", model)
	defer func() { done(err) }()

	m, err := h.Model(model)
	if err != nil {
		return nil, err
	}
	return m.FetchAll(ctx, opts)
}

func (h *Handle) Save(ctx context.Context, model string, attrs naming.Attributes) (saved naming.Attributes, err error) {
	done := h.track(ctx, "entity.save", model)
	defer func() { done(err) }()

	m, err := h.Model(model)
	if err != nil {
		return nil, err
	}
	return m.Save(ctx, attrs)
}

func (h *Handle) Destroy(ctx context.Context, model string, id any) (err error) {
	done := h.track(ctx, "entity.destroy", model)
	defer func() { done(err) }()

	m, err := h.Model(model)
	if err != nil {
		return err
	}
	return m.Destroy(ctx, id)
}

// track starts a quiet observation of an entity operation.
func (h *Handle) track(ctx context.Context, operation string, model string) func(error) {
	if h == nil {
		return func(error) {}
	}
	startedAt := time.Now()
	return func(err error) {
		h.observer.observe(ctx, startedAt, operation, err, map[string]any{
			"client": h.clientName,
			"model":  model,
		}, true)
	}
}

// Ping checks the connection. Without a caller deadline it is bounded by the
// acquire-connection-timeout.
func (h *Handle) Ping(ctx context.Context) error {
	if h == nil || h.db == nil {
		return fmt.Errorf("core: handle is not configured")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && h.pingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.pingTimeout)
		defer cancel()
	}
	return h.db.PingContext(ctx)
}

// RegisterMigrations queues SQL migrations on the persistence client.
func (h *Handle) RegisterMigrations(fsys fs.FS) error {
	if h == nil || h.client == nil {
		return fmt.Errorf("core: handle is not configured")
	}
	if fsys == nil {
		return fmt.Errorf("core: migrations filesystem is required")
	}
	h.client.RegisterSQLMigrations(fsys)
	return nil
}

func (h *Handle) Migrate(ctx context.Context) error {
	if h == nil || h.client == nil {
		return fmt.Errorf("core: handle is not configured")
	}
	return h.client.Migrate(ctx)
}

// Close releases the connection pool. Later calls return the first result.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	h.closeOnce.Do(func() {
		if h.client != nil {
			h.closeErr = h.client.Close()
		}
	})
	return h.closeErr
}
