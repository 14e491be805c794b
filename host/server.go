package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-shelf/adapters/gologger"
	"github.com/goliatone/go-shelf/core"
)

const loggerName = "shelf.host"

var (
	ErrAlreadyRegistered = errors.New("host: plugin already registered")
	ErrNoCallback        = errors.New("host: plugin returned without completing registration")
	ErrStopped           = errors.New("host: server is stopped")
)

type Option func(*Server)

func WithLogger(logger core.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(s *Server) {
		s.loggerProvider = provider
	}
}

// Server is an in-process host. Registrations run one at a time; exposed
// values and stop hooks accumulate until Stop.
type Server struct {
	registerMu sync.Mutex

	mu             sync.RWMutex
	logger         core.Logger
	loggerProvider core.LoggerProvider
	exposed        map[string]any
	registered     []string
	stopHooks      []func(ctx context.Context) error
	stopped        bool
}

func NewServer(opts ...Option) *Server {
	server := &Server{exposed: map[string]any{}}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(server)
	}
	provider, logger := gologger.Resolve(loggerName, server.loggerProvider, server.logger)
	server.loggerProvider = provider
	server.logger = gologger.Named(provider, loggerName, logger)
	return server
}

// Register runs plugin.Register and returns the error it passed to its
// callback. Callbacks after the first are ignored and logged.
func (s *Server) Register(ctx context.Context, plugin core.Registrant, options map[string]any) error {
	if s == nil {
		return fmt.Errorf("host: server is nil")
	}
	if plugin == nil {
		return fmt.Errorf("host: plugin is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	name := strings.TrimSpace(plugin.Name())
	s.mu.RLock()
	stopped := s.stopped
	duplicate := slices.Contains(s.registered, name)
	s.mu.RUnlock()
	if stopped {
		return ErrStopped
	}
	if duplicate {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	outcome := &callbackOutcome{}
	plugin.Register(s, options, func(err error) {
		if calls, late := outcome.record(err); calls > 1 || late {
			s.logger.Warn("plugin registration callback ignored", "plugin", name, "calls", calls, "late", late)
		}
	})
	calls, result := outcome.close()
	if calls == 0 {
		return fmt.Errorf("%w: %s", ErrNoCallback, name)
	}
	if result != nil {
		s.logger.Error("plugin registration failed", "plugin", name, "error", result)
		return result
	}

	s.mu.Lock()
	s.registered = append(s.registered, name)
	s.mu.Unlock()
	s.logger.Info("plugin registered", "plugin", name)
	return nil
}

func (s *Server) Expose(name string, value any) {
	if s == nil {
		return
	}
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.exposed[name]; exists {
		s.logger.Warn("replacing exposed plugin value", "name", name)
	}
	s.exposed[name] = value
}

// Plugin returns the value exposed under name.
func (s *Server) Plugin(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.exposed[strings.TrimSpace(name)]
	return value, ok
}

// Shelf returns the handle exposed by the shelf plugin.
func (s *Server) Shelf() (*core.Handle, bool) {
	value, ok := s.Plugin(core.PluginName)
	if !ok {
		return nil, false
	}
	handle, ok := value.(*core.Handle)
	return handle, ok
}

func (s *Server) Exposed() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.exposed))
	for name := range s.exposed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) OnStop(hook func(ctx context.Context) error) {
	if s == nil || hook == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopHooks = append(s.stopHooks, hook)
}

// Stop runs stop hooks in reverse registration order and joins their
// errors. Later calls are no-ops.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	hooks := s.stopHooks
	s.stopHooks = nil
	s.mu.Unlock()

	var errs []error
	for index := len(hooks) - 1; index >= 0; index-- {
		if err := hooks[index](ctx); err != nil {
			s.logger.Error("stop hook failed", "error", err)
			errs = append(errs, err)
		}
	}
	s.logger.Info("host stopped", "hooks", len(hooks), "failures", len(errs))
	return errors.Join(errs...)
}

var _ core.Host = (*Server)(nil)

// callbackOutcome keeps the first result passed to a registration callback.
// Calls after close are counted but ignored.
type callbackOutcome struct {
	mu     sync.Mutex
	calls  int
	closed bool
	result error
}

func (o *callbackOutcome) record(err error) (int, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.closed {
		return o.calls, true
	}
	if o.calls == 1 {
		o.result = err
	}
	return o.calls, false
}

func (o *callbackOutcome) close() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return o.calls, o.result
}
