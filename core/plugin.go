package core

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-shelf/adapters/gologger"
	"github.com/goliatone/go-shelf/migrations"
	"github.com/goliatone/go-shelf/naming"
)

const Version = "0.1.0"

// Plugin builds a Handle from registration options and exposes it on a host.
type Plugin struct {
	version         string
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	normalizer      *Normalizer
	clientFactory   *ClientFactory
	extensions      *Extensions
	modelCatalog    *ModelCatalog
	modelFS         fs.FS
	translator      naming.Translator
	migrations      []migrations.FilesystemSpec
}

func NewPlugin(opts ...Option) (*Plugin, error) {
	builder := defaultPluginBuilder()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := gologger.Resolve(PluginName, builder.loggerProvider, builder.logger)
	logger = gologger.Named(provider, PluginName, logger)

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.clientFactory == nil {
		builder.clientFactory = NewClientFactory()
	}
	if builder.extensions == nil {
		builder.extensions = DefaultExtensions()
	}
	for _, extension := range builder.extraExtensions {
		if err := builder.extensions.Register(extension); err != nil {
			return nil, err
		}
	}
	if builder.modelCatalog == nil {
		builder.modelCatalog = NewModelCatalog()
	}
	if builder.translator == nil {
		builder.translator = naming.CaseTranslator{}
	}

	return &Plugin{
		version:         builder.version,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		normalizer:      NewNormalizer(builder.configLoader),
		clientFactory:   builder.clientFactory,
		extensions:      builder.extensions,
		modelCatalog:    builder.modelCatalog,
		modelFS:         builder.modelFS,
		translator:      builder.translator,
		migrations:      append([]migrations.FilesystemSpec(nil), builder.migrations...),
	}, nil
}

func (p *Plugin) Name() string {
	return PluginName
}

func (p *Plugin) Version() string {
	if p == nil {
		return ""
	}
	return p.version
}

func (p *Plugin) ClientFactory() *ClientFactory {
	return p.clientFactory
}

func (p *Plugin) Extensions() *Extensions {
	return p.extensions
}

func (p *Plugin) ModelCatalog() *ModelCatalog {
	return p.modelCatalog
}

func (p *Plugin) observer() observer {
	return observer{logger: p.logger, recorder: p.metricsRecorder}
}

// Register builds the handle, exposes it as "shelf" and schedules Close on
// host shutdown. next is called exactly once.
func (p *Plugin) Register(host Host, options map[string]any, next func(error)) {
	if next == nil {
		next = func(error) {}
	}
	if p == nil {
		next(fmt.Errorf("core: plugin is nil"))
		return
	}
	if host == nil {
		next(p.mapError(newBadInputError("core: host is required")))
		return
	}

	handle, err := p.Build(context.Background(), options)
	if err != nil {
		next(p.mapError(err))
		return
	}

	host.Expose(PluginName, handle)
	host.OnStop(func(context.Context) error {
		return handle.Close()
	})
	next(nil)
}

// Build runs the registration pipeline without a host. The caller owns the
// returned handle.
func (p *Plugin) Build(ctx context.Context, options map[string]any) (handle *Handle, err error) {
	if p == nil {
		return nil, fmt.Errorf("core: plugin is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{"plugin": PluginName, "version": p.version}
	defer func() {
		p.observer().observe(ctx, startedAt, "register", err, fields, false)
	}()

	fields["stage"] = "normalize"
	cfg, err := p.normalizer.Normalize(ctx, options)
	if err != nil {
		return nil, err
	}
	fields["client"] = cfg.ClientConfig.Client

	fields["stage"] = "client"
	opened, err := p.clientFactory.Open(cfg.ClientConfig)
	if err != nil {
		return nil, NewExternalConstructionError(err, cfg.ClientConfig.Client)
	}
	client, err := persistence.New(persistenceConfig{
		driver:         opened.Driver,
		server:         opened.DSN,
		debug:          cfg.ClientConfig.Debug,
		pingTimeout:    cfg.ClientConfig.AcquireConnectionTimeout,
		otelIdentifier: PluginName + "." + opened.Client,
	}, opened.DB, opened.Dialect)
	if err != nil {
		_ = opened.DB.Close()
		return nil, NewExternalConstructionError(err, cfg.ClientConfig.Client)
	}

	handle = newHandle(handleConfig{
		client:      client,
		clientName:  opened.Client,
		translator:  p.translator,
		observer:    p.observer(),
		cacheTTL:    cfg.Cache.TTL,
		pingTimeout: cfg.ClientConfig.AcquireConnectionTimeout,
	})
	defer func() {
		if err != nil {
			if closeErr := handle.Close(); closeErr != nil {
				p.observer().log(ctx, levelError, "close handle after failed registration", map[string]any{"error": closeErr.Error()})
			}
			handle = nil
		}
	}()

	if len(p.migrations) > 0 {
		fields["stage"] = "migrations"
		if err = p.migrate(ctx, handle); err != nil {
			return nil, NewExternalConstructionError(err, cfg.ClientConfig.Client)
		}
	}

	fields["stage"] = "extensions"
	if err = applyExtensions(ctx, handle, p.extensions, cfg.PluginList); err != nil {
		return nil, err
	}
	fields["extensions"] = handle.Extensions()

	fields["stage"] = "models"
	loader := ModelLoader{Catalog: p.modelCatalog, FS: p.modelFS, BaseDir: cfg.ModelBaseDir}
	if err = loader.LoadAll(ctx, handle, cfg.ModelList); err != nil {
		return nil, err
	}
	fields["models"] = handle.ModelNames()

	delete(fields, "stage")
	p.observer().log(ctx, levelDebug, "shelf handle ready", map[string]any{"client": opened.Client, "in_memory": opened.InMemory})
	return handle, nil
}

func (p *Plugin) migrate(ctx context.Context, handle *Handle) error {
	target := migrations.DialectFor(handle.DB().Dialect().Name())
	_, err := migrations.Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		return handle.RegisterMigrations(fsys)
	},
		migrations.WithValidationTargets(target),
		migrations.WithFilesystems(p.migrations...),
	)
	if err != nil {
		return err
	}
	return handle.Migrate(ctx)
}

func (p *Plugin) mapError(err error) error {
	if err == nil || p.errorMapper == nil {
		return err
	}
	if mapped := p.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}
