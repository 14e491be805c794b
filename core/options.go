package core

import (
	"io/fs"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-shelf/migrations"
	"github.com/goliatone/go-shelf/naming"
)

type ErrorMapper func(err error) *goerrors.Error

type pluginBuilder struct {
	version         string
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configLoader    RawConfigLoader
	clientFactory   *ClientFactory
	extensions      *Extensions
	extraExtensions []Extension
	modelCatalog    *ModelCatalog
	modelFS         fs.FS
	translator      naming.Translator
	migrations      []migrations.FilesystemSpec
}

type Option func(*pluginBuilder)

func WithVersion(version string) Option {
	return func(b *pluginBuilder) {
		b.version = version
	}
}

func WithLogger(logger Logger) Option {
	return func(b *pluginBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *pluginBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *pluginBuilder) {
		b.metricsRecorder = recorder
	}
}

// WithErrorMapper sets the mapper applied to errors handed to next.
func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *pluginBuilder) {
		b.errorMapper = mapper
	}
}

// WithConfigLoader adds a raw options layer between defaults and the
// registration options.
func WithConfigLoader(loader RawConfigLoader) Option {
	return func(b *pluginBuilder) {
		b.configLoader = loader
	}
}

func WithClientFactory(factory *ClientFactory) Option {
	return func(b *pluginBuilder) {
		b.clientFactory = factory
	}
}

// WithExtensionRegistry replaces the built-in extension registry.
func WithExtensionRegistry(registry *Extensions) Option {
	return func(b *pluginBuilder) {
		b.extensions = registry
	}
}

// WithExtensions adds extensions on top of the registry in use.
func WithExtensions(extensions ...Extension) Option {
	return func(b *pluginBuilder) {
		b.extraExtensions = append(b.extraExtensions, extensions...)
	}
}

func WithModelCatalog(catalog *ModelCatalog) Option {
	return func(b *pluginBuilder) {
		b.modelCatalog = catalog
	}
}

// WithModelFS resolves relative model-list entries inside fsys instead of
// the model-base-dir option.
func WithModelFS(fsys fs.FS) Option {
	return func(b *pluginBuilder) {
		b.modelFS = fsys
	}
}

func WithTranslator(translator naming.Translator) Option {
	return func(b *pluginBuilder) {
		b.translator = translator
	}
}

// WithMigrations registers SQL migrations that run before extensions are
// applied. Only filesystems for the handle's dialect are used.
func WithMigrations(filesystems ...migrations.FilesystemSpec) Option {
	return func(b *pluginBuilder) {
		b.migrations = append(b.migrations, filesystems...)
	}
}

func defaultPluginBuilder() pluginBuilder {
	loggerProvider, logger := glog.Resolve(PluginName, nil, nil)
	return pluginBuilder{
		version:         Version,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		translator:      naming.CaseTranslator{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return shelfErrorMapper(err)
}
