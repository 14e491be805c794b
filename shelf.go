// Package shelf registers a SQL-backed model layer on a host server.
//
// A plugin built with New normalizes its options, opens the configured
// database client, installs the attribute case translator on the resulting
// handle, applies the requested extensions, loads models and exposes the
// handle under the name "shelf".
package shelf

import (
	"github.com/goliatone/go-shelf/core"
	"github.com/goliatone/go-shelf/host"
	"github.com/goliatone/go-shelf/naming"
)

const Name = core.PluginName

type Plugin = core.Plugin
type Option = core.Option
type Handle = core.Handle
type Model = core.Model
type ModelDefinition = core.ModelDefinition
type FetchOptions = core.FetchOptions
type Config = core.Config
type ClientConfig = core.ClientConfig
type Extension = core.Extension
type Attributes = naming.Attributes
type Translator = naming.Translator
type Host = core.Host
type Server = host.Server

var (
	WithVersion           = core.WithVersion
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithConfigLoader      = core.WithConfigLoader
	WithClientFactory     = core.WithClientFactory
	WithExtensionRegistry = core.WithExtensionRegistry
	WithExtensions        = core.WithExtensions
	WithModelCatalog      = core.WithModelCatalog
	WithModelFS           = core.WithModelFS
	WithTranslator        = core.WithTranslator
	WithMigrations        = core.WithMigrations
)

var (
	IsConfigValidationError     = core.IsConfigValidationError
	IsExternalConstructionError = core.IsExternalConstructionError
	IsExtensionResolutionError  = core.IsExtensionResolutionError
	IsModelResolutionError      = core.IsModelResolutionError
	IsModelNotFound             = core.IsModelNotFound
	IsEntityNotFound            = core.IsEntityNotFound
)

func New(opts ...Option) (*Plugin, error) {
	return core.NewPlugin(opts...)
}

func NewServer(opts ...host.Option) *Server {
	return host.NewServer(opts...)
}

// NormalizeOptions merges raw over the defaults and validates the result.
func NormalizeOptions(raw map[string]any) (Config, error) {
	return core.NormalizeOptions(raw)
}

// Parse converts storage keys to application keys with the default
// translator.
func Parse(attrs Attributes) Attributes {
	return naming.ToInternal(attrs)
}

// Format converts application keys to storage keys with the default
// translator.
func Format(attrs Attributes) Attributes {
	return naming.ToExternal(attrs)
}
