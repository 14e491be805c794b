package core

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FileBackedClient is the client identifier whose connection descriptor is a
// local file rather than a network endpoint.
const FileBackedClient = "sqlite3"

const fileBackedAlias = "sqlite"

const (
	DefaultExtension                = "registry"
	defaultAcquireConnectionTimeout = 60 * time.Second
	defaultCacheTTL                 = time.Minute
)

const (
	keyClientConfig = "client-config"
	keyPluginList   = "plugin-list"
	keyModelList    = "model-list"
	keyFilename     = "filename"
	keyModelBaseDir = "model-base-dir"
)

type PoolConfig struct {
	Min int `koanf:"min" mapstructure:"min"`
	Max int `koanf:"max" mapstructure:"max"`
}

type ClientConfig struct {
	Client                   string        `koanf:"client" mapstructure:"client"`
	Connection               any           `koanf:"connection" mapstructure:"connection"`
	Debug                    bool          `koanf:"debug" mapstructure:"debug"`
	Pool                     PoolConfig    `koanf:"pool" mapstructure:"pool"`
	AcquireConnectionTimeout time.Duration `koanf:"acquire-connection-timeout" mapstructure:"acquire-connection-timeout"`
}

type CacheConfig struct {
	TTL time.Duration `koanf:"ttl" mapstructure:"ttl"`
}

type Config struct {
	ClientConfig ClientConfig `koanf:"client-config" mapstructure:"client-config"`
	PluginList   []string     `koanf:"plugin-list" mapstructure:"plugin-list"`
	ModelList    []string     `koanf:"model-list" mapstructure:"model-list"`
	ModelBaseDir string       `koanf:"model-base-dir" mapstructure:"model-base-dir"`
	Cache        CacheConfig  `koanf:"cache" mapstructure:"cache"`
}

// DefaultOptions is the raw defaults layer merged under caller options.
func DefaultOptions() map[string]any {
	return map[string]any{
		keyPluginList: []any{DefaultExtension},
	}
}

// IsFileBacked reports whether the client names the sqlite driver, matched
// the same way ClientFactory resolves names.
func (c ClientConfig) IsFileBacked() bool {
	switch normalizeClientName(c.Client) {
	case FileBackedClient, fileBackedAlias:
		return true
	default:
		return false
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.AcquireConnectionTimeout <= 0 {
		c.AcquireConnectionTimeout = defaultAcquireConnectionTimeout
	}
	return c
}

func (c Config) withDefaults() Config {
	c.ClientConfig = c.ClientConfig.withDefaults()
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = defaultCacheTTL
	}
	return c
}

// Validate checks shape only. Whether the client is actually supported is
// decided when the client is opened.
func (c Config) Validate() error {
	if err := c.ClientConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.PluginList, validation.Each(validation.Required)); err != nil {
		return fmt.Errorf("%s: %w", keyPluginList, err)
	}
	if err := validation.Validate(c.ModelList, validation.Each(validation.Required)); err != nil {
		return fmt.Errorf("%s: %w", keyModelList, err)
	}
	return nil
}

func (c ClientConfig) Validate() error {
	if err := validation.Validate(strings.TrimSpace(c.Client), validation.Required); err != nil {
		return fmt.Errorf("%s.client: %w", keyClientConfig, err)
	}
	rule := validation.By(networkConnectionRule)
	if c.IsFileBacked() {
		rule = validation.By(fileConnectionRule)
	}
	if err := validation.Validate(c.Connection, rule); err != nil {
		return fmt.Errorf("%s.connection: %w", keyClientConfig, err)
	}
	return nil
}

func fileConnectionRule(value any) error {
	if value == nil {
		return nil
	}
	conn, ok := stringKeyedMap(value)
	if !ok {
		return fmt.Errorf("must be an object with an optional %s", keyFilename)
	}
	if unknown := unknownKeys(conn, keyFilename); len(unknown) > 0 {
		return fmt.Errorf("must contain only a %s field, got %s", keyFilename, strings.Join(unknown, ", "))
	}
	if filename, exists := conn[keyFilename]; exists {
		if _, ok := filename.(string); !ok {
			return fmt.Errorf("%s must be a string", keyFilename)
		}
	}
	return nil
}

func networkConnectionRule(value any) error {
	if _, ok := stringKeyedMap(value); ok {
		return nil
	}
	switch typed := value.(type) {
	case nil:
		return fmt.Errorf("is required")
	case string:
		if strings.TrimSpace(typed) == "" {
			return fmt.Errorf("cannot be blank")
		}
		return nil
	default:
		return fmt.Errorf("must be an object or a string")
	}
}

func unknownKeys(values map[string]any, allowed ...string) []string {
	unknown := make([]string, 0)
	for key := range values {
		known := false
		for _, candidate := range allowed {
			if key == candidate {
				known = true
				break
			}
		}
		if !known {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// stringKeyedMap returns value as map[string]any when it is any map keyed by
// strings.
func stringKeyedMap(value any) (map[string]any, bool) {
	if typed, ok := value.(map[string]any); ok {
		return typed, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	if rv.IsNil() {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// validateRawOptions checks the types of merged options before they are
// decoded. Decoding is weakly typed, so numbers in lists or a scalar list
// would otherwise be coerced into strings and pass validation.
func validateRawOptions(raw map[string]any) error {
	if value, exists := raw[keyClientConfig]; exists && value != nil {
		clientConfig, ok := stringKeyedMap(value)
		if !ok {
			return fmt.Errorf("%s: must be an object", keyClientConfig)
		}
		if client, exists := clientConfig["client"]; exists && client != nil {
			if _, ok := client.(string); !ok {
				return fmt.Errorf("%s.client: must be a string", keyClientConfig)
			}
		}
	}
	for _, key := range []string{keyPluginList, keyModelList} {
		if err := stringListRule(raw[key]); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if value, exists := raw[keyModelBaseDir]; exists && value != nil {
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: must be a string", keyModelBaseDir)
		}
	}
	return nil
}

func stringListRule(value any) error {
	switch typed := value.(type) {
	case nil, []string:
		return nil
	case []any:
		for index, item := range typed {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("item %d must be a string, got %T", index, item)
			}
		}
		return nil
	default:
		return fmt.Errorf("must be a list of strings, got %T", value)
	}
}
