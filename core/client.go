package core

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/mssqldialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
	"github.com/xo/dburl"
)

const memoryFilename = ":memory:"

type DialectFactory func() schema.Dialect

type DSNBuilder func(connection any) (string, error)

// ClientDriver binds a client identifier to a database/sql driver, the bun
// dialect that speaks to it, and the rules for turning a connection
// descriptor into a DSN.
type ClientDriver struct {
	Name       string
	Aliases    []string
	DriverName string
	FileBacked bool
	Dialect    DialectFactory
	DSN        DSNBuilder
}

type OpenedClient struct {
	Client   string
	Driver   string
	DSN      string
	DB       *sql.DB
	Dialect  schema.Dialect
	InMemory bool
}

type ClientFactory struct {
	mu      sync.RWMutex
	drivers map[string]ClientDriver
}

// NewClientFactory returns a factory with sqlite3, postgres (lib/pq and pgx),
// mysql and mssql registered.
func NewClientFactory() *ClientFactory {
	factory := &ClientFactory{drivers: map[string]ClientDriver{}}
	for _, driver := range defaultClientDrivers() {
		if err := factory.RegisterDriver(driver); err != nil {
			panic(err)
		}
	}
	return factory
}

func defaultClientDrivers() []ClientDriver {
	return []ClientDriver{
		{
			Name:       FileBackedClient,
			Aliases:    []string{fileBackedAlias},
			DriverName: "sqlite3",
			FileBacked: true,
			Dialect:    func() schema.Dialect { return sqlitedialect.New() },
			DSN:        sqliteDSN,
		},
		{
			Name:       "pg",
			Aliases:    []string{"postgres", "postgresql"},
			DriverName: "postgres",
			Dialect:    func() schema.Dialect { return pgdialect.New() },
			DSN:        postgresDSN,
		},
		{
			Name:       "pgx",
			DriverName: "pgx",
			Dialect:    func() schema.Dialect { return pgdialect.New() },
			DSN:        postgresDSN,
		},
		{
			Name:       "mysql",
			Aliases:    []string{"mysql2", "mariadb"},
			DriverName: "mysql",
			Dialect:    func() schema.Dialect { return mysqldialect.New() },
			DSN:        mysqlDSN,
		},
		{
			Name:       "mssql",
			Aliases:    []string{"sqlserver"},
			DriverName: "sqlserver",
			Dialect:    func() schema.Dialect { return mssqldialect.New() },
			DSN:        sqlServerDSN,
		},
	}
}

func (f *ClientFactory) RegisterDriver(driver ClientDriver) error {
	if f == nil {
		return fmt.Errorf("core: client factory is nil")
	}
	name := normalizeClientName(driver.Name)
	if name == "" {
		return fmt.Errorf("core: client name is required")
	}
	if strings.TrimSpace(driver.DriverName) == "" {
		return fmt.Errorf("core: client %q driver name is required", name)
	}
	if driver.Dialect == nil {
		return fmt.Errorf("core: client %q dialect is required", name)
	}
	if driver.DSN == nil {
		driver.DSN = stringDSN
	}
	driver.Name = name

	f.mu.Lock()
	defer f.mu.Unlock()
	keys := append([]string{name}, driver.Aliases...)
	for _, key := range keys {
		key = normalizeClientName(key)
		if key == "" {
			continue
		}
		if _, exists := f.drivers[key]; exists {
			return fmt.Errorf("core: client already registered: %s", key)
		}
	}
	for _, key := range keys {
		if key = normalizeClientName(key); key != "" {
			f.drivers[key] = driver
		}
	}
	return nil
}

func (f *ClientFactory) Lookup(client string) (ClientDriver, bool) {
	if f == nil {
		return ClientDriver{}, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	driver, ok := f.drivers[normalizeClientName(client)]
	return driver, ok
}

// Clients lists every registered identifier, aliases included.
func (f *ClientFactory) Clients() []string {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	names := make([]string, 0, len(f.drivers))
	for name := range f.drivers {
		names = append(names, name)
	}
	f.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Open resolves the client, builds its DSN and opens a database/sql pool.
// It does not ping; callers decide when to touch the network.
func (f *ClientFactory) Open(cfg ClientConfig) (*OpenedClient, error) {
	name := normalizeClientName(cfg.Client)
	driver, ok := f.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("client %q is not supported (known clients: %s)", name, strings.Join(f.Clients(), ", "))
	}
	connection := cfg.Connection
	if conn, ok := stringKeyedMap(connection); ok {
		connection = conn
	}
	dsn, err := driver.DSN(connection)
	if err != nil {
		return nil, fmt.Errorf("client %q connection: %w", name, err)
	}
	db, err := sql.Open(driver.DriverName, dsn)
	if err != nil {
		return nil, err
	}

	inMemory := driver.FileBacked && strings.Contains(dsn, "mode=memory")
	applyPool(db, cfg.Pool, driver.FileBacked)

	return &OpenedClient{
		Client:   driver.Name,
		Driver:   driver.DriverName,
		DSN:      dsn,
		DB:       db,
		Dialect:  driver.Dialect(),
		InMemory: inMemory,
	}, nil
}

// applyPool forwards pool sizing to database/sql. File backed databases get a
// single connection so every query sees the same file or memory image.
func applyPool(db *sql.DB, pool PoolConfig, fileBacked bool) {
	if fileBacked {
		db.SetMaxOpenConns(1)
		return
	}
	if pool.Max > 0 {
		db.SetMaxOpenConns(pool.Max)
	}
	if pool.Min > 0 {
		db.SetMaxIdleConns(pool.Min)
	}
}

func normalizeClientName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func sqliteDSN(connection any) (string, error) {
	var filename string
	switch typed := connection.(type) {
	case nil:
	case map[string]any:
		filename = connectionString(typed, keyFilename)
	case string:
		filename = typed
	default:
		return "", fmt.Errorf("unsupported connection type %T", connection)
	}
	filename = strings.TrimSpace(filename)
	switch {
	case filename == "" || filename == memoryFilename:
		return fmt.Sprintf("file:shelf-%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString()), nil
	case strings.HasPrefix(filename, "file:"):
		return filename, nil
	default:
		return "file:" + filename + "?_foreign_keys=on", nil
	}
}

func postgresDSN(connection any) (string, error) {
	switch typed := connection.(type) {
	case string:
		return stringDSN(typed)
	case map[string]any:
		u := url.URL{
			Scheme: "postgres",
			Host:   hostPort(connectionString(typed, "host"), connectionString(typed, "port"), "5432"),
			Path:   "/" + connectionString(typed, "database", "dbname"),
		}
		u.User = connectionUser(typed)
		query := url.Values{}
		sslMode := connectionString(typed, "sslmode")
		if sslMode == "" {
			sslMode = "disable"
			if connectionBool(typed, "ssl") {
				sslMode = "require"
			}
		}
		query.Set("sslmode", sslMode)
		u.RawQuery = query.Encode()
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported connection type %T", connection)
	}
}

func mysqlDSN(connection any) (string, error) {
	switch typed := connection.(type) {
	case string:
		return stringDSN(typed)
	case map[string]any:
		cfg := mysql.NewConfig()
		cfg.User = connectionString(typed, "user")
		cfg.Passwd = connectionString(typed, "password")
		cfg.DBName = connectionString(typed, "database")
		cfg.ParseTime = true
		if socket := connectionString(typed, "socketPath", "socket_path"); socket != "" {
			cfg.Net = "unix"
			cfg.Addr = socket
		} else {
			cfg.Net = "tcp"
			cfg.Addr = hostPort(connectionString(typed, "host"), connectionString(typed, "port"), "3306")
		}
		return cfg.FormatDSN(), nil
	default:
		return "", fmt.Errorf("unsupported connection type %T", connection)
	}
}

func sqlServerDSN(connection any) (string, error) {
	switch typed := connection.(type) {
	case string:
		return stringDSN(typed)
	case map[string]any:
		u := url.URL{
			Scheme: "sqlserver",
			Host:   hostPort(connectionString(typed, "server", "host"), connectionString(typed, "port"), "1433"),
		}
		u.User = connectionUser(typed)
		query := url.Values{}
		if database := connectionString(typed, "database"); database != "" {
			query.Set("database", database)
		}
		u.RawQuery = query.Encode()
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported connection type %T", connection)
	}
}

// stringDSN passes plain DSNs through and expands URLs with dburl.
func stringDSN(connection any) (string, error) {
	value, ok := connection.(string)
	if !ok {
		return "", fmt.Errorf("unsupported connection type %T", connection)
	}
	value = strings.TrimSpace(value)
	if !strings.Contains(value, "://") {
		return value, nil
	}
	parsed, err := dburl.Parse(value)
	if err != nil {
		return "", err
	}
	return parsed.DSN, nil
}

func hostPort(host, port, defaultPort string) string {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = defaultPort
	}
	return net.JoinHostPort(host, port)
}

func connectionUser(values map[string]any) *url.Userinfo {
	user := connectionString(values, "user", "username")
	if user == "" {
		return nil
	}
	if password := connectionString(values, "password"); password != "" {
		return url.UserPassword(user, password)
	}
	return url.User(user)
}

func connectionString(values map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := values[key]
		if !ok || value == nil {
			continue
		}
		if text := strings.TrimSpace(fmt.Sprint(value)); text != "" {
			return text
		}
	}
	return ""
}

func connectionBool(values map[string]any, key string) bool {
	switch typed := values[key].(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(strings.TrimSpace(typed), "true")
	default:
		return false
	}
}

type persistenceConfig struct {
	driver         string
	server         string
	debug          bool
	pingTimeout    time.Duration
	otelIdentifier string
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return c.pingTimeout
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return c.otelIdentifier
}
