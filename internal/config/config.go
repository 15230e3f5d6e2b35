package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"

	"github.com/fruitstand/fruitstand/pkg/auth"
	"github.com/fruitstand/fruitstand/pkg/database"
	"github.com/fruitstand/fruitstand/pkg/faults"
	"github.com/fruitstand/fruitstand/pkg/fruits"
	"github.com/fruitstand/fruitstand/pkg/health"
	"github.com/fruitstand/fruitstand/pkg/resilience"
)

// Config contains the fruitstand configuration.
type Config struct {
	// LogLevel is the level of the application logger.
	LogLevel string `hcl:"log_level,optional"`

	// Server configures the HTTP server.
	Server *Server `hcl:"server,block"`

	// Database configures the fruit store.
	Database *Database `hcl:"database,block"`

	// Fruits configures fault simulation and fruit queries.
	Fruits *Fruits `hcl:"fruits,block"`

	// Resilience configures the policies around fruit reads.
	Resilience *Resilience `hcl:"resilience,block"`

	// Auth configures who may delete fruits.
	Auth *Auth `hcl:"auth,block"`
}

// Server configures the HTTP server.
type Server struct {
	// Addr is the address to bind to for serving.
	Addr string `hcl:"addr,optional"`

	// ShutdownTimeout bounds graceful shutdown, e.g. "10s".
	ShutdownTimeout string `hcl:"shutdown_timeout,optional"`
}

// Database configures the database connection.
type Database struct {
	// Driver is "postgres" or "sqlite".
	Driver string `hcl:"driver,optional"`

	Host     string `hcl:"host,optional"`
	Port     int    `hcl:"port,optional"`
	User     string `hcl:"user,optional"`
	Password string `hcl:"password,optional"`
	DBName   string `hcl:"dbname,optional"`
	SSLMode  string `hcl:"sslmode,optional"`

	// Path is the sqlite database file, ":memory:" for a throwaway database.
	Path string `hcl:"path,optional"`

	// AutoMigrate creates the schema and seeds the fruits on startup.
	AutoMigrate bool `hcl:"auto_migrate,optional"`

	MaxIdleConns int `hcl:"max_idle_conns,optional"`
	MaxOpenConns int `hcl:"max_open_conns,optional"`
}

// Fruits configures fault simulation and fruit queries.
type Fruits struct {
	// SimulateDelay delays every other ListAll call.
	SimulateDelay bool `hcl:"simulate_delay,optional"`

	// SimulateFailure fails every other ListTopVoted call.
	SimulateFailure bool `hcl:"simulate_failure,optional"`

	// Delay is the simulated latency, e.g. "1s".
	Delay string `hcl:"delay,optional"`

	// ReadinessFruitID is the fruit looked up by the readiness probe.
	ReadinessFruitID int `hcl:"readiness_fruit_id,optional"`

	// TopVotedLimit is how many fruits the top-voted list holds.
	TopVotedLimit int `hcl:"top_voted_limit,optional"`
}

// Resilience configures the pipelines of the fruit reads. A policy block
// replaces the default policy of its operation entirely.
type Resilience struct {
	ListAll  *Policy `hcl:"list_all,block"`
	TopVoted *Policy `hcl:"top_voted,block"`
}

// Policy configures one pipeline.
type Policy struct {
	// Timeout bounds each attempt. Empty disables the timeout.
	Timeout string `hcl:"timeout,optional"`

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `hcl:"max_retries,optional"`

	// CircuitBreaker enables a circuit breaker. Without the block the
	// pipeline has none.
	CircuitBreaker *CircuitBreaker `hcl:"circuit_breaker,block"`
}

// CircuitBreaker configures a circuit breaker. Zero values use the defaults.
type CircuitBreaker struct {
	RequestVolumeThreshold int     `hcl:"request_volume_threshold,optional"`
	FailureRatio           float64 `hcl:"failure_ratio,optional"`
	Delay                  string  `hcl:"delay,optional"`
	SuccessThreshold       int     `hcl:"success_threshold,optional"`
}

// Auth configures authentication of the delete endpoint.
type Auth struct {
	// DeleteRole is the role required to delete fruits.
	DeleteRole string `hcl:"delete_role,optional"`

	Users []User `hcl:"user,block"`
	JWT   *JWT   `hcl:"jwt,block"`
	OIDC  *OIDC  `hcl:"oidc,block"`
}

// User is a basic auth user.
type User struct {
	Name     string   `hcl:"name,label"`
	Password string   `hcl:"password"`
	Roles    []string `hcl:"roles,optional"`
}

// JWT configures HMAC signed bearer tokens.
type JWT struct {
	HMACSecret string `hcl:"hmac_secret"`
	Issuer     string `hcl:"issuer,optional"`
}

// OIDC configures bearer tokens issued by an OpenID Connect provider.
type OIDC struct {
	IssuerURL string `hcl:"issuer_url"`
	ClientID  string `hcl:"client_id"`
}

const (
	defaultAddr            = "127.0.0.1:8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultDeleteRole      = "user"
)

// Default returns a configuration that serves an auto-migrated sqlite
// database with fault simulation off.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: &Server{
			Addr:            defaultAddr,
			ShutdownTimeout: defaultShutdownTimeout.String(),
		},
		Database: &Database{
			Driver:      database.DriverSQLite,
			Path:        "fruitstand.db",
			AutoMigrate: true,
		},
		Fruits: &Fruits{
			Delay:            faults.DefaultDelay.String(),
			ReadinessFruitID: int(health.DefaultProbeID),
			TopVotedLimit:    fruits.DefaultTopVotedLimit,
		},
		Resilience: &Resilience{},
		Auth: &Auth{
			DeleteRole: defaultDeleteRole,
			Users: []User{
				{Name: "alice", Password: "alice123", Roles: []string{"user"}},
			},
		},
	}
}

// Load reads the HCL configuration file at path from fs. Unset values are
// filled from Default and the result is validated.
func Load(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("configuration file path is required")
	}

	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return Parse(filepath.Base(path), src)
}

// Parse decodes HCL (or HCL JSON when filename ends in .json) from src.
func Parse(filename string, src []byte) (*Config, error) {
	cfg := &Config{}
	if err := hclsimple.Decode(filename, src, nil, cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()

	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	if c.Server == nil {
		c.Server = def.Server
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}

	if c.Database == nil {
		c.Database = def.Database
	}
	if c.Database.Driver == "" {
		c.Database.Driver = database.DriverSQLite
	}
	if c.Database.Driver == database.DriverSQLite && c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Database.Driver == database.DriverPostgres && c.Database.Port == 0 {
		c.Database.Port = 5432
	}

	if c.Fruits == nil {
		c.Fruits = def.Fruits
	}
	if c.Fruits.Delay == "" {
		c.Fruits.Delay = def.Fruits.Delay
	}
	if c.Fruits.ReadinessFruitID == 0 {
		c.Fruits.ReadinessFruitID = def.Fruits.ReadinessFruitID
	}
	if c.Fruits.TopVotedLimit == 0 {
		c.Fruits.TopVotedLimit = def.Fruits.TopVotedLimit
	}

	if c.Resilience == nil {
		c.Resilience = def.Resilience
	}

	if c.Auth == nil {
		c.Auth = def.Auth
	}
	if c.Auth.DeleteRole == "" {
		c.Auth.DeleteRole = defaultDeleteRole
	}
}

// Validate reports every invalid value in c.
func (c *Config) Validate() error {
	var result *multierror.Error

	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}

	if c.Server != nil {
		if err := validation.ValidateStruct(c.Server,
			validation.Field(&c.Server.Addr, validation.Required),
		); err != nil {
			result = multierror.Append(result, fmt.Errorf("server: %w", err))
		}
		result = appendDurationError(result, "server.shutdown_timeout", c.Server.ShutdownTimeout)
	}

	if c.Database != nil {
		db := c.Database
		if err := validation.ValidateStruct(db,
			validation.Field(&db.Driver, validation.Required,
				validation.In(database.DriverPostgres, database.DriverSQLite)),
			validation.Field(&db.Host, validation.When(db.Driver == database.DriverPostgres, validation.Required)),
			validation.Field(&db.DBName, validation.When(db.Driver == database.DriverPostgres, validation.Required)),
			validation.Field(&db.Port, validation.Min(0), validation.Max(65535)),
			validation.Field(&db.Path, validation.When(db.Driver == database.DriverSQLite, validation.Required)),
		); err != nil {
			result = multierror.Append(result, fmt.Errorf("database: %w", err))
		}
	}

	if c.Fruits != nil {
		if err := validation.ValidateStruct(c.Fruits,
			validation.Field(&c.Fruits.ReadinessFruitID, validation.Min(1)),
			validation.Field(&c.Fruits.TopVotedLimit, validation.Min(1)),
		); err != nil {
			result = multierror.Append(result, fmt.Errorf("fruits: %w", err))
		}
		result = appendDurationError(result, "fruits.delay", c.Fruits.Delay)
	}

	if c.Resilience != nil {
		result = appendPolicyErrors(result, "resilience.list_all", c.Resilience.ListAll)
		result = appendPolicyErrors(result, "resilience.top_voted", c.Resilience.TopVoted)
	}

	if c.Auth != nil {
		seen := make(map[string]bool, len(c.Auth.Users))
		for _, u := range c.Auth.Users {
			if u.Password == "" {
				result = multierror.Append(result, fmt.Errorf("auth.user %q: password cannot be blank", u.Name))
			}
			if seen[u.Name] {
				result = multierror.Append(result, fmt.Errorf("auth.user %q: defined more than once", u.Name))
			}
			seen[u.Name] = true
		}
		if c.Auth.JWT != nil && c.Auth.JWT.HMACSecret == "" {
			result = multierror.Append(result, errors.New("auth.jwt: hmac_secret cannot be blank"))
		}
		if c.Auth.OIDC != nil {
			if err := validation.ValidateStruct(c.Auth.OIDC,
				validation.Field(&c.Auth.OIDC.IssuerURL, validation.Required),
				validation.Field(&c.Auth.OIDC.ClientID, validation.Required),
			); err != nil {
				result = multierror.Append(result, fmt.Errorf("auth.oidc: %w", err))
			}
		}
	}

	return result.ErrorOrNil()
}

func appendDurationError(result *multierror.Error, field, value string) *multierror.Error {
	if value == "" {
		return result
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return multierror.Append(result, fmt.Errorf("%s: %w", field, err))
	}
	if d < 0 {
		return multierror.Append(result, fmt.Errorf("%s: must not be negative", field))
	}
	return result
}

func appendPolicyErrors(result *multierror.Error, field string, p *Policy) *multierror.Error {
	if p == nil {
		return result
	}
	result = appendDurationError(result, field+".timeout", p.Timeout)
	if p.MaxRetries < 0 {
		result = multierror.Append(result, fmt.Errorf("%s.max_retries: must not be negative", field))
	}
	if cb := p.CircuitBreaker; cb != nil {
		if err := validation.ValidateStruct(cb,
			validation.Field(&cb.RequestVolumeThreshold, validation.Min(0)),
			validation.Field(&cb.FailureRatio, validation.Min(0.0), validation.Max(1.0)),
			validation.Field(&cb.SuccessThreshold, validation.Min(0)),
		); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s.circuit_breaker: %w", field, err))
		}
		result = appendDurationError(result, field+".circuit_breaker.delay", cb.Delay)
	}
	return result
}

// mustDuration parses a duration already checked by Validate.
func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, _ := time.ParseDuration(s)
	return d
}

// LogLevelValue returns the configured hclog level.
func (c *Config) LogLevelValue() hclog.Level {
	return hclog.LevelFromString(strings.TrimSpace(c.LogLevel))
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	if c.Server == nil || c.Server.ShutdownTimeout == "" {
		return defaultShutdownTimeout
	}
	return mustDuration(c.Server.ShutdownTimeout)
}

// DatabaseConfig returns the connection settings of the fruit store.
func (c *Config) DatabaseConfig() database.Config {
	db := c.Database
	return database.Config{
		Driver:       db.Driver,
		Host:         db.Host,
		Port:         db.Port,
		User:         db.User,
		Password:     db.Password,
		DBName:       db.DBName,
		SSLMode:      db.SSLMode,
		Path:         db.Path,
		MaxIdleConns: db.MaxIdleConns,
		MaxOpenConns: db.MaxOpenConns,
	}
}

// FaultConfig returns the fault simulator settings.
func (c *Config) FaultConfig() faults.Config {
	return faults.Config{
		SimulateDelay:   c.Fruits.SimulateDelay,
		SimulateFailure: c.Fruits.SimulateFailure,
		Delay:           mustDuration(c.Fruits.Delay),
	}
}

// ReadinessFruitID returns the fruit id looked up by the readiness probe.
func (c *Config) ReadinessFruitID() uint {
	return uint(c.Fruits.ReadinessFruitID)
}

// ResilienceConfig returns the pipeline settings of the fruit reads.
func (c *Config) ResilienceConfig() fruits.ResilienceConfig {
	rc := fruits.DefaultResilienceConfig()
	if c.Resilience == nil {
		return rc
	}
	if p := c.Resilience.ListAll; p != nil {
		rc.ListAll = p.policyConfig()
	}
	if p := c.Resilience.TopVoted; p != nil {
		rc.TopVoted = p.policyConfig()
	}
	return rc
}

func (p *Policy) policyConfig() fruits.PolicyConfig {
	pc := fruits.PolicyConfig{
		Timeout:    mustDuration(p.Timeout),
		MaxRetries: uint64(p.MaxRetries),
	}
	if cb := p.CircuitBreaker; cb != nil {
		pc.Breaker = &resilience.BreakerSettings{
			RequestVolumeThreshold: uint32(cb.RequestVolumeThreshold),
			FailureRatio:           cb.FailureRatio,
			Delay:                  mustDuration(cb.Delay),
			SuccessThreshold:       uint32(cb.SuccessThreshold),
		}
	}
	return pc
}

// BasicUsers returns the basic auth users keyed by name.
func (c *Config) BasicUsers() map[string]auth.User {
	users := make(map[string]auth.User, len(c.Auth.Users))
	for _, u := range c.Auth.Users {
		users[u.Name] = auth.User{Password: u.Password, Roles: u.Roles}
	}
	return users
}
