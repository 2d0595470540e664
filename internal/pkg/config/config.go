package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/isoroute/internal/core/domain"
	"github.com/samirrijal/isoroute/internal/pkg/logging"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OSRM      OSRMConfig      `mapstructure:"osrm"`
	Isochrone IsochroneConfig `mapstructure:"isochrone"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	// RequestTimeout bounds a single isochrone computation, in seconds.
	RequestTimeout int `mapstructure:"request_timeout"`
}

type OSRMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Profile string `mapstructure:"profile"`
	Timeout int    `mapstructure:"timeout"` // seconds, per request
	// ServerClass overrides the class derived from BaseURL ("default" or "demo").
	ServerClass string `mapstructure:"server_class"`
}

// Class returns the configured server class, or the one implied by BaseURL.
func (o OSRMConfig) Class() (domain.ServerClass, error) {
	if o.ServerClass == "" {
		return domain.ClassifyServer(o.BaseURL), nil
	}
	return domain.LookupServerClass(o.ServerClass)
}

type IsochroneConfig struct {
	Res    int       `mapstructure:"res"`
	Smooth bool      `mapstructure:"smooth"`
	K      float64   `mapstructure:"k"`
	Breaks []float64 `mapstructure:"breaks"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OSRMTimeout returns the per-request routing timeout.
func (c *Config) OSRMTimeout() time.Duration {
	return time.Duration(c.OSRM.Timeout) * time.Second
}

// IsochroneDefaults returns the parameters used when a request leaves them out.
func (c *Config) IsochroneDefaults() (domain.IsochroneParams, error) {
	class, err := c.OSRM.Class()
	if err != nil {
		return domain.IsochroneParams{}, err
	}
	return domain.IsochroneParams{
		Breaks:  append([]float64(nil), c.Isochrone.Breaks...),
		Res:     c.Isochrone.Res,
		Smooth:  c.Isochrone.Smooth,
		K:       c.Isochrone.K,
		Profile: c.OSRM.Profile,
		Server:  class,
	}, nil
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ISOROUTE_OSRM_BASE_URL → osrm.base_url
	v.SetEnvPrefix("ISOROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.request_timeout", 120)
	v.SetDefault("osrm.base_url", "http://localhost:5000")
	v.SetDefault("osrm.profile", "car")
	v.SetDefault("osrm.timeout", 30)
	v.SetDefault("osrm.server_class", "")
	v.SetDefault("isochrone.res", domain.DefaultResolution)
	v.SetDefault("isochrone.smooth", false)
	v.SetDefault("isochrone.k", 0)
	v.SetDefault("isochrone.breaks", []float64{0, 5, 10, 15})
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "isoroute")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "isoroute")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "isochrone-batch")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}

	if c.OSRM.BaseURL == "" {
		errs = append(errs, "osrm.base_url is required")
	}
	if err := domain.ValidateProfile(c.OSRM.Profile); err != nil {
		errs = append(errs, fmt.Sprintf("osrm.profile: %v", err))
	}
	if c.OSRM.Timeout <= 0 {
		errs = append(errs, "osrm.timeout must be positive")
	}
	if _, err := c.OSRM.Class(); err != nil {
		errs = append(errs, fmt.Sprintf("osrm.server_class: %v", err))
	}

	if c.Isochrone.Res < 2 {
		errs = append(errs, fmt.Sprintf("isochrone.res must be at least 2, got %d", c.Isochrone.Res))
	}
	if c.Isochrone.K < 0 {
		errs = append(errs, "isochrone.k must not be negative")
	}
	if _, err := domain.NormalizeBreaks(c.Isochrone.Breaks); err != nil {
		errs = append(errs, fmt.Sprintf("isochrone.breaks: %v", err))
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level: %v", err))
	}
	if f := strings.ToLower(c.Log.Format); f != "json" && f != "text" {
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
