package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "TANKEVENTS"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Historian HistorianConfig `yaml:"historian" envconfig:"HISTORIAN"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port             int             `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout      time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout     time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout      time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout  time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	OperationTimeout time.Duration   `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" validate:"gt=0"`
	RateLimit        RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=stdout console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// HistorianConfig contains the historian REST API connection settings.
// Fields use split_words so that no unprefixed variable such as USERNAME or PORT is consulted.
type HistorianConfig struct {
	Server             string        `yaml:"server" split_words:"true"`
	Port               int           `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	Scheme             string        `yaml:"scheme" split_words:"true" validate:"oneof=http https"`
	TokenURL           string        `yaml:"token_url" split_words:"true"`
	ClientID           string        `yaml:"client_id" split_words:"true"`
	ClientSecret       string        `yaml:"client_secret" split_words:"true"`
	Username           string        `yaml:"username" split_words:"true"`
	Password           string        `yaml:"password" split_words:"true"`
	Mode               string        `yaml:"mode" split_words:"true" validate:"oneof=raw interpolated sampled"`
	SampleInterval     time.Duration `yaml:"sample_interval" split_words:"true" validate:"gt=0"`
	Timeout            time.Duration `yaml:"timeout" split_words:"true" validate:"gt=0"`
	RequestsPerSecond  float64       `yaml:"requests_per_second" split_words:"true" validate:"gt=0"`
	Burst              int           `yaml:"burst" split_words:"true" validate:"min=1"`
	MaxConcurrency     int           `yaml:"max_concurrency" split_words:"true" validate:"min=1"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" split_words:"true"`
}

// BaseURL returns the historian REST API root
func (h HistorianConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d/historian-rest-api/v1", h.Scheme, h.Server, h.Port)
}

// TokenEndpoint returns the token URL, substituting the server for a "{}" placeholder
func (h HistorianConfig) TokenEndpoint() string {
	return strings.ReplaceAll(h.TokenURL, "{}", h.Server)
}

// historianCredentials is validated only when a run actually talks to the historian
type historianCredentials struct {
	Server       string `validate:"required,hostname_rfc1123|ip"`
	TokenURL     string `validate:"required,url"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	Username     string `validate:"required"`
	Password     string `validate:"required"`
}

// ValidateCredentials checks the settings needed to authenticate against the historian
func (h HistorianConfig) ValidateCredentials() error {
	creds := historianCredentials{
		Server:       h.Server,
		TokenURL:     h.TokenEndpoint(),
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		Username:     h.Username,
		Password:     h.Password,
	}
	if err := validator.New().Struct(creds); err != nil {
		return fmt.Errorf("historian credentials: %w", err)
	}
	return nil
}

// ReportConfig contains the event report parameters
type ReportConfig struct {
	Site            string             `yaml:"site" envconfig:"SITE" validate:"required"`
	PlantCode       int                `yaml:"plant_code" envconfig:"PLANT_CODE" validate:"gt=0"`
	MinEventMinutes float64            `yaml:"min_event_minutes" envconfig:"MIN_EVENT_MINUTES" validate:"gte=0"`
	RailCarCapacity float64            `yaml:"rail_car_capacity" envconfig:"RAIL_CAR_CAPACITY" validate:"gt=0"`
	UngroundedTanks map[string]float64 `yaml:"ungrounded_tanks" envconfig:"UNGROUNDED_TANKS" validate:"dive,gt=0"`
	Workers         int                `yaml:"workers" envconfig:"WORKERS" validate:"min=1"`
	Workbook        bool               `yaml:"workbook" envconfig:"WORKBOOK"`
}

// TelemetryConfig contains OpenTelemetry settings
type TelemetryConfig struct {
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" validate:"min=0"`
	WriteBufferSize int `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" validate:"min=0"`
	// AllowedOrigins restricts browser origins; empty allows all
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// Load builds the configuration from defaults, the optional YAML file and the environment
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file; an empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	applyLegacyEnv(&cfg.Historian)

	// Fields without a matching variable keep their current value
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyLegacyEnv reads the unprefixed variable names the extraction job has always used
func applyLegacyEnv(h *HistorianConfig) {
	legacy := []struct {
		name  string
		field *string
	}{
		{"client_id", &h.ClientID},
		{"client_secret", &h.ClientSecret},
		{"ion_username", &h.Username},
		{"ion_password", &h.Password},
		{"server", &h.Server},
		{"token_url", &h.TokenURL},
	}
	for _, l := range legacy {
		if v, ok := os.LookupEnv(l.name); ok && v != "" {
			*l.field = v
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Logging.Output == "console" {
		c.Logging.Output = "stdout"
	}
	if c.Logging.Output != "stdout" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			ShutdownTimeout:  30 * time.Second,
			OperationTimeout: DefaultOperationTimeout,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			LogsDir:    "logs",
			RosterName: DefaultRosterFileName,
			TagsName:   DefaultTagsFileName,
		},
		Historian: HistorianConfig{
			Port:              443,
			Scheme:            "https",
			Mode:              "raw",
			SampleInterval:    DefaultSampleInterval,
			Timeout:           DefaultHistorianTimeout,
			RequestsPerSecond: DefaultHistorianRPS,
			Burst:             DefaultHistorianBurst,
			MaxConcurrency:    DefaultHistorianParallel,
		},
		Report: ReportConfig{
			Site:            DefaultSite,
			PlantCode:       DefaultPlantCode,
			MinEventMinutes: DefaultMinEventMinutes,
			RailCarCapacity: DefaultRailCarCapacity,
			UngroundedTanks: DefaultUngroundedTanks(),
			Workers:         1,
			Workbook:        true,
		},
		Telemetry: TelemetryConfig{
			Environment:   "development",
			EnableMetrics: true,
			TraceExporter: "none",
			SampleRatio:   1.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}
