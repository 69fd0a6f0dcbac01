package common

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Log        LogConfig
	Vision     VisionConfig `validate:"-"`
	Processing ProcessingConfig
	Output     OutputConfig
	Database   DatabaseConfig
	Server     ServerConfig
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn warning error"`
	Format string `validate:"oneof=text json"`
}

// VisionConfig configures the Document Intelligence client. It is
// validated separately since only analyzing commands need it.
type VisionConfig struct {
	Endpoint       string        `validate:"required,url"`
	APIKey         string        `validate:"required"`
	Model          string        `validate:"required"`
	APIVersion     string        `validate:"required"`
	MinInterval    time.Duration `validate:"gte=0"`
	PollInterval   time.Duration `validate:"gt=0"`
	PollTimeout    time.Duration `validate:"gt=0"`
	MaxRetries     int           `validate:"min=1,max=10"`
	MinBackoff     time.Duration `validate:"gte=0"`
	MaxBackoff     time.Duration `validate:"gte=0"`
	RequestTimeout time.Duration `validate:"gt=0"`
}

type ProcessingConfig struct {
	MaxThreads     int           `validate:"min=1,max=64"`
	MaxFiles       int           `validate:"gte=0"`
	ProcessTimeout time.Duration `validate:"gt=0"`
}

type OutputConfig struct {
	Dir            string `validate:"required"`
	RetryQueueFile string `validate:"required"`
}

// RetryQueuePath is the retry queue file inside the output directory.
func (o OutputConfig) RetryQueuePath() string {
	if filepath.IsAbs(o.RetryQueueFile) {
		return o.RetryQueueFile
	}
	return filepath.Join(o.Dir, o.RetryQueueFile)
}

// DatabaseConfig is optional; an empty DSN disables persistence.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32 `validate:"gte=0"`
	MinConns         int32 `validate:"gte=0"`
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

type ServerConfig struct {
	HTTPAddr        string `validate:"required"`
	GRPCAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64 `validate:"gt=0"`
}

const defaultConfigYAML = `
log:
  level: info
  format: text
vision:
  model: prebuilt-receipt
  api_version: "2024-11-30"
  min_interval: 30s
  poll_interval: 5s
  poll_timeout: 60s
  max_retries: 3
  min_backoff: 4s
  max_backoff: 10s
  request_timeout: 60s
processing:
  max_threads: 3
  max_files: 10
  process_timeout: 5m
output:
  dir: ./output
  retry_queue_file: receipt_retry_queue.json
database:
  dsn: ""
  max_conns: 10
  min_conns: 1
  max_conn_lifetime: 30m
  max_conn_idle_time: 5m
  dial_timeout: 3s
  statement_timeout: 0s
server:
  http_addr: ":8080"
  grpc_addr: ":9090"
  read_timeout: 30s
  write_timeout: 120s
  shutdown_timeout: 15s
  max_upload_bytes: 471859200
`

// envBindings maps config keys to the environment variables that override
// them.
var envBindings = map[string]string{
	"log.level":                   "LOG_LEVEL",
	"log.format":                  "LOG_FORMAT",
	"vision.endpoint":             "VISION_ENDPOINT",
	"vision.api_key":              "VISION_API_KEY",
	"vision.model":                "VISION_MODEL",
	"vision.api_version":          "VISION_API_VERSION",
	"vision.min_interval":         "VISION_MIN_INTERVAL",
	"vision.poll_interval":        "POLLING_INTERVAL",
	"vision.poll_timeout":         "POLLING_TIMEOUT",
	"vision.max_retries":          "MAX_RETRIES",
	"vision.request_timeout":      "VISION_REQUEST_TIMEOUT",
	"processing.max_threads":      "MAX_THREADS",
	"processing.max_files":        "MAX_FILES",
	"processing.process_timeout":  "PROCESS_TIMEOUT",
	"output.dir":                  "OUTPUT_DIR",
	"output.retry_queue_file":     "RETRY_QUEUE_FILE",
	"database.dsn":                "DB_URL",
	"database.max_conns":          "DB_MAX_CONNS",
	"database.min_conns":          "DB_MIN_CONNS",
	"database.max_conn_lifetime":  "DB_MAX_CONN_LIFETIME",
	"database.max_conn_idle_time": "DB_MAX_CONN_IDLE_TIME",
	"database.dial_timeout":       "DB_DIAL_TIMEOUT",
	"database.statement_timeout":  "DB_STATEMENT_TIMEOUT",
	"server.http_addr":            "HTTP_ADDR",
	"server.grpc_addr":            "GRPC_ADDR",
	"server.max_upload_bytes":     "MAX_UPLOAD_BYTES",
}

// LoadConfig reads the embedded defaults, then configFile (if set), then
// environment variables. Variables from envFiles (default ".env") are
// loaded first and never override the real environment.
func LoadConfig(configFile string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, NewAppError("CONFIG_ERROR", "failed to load env file "+f, err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultConfigYAML)); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "failed to read default config", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "failed to read config file "+configFile, err)
		}
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "failed to bind "+env, err)
		}
	}

	return &Config{
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Vision: VisionConfig{
			Endpoint:       strings.TrimRight(v.GetString("vision.endpoint"), "/"),
			APIKey:         v.GetString("vision.api_key"),
			Model:          v.GetString("vision.model"),
			APIVersion:     v.GetString("vision.api_version"),
			MinInterval:    getDuration(v, "vision.min_interval"),
			PollInterval:   getDuration(v, "vision.poll_interval"),
			PollTimeout:    getDuration(v, "vision.poll_timeout"),
			MaxRetries:     v.GetInt("vision.max_retries"),
			MinBackoff:     getDuration(v, "vision.min_backoff"),
			MaxBackoff:     getDuration(v, "vision.max_backoff"),
			RequestTimeout: getDuration(v, "vision.request_timeout"),
		},
		Processing: ProcessingConfig{
			MaxThreads:     v.GetInt("processing.max_threads"),
			MaxFiles:       v.GetInt("processing.max_files"),
			ProcessTimeout: getDuration(v, "processing.process_timeout"),
		},
		Output: OutputConfig{
			Dir:            v.GetString("output.dir"),
			RetryQueueFile: v.GetString("output.retry_queue_file"),
		},
		Database: DatabaseConfig{
			DSN:              v.GetString("database.dsn"),
			MaxConns:         v.GetInt32("database.max_conns"),
			MinConns:         v.GetInt32("database.min_conns"),
			MaxConnLifetime:  getDuration(v, "database.max_conn_lifetime"),
			MaxConnIdleTime:  getDuration(v, "database.max_conn_idle_time"),
			DialTimeout:      getDuration(v, "database.dial_timeout"),
			StatementTimeout: getDuration(v, "database.statement_timeout"),
		},
		Server: ServerConfig{
			HTTPAddr:        v.GetString("server.http_addr"),
			GRPCAddr:        v.GetString("server.grpc_addr"),
			ReadTimeout:     getDuration(v, "server.read_timeout"),
			WriteTimeout:    getDuration(v, "server.write_timeout"),
			ShutdownTimeout: getDuration(v, "server.shutdown_timeout"),
			MaxUploadBytes:  v.GetInt64("server.max_upload_bytes"),
		},
	}, nil
}

// getDuration accepts Go durations ("1m30s") and bare seconds ("1.5").
func getDuration(v *viper.Viper, key string) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}

// Validate checks everything except the Vision section.
func (c *Config) Validate() error {
	return ValidateStruct("CONFIG_ERROR", c)
}

// ValidateVision checks the remote analysis settings.
func (c *Config) ValidateVision() error {
	if c.Vision.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "VISION_ENDPOINT is required", ErrInvalidInput)
	}
	if c.Vision.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "VISION_API_KEY is required", ErrInvalidInput)
	}
	return ValidateStruct("CONFIG_ERROR", c.Vision)
}
