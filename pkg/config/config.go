package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for goingviral
type Config struct {
	// Scraping service access
	Apify ApifyConfig `yaml:"apify" json:"apify"`

	// Per-variant overrides keyed by variant name
	Variants map[string]VariantConfig `yaml:"variants,omitempty" json:"variants,omitempty"`

	// HTTP endpoint settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Magic-link identity provider
	Identity IdentityConfig `yaml:"identity" json:"identity"`

	// Launch throttling
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Snapshot persistence
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// CLI batch fetching
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ApifyConfig holds the scraping service credentials and transport settings
type ApifyConfig struct {
	Token          string        `yaml:"token,omitempty" json:"-"`
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	DatasetRetries int           `yaml:"dataset_retries" json:"dataset_retries"`
}

// VariantConfig overrides the built-in settings of one endpoint variant.
// Zero values leave the built-in setting alone.
type VariantConfig struct {
	ActorID                 string        `yaml:"actor_id,omitempty" json:"actor_id,omitempty"`
	PollInterval            time.Duration `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
	MaxAttempts             int           `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	ResultsLimit            int           `yaml:"results_limit,omitempty" json:"results_limit,omitempty"`
	Engagement              string        `yaml:"engagement,omitempty" json:"engagement,omitempty"`
	TolerateTransientErrors *bool         `yaml:"tolerate_transient_errors,omitempty" json:"tolerate_transient_errors,omitempty"`
	Disabled                bool          `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// ServerConfig holds HTTP endpoint settings
type ServerConfig struct {
	ListenAddr        string        `yaml:"listen_addr" json:"listen_addr"`
	AllowedOrigin     string        `yaml:"allowed_origin" json:"allowed_origin"`
	AllowedHeaders    string        `yaml:"allowed_headers" json:"allowed_headers"`
	StrictStatusCodes bool          `yaml:"strict_status_codes" json:"strict_status_codes"`
	RequireSession    bool          `yaml:"require_session" json:"require_session"`
	DefaultVariant    string        `yaml:"default_variant" json:"default_variant"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// IdentityConfig holds the Supabase project used for magic-link login
type IdentityConfig struct {
	SupabaseURL       string `yaml:"supabase_url" json:"supabase_url"`
	AnonKey           string `yaml:"anon_key,omitempty" json:"-"`
	RedirectTo        string `yaml:"redirect_to" json:"redirect_to"`
	MagicLinksPerHour int    `yaml:"magic_links_per_hour" json:"magic_links_per_hour"`
}

// RateLimitConfig holds launch throttling configuration
type RateLimitConfig struct {
	LaunchesPerMinute int `yaml:"launches_per_minute" json:"launches_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// StorageConfig selects where fetched snapshots are kept
type StorageConfig struct {
	Driver    string `yaml:"driver" json:"driver"`
	Directory string `yaml:"directory" json:"directory"`
	DSN       string `yaml:"dsn,omitempty" json:"-"`
}

// FetchConfig holds CLI batch settings
type FetchConfig struct {
	Concurrency   int    `yaml:"concurrency" json:"concurrency"`
	CheckpointDir string `yaml:"checkpoint_dir" json:"checkpoint_dir"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"`
}

// Storage drivers
const (
	StorageNone     = "none"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Apify: ApifyConfig{
			BaseURL:        "https://api.apify.com/v2",
			Timeout:        30 * time.Second,
			DatasetRetries: 3,
		},
		Server: ServerConfig{
			ListenAddr:        ":8080",
			AllowedOrigin:     "*",
			AllowedHeaders:    "authorization, x-client-info, apikey, content-type",
			StrictStatusCodes: false,
			RequireSession:    false,
			DefaultVariant:    "instagram-data",
			RequestTimeout:    6 * time.Minute,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Identity: IdentityConfig{
			MagicLinksPerHour: 5,
		},
		RateLimit: RateLimitConfig{
			LaunchesPerMinute: 30,
			BurstSize:         5,
		},
		Storage: StorageConfig{
			Driver:    StorageNone,
			Directory: "./snapshots",
		},
		Fetch: FetchConfig{
			Concurrency: 3,
		},
		Notifications: NotificationConfig{
			Enabled:          false,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// The token name used by the deployed functions wins over Apify's own.
	if token := os.Getenv("APIFY_API_KEY"); token != "" {
		c.Apify.Token = token
	} else if token := os.Getenv("APIFY_API_TOKEN"); token != "" {
		c.Apify.Token = token
	}
	if baseURL := os.Getenv("GOINGVIRAL_APIFY_BASE_URL"); baseURL != "" {
		c.Apify.BaseURL = baseURL
	}

	// Identity provider
	if url := os.Getenv("SUPABASE_URL"); url != "" {
		c.Identity.SupabaseURL = url
	}
	if key := os.Getenv("SUPABASE_ANON_KEY"); key != "" {
		c.Identity.AnonKey = key
	}
	if redirect := os.Getenv("GOINGVIRAL_REDIRECT_TO"); redirect != "" {
		c.Identity.RedirectTo = redirect
	}

	// Server
	if addr := os.Getenv("GOINGVIRAL_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		c.Server.ListenAddr = ":" + port
	}
	if origin := os.Getenv("GOINGVIRAL_ALLOWED_ORIGIN"); origin != "" {
		c.Server.AllowedOrigin = origin
	}
	if v, ok := envBool("GOINGVIRAL_STRICT_STATUS_CODES"); ok {
		c.Server.StrictStatusCodes = v
	}
	if v, ok := envBool("GOINGVIRAL_REQUIRE_SESSION"); ok {
		c.Server.RequireSession = v
	}

	// Rate limiting
	if v, ok := envInt("GOINGVIRAL_LAUNCHES_PER_MINUTE"); ok && v > 0 {
		c.RateLimit.LaunchesPerMinute = v
	}

	// Storage
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Storage.DSN = dsn
		if c.Storage.Driver == "" || c.Storage.Driver == StorageNone {
			c.Storage.Driver = StoragePostgres
		}
	}
	if driver := os.Getenv("GOINGVIRAL_STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = strings.ToLower(driver)
	}
	if dir := os.Getenv("GOINGVIRAL_STORAGE_DIR"); dir != "" {
		c.Storage.Directory = dir
	}

	// Fetch
	if v, ok := envInt("GOINGVIRAL_CONCURRENCY"); ok && v > 0 {
		c.Fetch.Concurrency = v
	}

	// Notifications
	if v, ok := envBool("GOINGVIRAL_NOTIFICATIONS_ENABLED"); ok {
		c.Notifications.Enabled = v
	}

	// Logging
	if logLevel := os.Getenv("GOINGVIRAL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if format := os.Getenv("GOINGVIRAL_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}

	return nil
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".goingviral.yaml",
		".goingviral.yml",
		filepath.Join(home, ".config", "goingviral", "config.yaml"),
		filepath.Join(home, ".config", "goingviral", "config.yml"),
		filepath.Join(home, ".goingviral.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath is where `config init` writes a new file.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "goingviral", "config.yaml")
}

// HasAPIToken reports whether a scraping service token is configured.
// A missing token is not a validation error: the server must still start
// and report the problem per request.
func (c *Config) HasAPIToken() bool {
	return strings.TrimSpace(c.Apify.Token) != ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Apify.BaseURL == "" {
		errs = append(errs, errors.New("apify base URL is required"))
	}
	if c.Apify.Timeout <= 0 {
		errs = append(errs, errors.New("apify timeout must be positive"))
	}
	if c.Apify.DatasetRetries < 0 {
		errs = append(errs, errors.New("dataset retries cannot be negative"))
	}

	for name, v := range c.Variants {
		if v.MaxAttempts < 0 {
			errs = append(errs, fmt.Errorf("variant %s: max attempts cannot be negative", name))
		}
		if v.PollInterval < 0 {
			errs = append(errs, fmt.Errorf("variant %s: poll interval cannot be negative", name))
		}
		switch v.Engagement {
		case "", "view_ratio", "per_hundred":
		default:
			errs = append(errs, fmt.Errorf("variant %s: unknown engagement formula %q", name, v.Engagement))
		}
	}

	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Server.DefaultVariant == "" {
		errs = append(errs, errors.New("default variant is required"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Server.RequireSession && (c.Identity.SupabaseURL == "" || c.Identity.AnonKey == "") {
		errs = append(errs, errors.New("require_session needs identity supabase_url and anon_key"))
	}

	if c.RateLimit.LaunchesPerMinute <= 0 {
		errs = append(errs, errors.New("launches per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	switch c.Storage.Driver {
	case StorageNone, "":
	case StorageFile:
		if c.Storage.Directory == "" {
			errs = append(errs, errors.New("file storage requires a directory"))
		}
	case StoragePostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("postgres storage requires a DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if c.Fetch.Concurrency <= 0 {
		errs = append(errs, errors.New("fetch concurrency must be positive"))
	}
	if c.Fetch.Concurrency > 10 {
		errs = append(errs, errors.New("fetch concurrency should not exceed 10"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, errors.New("invalid log format"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if addr, ok := flags["listen"].(string); ok && addr != "" {
		c.Server.ListenAddr = addr
	}
	if strict, ok := flags["strict-status"].(bool); ok && strict {
		c.Server.StrictStatusCodes = true
	}
	if concurrent, ok := flags["concurrency"].(int); ok && concurrent > 0 {
		c.Fetch.Concurrency = concurrent
	}
	if driver, ok := flags["storage"].(string); ok && driver != "" {
		c.Storage.Driver = driver
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if format, ok := flags["log-format"].(string); ok && format != "" {
		c.Logging.Format = format
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".goingviral.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
