package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// DatabaseFileName is the default SQLite file inside the config dir
	DatabaseFileName = "ingest.db"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "GDRV_INGEST_"
)

// Config holds application configuration
type Config struct {
	// FolderID is the Drive folder every connector is scoped to
	FolderID string `json:"folderId"`

	// SharedDriveID is set when FolderID lives in a shared drive
	SharedDriveID string `json:"sharedDriveId,omitempty"`

	// ServiceAccountKeyFile is a path to a service account JSON key
	ServiceAccountKeyFile string `json:"serviceAccountKeyFile,omitempty"`

	// ServiceAccountKeyring reads the key from the OS keyring instead of a file
	ServiceAccountKeyring bool `json:"serviceAccountKeyring"`

	// ImpersonateUser is the subject for domain-wide delegation
	ImpersonateUser string `json:"impersonateUser,omitempty"`

	Scopes []string `json:"scopes"`

	// DatabasePath is the SQLite file holding connectors and the change queue
	DatabasePath string `json:"databasePath,omitempty"`

	PageSize         int `json:"pageSize"`
	MaxBackfillPages int `json:"maxBackfillPages"`

	// MaxRetries is the maximum number of retries for Drive read calls
	MaxRetries int `json:"maxRetries"`

	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int `json:"retryBaseDelay"`

	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`

	// RequestTimeout is the HTTP timeout in seconds
	RequestTimeout int `json:"requestTimeout"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `json:"logLevel"`

	LogFile string `json:"logFile,omitempty"`

	DefaultOutputFormat types.OutputFormat `json:"defaultOutputFormat"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Scopes:              append([]string(nil), utils.DefaultScopes...),
		PageSize:            utils.DefaultPageSize,
		MaxBackfillPages:    10000,
		MaxRetries:          utils.DefaultMaxRetries,
		RetryBaseDelay:      utils.DefaultRetryDelayMs,
		RequestsPerSecond:   8,
		Burst:               10,
		RequestTimeout:      60,
		LogLevel:            "normal",
		DefaultOutputFormat: types.OutputFormatJSON,
	}
}

// Load loads configuration with precedence: env vars > config file > defaults.
// An empty path uses the default config location.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, invalid(err.Error())
		}
	}

	if err := cfg.loadFromFile(path); err != nil {
		// Config file not existing is not an error
		if !os.IsNotExist(err) {
			return nil, invalid(fmt.Sprintf("failed to load config file: %v", err))
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if cfg.DatabasePath == "" {
		dir, err := GetConfigDir()
		if err != nil {
			return nil, invalid(err.Error())
		}
		cfg.DatabasePath = filepath.Join(dir, DatabaseFileName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv(EnvPrefix + "FOLDER_ID"); v != "" {
		c.FolderID = v
	}
	if v := os.Getenv(EnvPrefix + "SHARED_DRIVE_ID"); v != "" {
		c.SharedDriveID = v
	}
	if v := os.Getenv(EnvPrefix + "SERVICE_ACCOUNT_KEY_FILE"); v != "" {
		c.ServiceAccountKeyFile = v
	}
	if v := os.Getenv(EnvPrefix + "SERVICE_ACCOUNT_KEYRING"); v != "" {
		c.ServiceAccountKeyring = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "IMPERSONATE_USER"); v != "" {
		c.ImpersonateUser = v
	}
	if v := os.Getenv(EnvPrefix + "SCOPES"); v != "" {
		c.Scopes = splitList(v)
	}
	if v := os.Getenv(EnvPrefix + "DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		c.DefaultOutputFormat = types.OutputFormat(v)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PAGE_SIZE", &c.PageSize},
		{"MAX_BACKFILL_PAGES", &c.MaxBackfillPages},
		{"MAX_RETRIES", &c.MaxRetries},
		{"RETRY_BASE_DELAY", &c.RetryBaseDelay},
		{"BURST", &c.Burst},
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
	}
	for _, f := range ints {
		v := os.Getenv(EnvPrefix + f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return invalid(fmt.Sprintf("%s%s must be an integer, got %q", EnvPrefix, f.name, v))
		}
		*f.dst = n
	}

	if v := os.Getenv(EnvPrefix + "REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return invalid(fmt.Sprintf("%sREQUESTS_PER_SECOND must be a number, got %q", EnvPrefix, v))
		}
		c.RequestsPerSecond = rps
	}
	return nil
}

// Save writes the configuration to path with restricted permissions
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting as a CONFIG_INVALID error
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FolderID) == "" {
		return invalid("folderId is required")
	}

	if c.ServiceAccountKeyFile != "" && c.ServiceAccountKeyring {
		return invalid("serviceAccountKeyFile and serviceAccountKeyring are mutually exclusive")
	}

	if len(c.Scopes) == 0 {
		return invalid("at least one OAuth scope is required")
	}

	if c.PageSize < 1 || c.PageSize > utils.MaxPageSize {
		return invalid(fmt.Sprintf("page size must be between 1 and %d, got: %d", utils.MaxPageSize, c.PageSize))
	}

	if c.MaxBackfillPages < 1 {
		return invalid(fmt.Sprintf("max backfill pages must be positive, got: %d", c.MaxBackfillPages))
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return invalid(fmt.Sprintf("max retries must be between 0 and 10, got: %d", c.MaxRetries))
	}

	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > 60000 {
		return invalid(fmt.Sprintf("retry base delay must be between 100ms and 60000ms, got: %d", c.RetryBaseDelay))
	}

	if c.RequestsPerSecond <= 0 {
		return invalid(fmt.Sprintf("requests per second must be positive, got: %v", c.RequestsPerSecond))
	}

	if c.Burst < 1 {
		return invalid(fmt.Sprintf("burst must be at least 1, got: %d", c.Burst))
	}

	if c.RequestTimeout < 1 || c.RequestTimeout > 3600 {
		return invalid(fmt.Sprintf("request timeout must be between 1 and 3600 seconds, got: %d", c.RequestTimeout))
	}

	if c.DefaultOutputFormat != types.OutputFormatJSON &&
		c.DefaultOutputFormat != types.OutputFormatTable {
		return invalid(fmt.Sprintf("invalid output format: %s (must be 'json' or 'table')", c.DefaultOutputFormat))
	}

	validLogLevels := []string{"quiet", "normal", "verbose", "debug"}
	isValid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return invalid(fmt.Sprintf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}

	return nil
}

// GetRetryBaseDelay returns the retry base delay as a duration
func (c *Config) GetRetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// GetRequestTimeout returns the request timeout as a duration
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "gdrv-ingest"), nil
}

func invalid(msg string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeConfigInvalid, msg).Build())
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
