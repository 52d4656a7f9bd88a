// Package config handles loading and resolving easctl configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags (--host, --access-token, ...)
//  2. Environment variables (EAS_HOST, EAS_ACCESS_TOKEN, ...)
//  3. config.json in the current working directory
//
// A .env file in the working directory, when present, is folded into the
// environment before layer 2 is read. Variables already set in the real
// environment take precedence over .env values.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigFile = "config.json"
	DefaultFormat     = "table"
	DefaultProtocol   = "https"
	DefaultTimeout    = 60 * time.Second
	DefaultPollRate   = 0.2 // wp watch polls per second

	EnvHost          = "EAS_HOST"
	EnvPort          = "EAS_PORT"
	EnvProtocol      = "EAS_PROTOCOL"
	EnvAccessToken   = "EAS_ACCESS_TOKEN"
	EnvClientID      = "EAS_CLIENT_ID"
	EnvClientSecret  = "EAS_CLIENT_SECRET"
	EnvUsername      = "EAS_USERNAME"
	EnvPassword      = "EAS_PASSWORD"
	EnvTokenEndpoint = "EAS_TOKEN_ENDPOINT"
	EnvAudience      = "EAS_AUDIENCE"
	EnvCAFile        = "EAS_CA_FILE"
	EnvDBPath        = "EASCTL_DB_PATH"
)

// File is the on-disk representation of config.json.
type File struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Protocol      string `json:"protocol"`
	AccessToken   string `json:"access_token"`
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	TokenEndpoint string `json:"token_endpoint"`
	Audience      string `json:"audience"`
	VerifyCert    *bool  `json:"verify_certificate"`
	CAFile        string `json:"ca_file"`
	Timeout       string `json:"timeout"`
	DefaultFormat string `json:"default_format"`
	DBPath        string `json:"db_path"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	Host          string
	Port          int
	Protocol      string
	AccessToken   string
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	TokenEndpoint string
	Audience      string
	VerifyCert    *bool
	CAFile        string
	Timeout       time.Duration
	Format        string
	DBPath        string
	ConfigPath    string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Flags carries the values of global CLI flags into Load.
// Zero values mean the flag was not set.
type Flags struct {
	Host        string
	Port        int
	AccessToken string
}

// Load resolves configuration from all sources.
func Load(flags Flags) (*Config, error) {
	cfg := &Config{
		Protocol: DefaultProtocol,
		Timeout:  DefaultTimeout,
		Format:   DefaultFormat,
	}

	// .env fills gaps in the environment; real env vars win.
	_ = godotenv.Load()

	// Layer 1: config.json (lowest priority)
	if f, path, err := loadFile(); err == nil {
		applyFile(cfg, f, path)
	}

	// Layer 2: environment variables
	applyEnv(cfg)

	// Layer 3: CLI flags (highest priority)
	if flags.Host != "" {
		cfg.Host = flags.Host
	}
	if flags.Port > 0 {
		cfg.Port = flags.Port
	}
	if flags.AccessToken != "" {
		cfg.AccessToken = flags.AccessToken
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".easctl", "easctl.db")
		}
	}

	return cfg, nil
}

// Validate returns an error if required fields are missing.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New(
			"server host not found.\n\n" +
				"Set it one of these ways:\n" +
				"  1. CLI flag:        easctl --host eas.example.com ...\n" +
				"  2. Environment:     export EAS_HOST=eas.example.com\n" +
				"  3. config.json:     {\"host\": \"eas.example.com\"}",
		)
	}
	return nil
}

// HasCredentials reports whether OAuth client credentials are configured.
func (c *Config) HasCredentials() bool {
	return c.ClientID != "" || c.TokenEndpoint != ""
}

// RedactedToken returns the access token with most characters replaced by
// asterisks. Safe for logging and display.
func (c *Config) RedactedToken() string {
	if c.AccessToken == "" {
		return ""
	}
	if len(c.AccessToken) <= 4 {
		return "****"
	}
	return c.AccessToken[:2] + "****" + c.AccessToken[len(c.AccessToken)-2:]
}

// applyEnv copies values from EAS_* environment variables into cfg,
// skipping any that are unset.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Port = p
		}
	}
	if v := os.Getenv(EnvProtocol); v != "" {
		cfg.Protocol = v
	}
	if v := os.Getenv(EnvAccessToken); v != "" {
		cfg.AccessToken = v
	}
	if v := os.Getenv(EnvClientID); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		cfg.ClientSecret = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv(EnvTokenEndpoint); v != "" {
		cfg.TokenEndpoint = v
	}
	if v := os.Getenv(EnvAudience); v != "" {
		cfg.Audience = v
	}
	if v := os.Getenv(EnvCAFile); v != "" {
		cfg.CAFile = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
}

// loadFile attempts to read config.json from the current working directory.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s", path)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.Host != "" {
		cfg.Host = f.Host
	}
	if f.Port > 0 {
		cfg.Port = f.Port
	}
	if f.Protocol != "" {
		cfg.Protocol = f.Protocol
	}
	if f.AccessToken != "" {
		cfg.AccessToken = f.AccessToken
	}
	if f.ClientID != "" {
		cfg.ClientID = f.ClientID
	}
	if f.ClientSecret != "" {
		cfg.ClientSecret = f.ClientSecret
	}
	if f.Username != "" {
		cfg.Username = f.Username
	}
	if f.Password != "" {
		cfg.Password = f.Password
	}
	if f.TokenEndpoint != "" {
		cfg.TokenEndpoint = f.TokenEndpoint
	}
	if f.Audience != "" {
		cfg.Audience = f.Audience
	}
	if f.VerifyCert != nil {
		cfg.VerifyCert = f.VerifyCert
	}
	if f.CAFile != "" {
		cfg.CAFile = f.CAFile
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `easctl config init`.
func Template() File {
	return File{
		Host:          "",
		Port:          443,
		Protocol:      DefaultProtocol,
		Timeout:       "60s",
		DefaultFormat: DefaultFormat,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
