package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/strata/xtime"
)

// Config represents the application configuration, backed by a filesystem for
// persistence.
type Config struct {
	Server Server
	Auth   Auth

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}

	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that unmarshalling JSON doesn't fail if the file doesn't exist or is empty.
	if len(configJSON) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem as JSON.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}
	if err = vfs.WriteFile(c.fs, c.path, configJSON, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

// Server defines configuration options specific to the HTTP server.
type Server struct {
	// Address is the network address in [host]:port format the server will listen on.
	Address sql.Null[string] `json:"address"`
	// RateLimit is the number of requests per second each client is allowed to
	// make to the API. Rate limiting is disabled if it's not set.
	RateLimit sql.Null[float64] `json:"rate_limit"`
	// RateBurst is the number of requests a client can make at once, above
	// RateLimit. Default: 1.
	RateBurst sql.Null[int] `json:"rate_burst"`
}

// Auth defines configuration options of API authentication.
type Auth struct {
	// TrustedUserHeader is the name of a request header carrying the name of an
	// already authenticated user, e.g. set by a reverse proxy. It must only be
	// enabled when the API isn't reachable without going through the proxy.
	TrustedUserHeader sql.Null[string] `json:"trusted_user_header"`
	// AllowedNetworks are the client IP addresses allowed to access the API, in
	// plain, CIDR or range notation. All clients are allowed if it's empty.
	AllowedNetworks []string `json:"allowed_networks"`
	// CacheTTL is the amount of time authenticated users are cached for.
	// It serializes from/to xtime duration strings, e.g. "30s" or "1d". Caching is disabled
	// if it's 0. Default: 1 minute.
	CacheTTL sql.Null[time.Duration] `json:"cache_ttl"`
}

type cfgWrapper struct {
	Server srvCfgWrapper  `json:"server"`
	Auth   authCfgWrapper `json:"auth"`
}
type srvCfgWrapper struct {
	Address   string  `json:"address,omitempty"`
	RateLimit float64 `json:"rate_limit,omitempty"`
	RateBurst int     `json:"rate_burst,omitempty"`
}
type authCfgWrapper struct {
	TrustedUserHeader string   `json:"trusted_user_header,omitempty"`
	AllowedNetworks   []string `json:"allowed_networks,omitempty"`
	CacheTTL          string   `json:"cache_ttl,omitempty"`
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	w := cfgWrapper{}

	if c.Server.Address.Valid {
		w.Server.Address = c.Server.Address.V
	}
	if c.Server.RateLimit.Valid {
		w.Server.RateLimit = c.Server.RateLimit.V
	}
	if c.Server.RateBurst.Valid {
		w.Server.RateBurst = c.Server.RateBurst.V
	}

	if c.Auth.TrustedUserHeader.Valid {
		w.Auth.TrustedUserHeader = c.Auth.TrustedUserHeader.V
	}
	w.Auth.AllowedNetworks = c.Auth.AllowedNetworks
	if c.Auth.CacheTTL.Valid {
		w.Auth.CacheTTL = xtime.FormatDuration(c.Auth.CacheTTL.V, time.Second)
	}

	//nolint:wrapcheck // This is fine.
	return json.Marshal(w)
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types and parse duration strings into time.Duration values.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	if w.Server.Address != "" {
		c.Server.Address = sql.Null[string]{V: w.Server.Address, Valid: true}
	}
	if w.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %v", w.Server.RateLimit)
	}
	if w.Server.RateLimit > 0 {
		c.Server.RateLimit = sql.Null[float64]{V: w.Server.RateLimit, Valid: true}
	}
	if w.Server.RateBurst < 0 {
		return fmt.Errorf("invalid rate burst: %d", w.Server.RateBurst)
	}
	if w.Server.RateBurst > 0 {
		c.Server.RateBurst = sql.Null[int]{V: w.Server.RateBurst, Valid: true}
	}

	if w.Auth.TrustedUserHeader != "" {
		c.Auth.TrustedUserHeader = sql.Null[string]{V: w.Auth.TrustedUserHeader, Valid: true}
	}
	c.Auth.AllowedNetworks = w.Auth.AllowedNetworks
	if w.Auth.CacheTTL != "" {
		dur, err := xtime.ParseDuration(w.Auth.CacheTTL)
		if err != nil {
			return fmt.Errorf("failed parsing auth cache TTL: %w", err)
		}
		if dur < 0 {
			return fmt.Errorf("invalid auth cache TTL: %s", w.Auth.CacheTTL)
		}
		c.Auth.CacheTTL = sql.Null[time.Duration]{V: dur, Valid: true}
	}

	return nil
}

// SetDefaults sets default configuration values if they weren't set already.
func (c *Config) SetDefaults() {
	if c.Server.RateLimit.Valid && !c.Server.RateBurst.Valid {
		c.Server.RateBurst = sql.Null[int]{V: 1, Valid: true}
	}
	if !c.Auth.CacheTTL.Valid {
		c.Auth.CacheTTL = sql.Null[time.Duration]{V: time.Minute, Valid: true}
	}
}
