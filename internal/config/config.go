// Package config reads and writes the dnsbench configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ooni/dnsbench/internal/optional"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"github.com/tailscale/hujson"
)

const (
	// DefaultTopK is the default number of resolvers to apply.
	DefaultTopK = 2

	// DefaultTimeoutMs is the default per-probe timeout in milliseconds.
	DefaultTimeoutMs = 2000

	// DefaultNetwork is the default network used by probes.
	DefaultNetwork = "udp"

	// DefaultResolversFile is the default resolvers file, relative
	// to the current working directory.
	DefaultResolversFile = "list.txt"
)

// DefaultDomains returns the domains we resolve by default.
func DefaultDomains() []string {
	return []string{"google.com", "soft98.ir"}
}

// Config is the dnsbench configuration.
type Config struct {
	// Comment is a free form comment.
	Comment string `json:"_"`

	// ResolversFile is the file containing one resolver per line.
	ResolversFile string `json:"resolvers_file"`

	// Domains contains the domains to resolve.
	Domains []string `json:"domains"`

	// TopK is the number of resolvers to apply.
	TopK int `json:"top_k"`

	// Concurrency is the number of concurrent probes. Zero means
	// that we should choose a default value.
	Concurrency int `json:"concurrency"`

	// TimeoutMs is the per-probe timeout in milliseconds.
	TimeoutMs int64 `json:"timeout_ms"`

	// Network is the network used by probes ("udp" or "tcp").
	Network string `json:"network"`

	// UseSudo indicates whether to use sudo to run resolvectl. When
	// not set, we use sudo.
	UseSudo optional.Value[bool] `json:"use_sudo"`

	// SudoCommand is the command line used to gain privileges.
	SudoCommand string `json:"sudo_command,omitempty"`

	// DatabasePath is the path of the run history database.
	DatabasePath string `json:"database_path"`

	mutex sync.Mutex
	path  string
}

// DefaultHome returns the directory containing the configuration
// file and the history database.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "default home")
	}
	return filepath.Join(home, ".dnsbench"), nil
}

// DefaultPath returns the configuration file path inside home.
func DefaultPath(home string) string {
	return filepath.Join(home, "config.json")
}

// DefaultDatabasePath returns the database path inside home.
func DefaultDatabasePath(home string) string {
	return filepath.Join(home, "history.sqlite3")
}

// ReadConfig reads the configuration from the path. The home is
// used to compute the default values.
func ReadConfig(path, home string) (*Config, error) {
	b, err := lockedfile.Read(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseConfig(b, home)
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	c.path = path
	return c, nil
}

// InitDefaultConfig reads the configuration at path or, when the file
// does not exist, writes and returns the default configuration.
func InitDefaultConfig(path, home string) (*Config, error) {
	c, err := ReadConfig(path, home)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	c, err = ParseConfig([]byte("{}"), home)
	if err != nil {
		return nil, err
	}
	c.path = path
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "creating config dir")
	}
	if err := c.Write(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseConfig returns config from JSON bytes. The input may contain
// comments and trailing commas.
func ParseConfig(b []byte, home string) (*Config, error) {
	b, err := hujson.Standardize(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing hujson")
	}
	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "parsing json")
	}
	c.Default(home)
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating")
	}
	return &c, nil
}

// Default fills the missing settings with their default value.
func (c *Config) Default(home string) {
	if c.ResolversFile == "" {
		c.ResolversFile = DefaultResolversFile
	}
	if len(c.Domains) <= 0 {
		c.Domains = DefaultDomains()
	}
	if c.TopK == 0 {
		c.TopK = DefaultTopK
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = DefaultTimeoutMs
	}
	if c.Network == "" {
		c.Network = DefaultNetwork
	}
	if c.UseSudo.IsNone() {
		c.UseSudo = optional.Some(true)
	}
	if c.DatabasePath == "" && home != "" {
		c.DatabasePath = DefaultDatabasePath(home)
	}
}

// Validate the config file.
func (c *Config) Validate() error {
	if c.TopK < 1 {
		return errors.New("top_k must be positive")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	if c.TimeoutMs <= 0 {
		return errors.New("timeout_ms must be positive")
	}
	switch c.Network {
	case "udp", "tcp":
	default:
		return errors.Errorf("unsupported network: %s", c.Network)
	}
	for _, domain := range c.Domains {
		if domain == "" {
			return errors.New("domains must not contain empty strings")
		}
	}
	return nil
}

// Timeout returns the per-probe timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Path returns the path from which we read the config.
func (c *Config) Path() string {
	return c.path
}

// Write the config file in json to the path.
func (c *Config) Write() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.path == "" {
		return errors.New("config file path is empty")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshalling config JSON")
	}
	data = append(data, '\n')
	if err := lockedfile.Write(c.path, bytes.NewReader(data), 0600); err != nil {
		return errors.Wrap(err, "writing config JSON")
	}
	return nil
}
