// Package config loads the vctool configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pilacorp/go-vc-signing/credential/codec"
	"github.com/pilacorp/go-vc-signing/credential/common/crypto"
	"github.com/pilacorp/go-vc-signing/credential/common/provider"
	"github.com/pilacorp/go-vc-signing/credential/vc"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "VCTOOL_CONFIG"

// Key file encodings written by gen-keys.
const (
	KeyEncodingRaw = "raw"
	KeyEncodingHex = "hex"
)

// Config is the vctool configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Policy   PolicyConfig   `yaml:"policy"`
	Provider ProviderConfig `yaml:"provider"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultsConfig holds fallbacks for command flags.
type DefaultsConfig struct {
	Format      string `yaml:"format"`
	Cryptosuite string `yaml:"cryptosuite"`
	KeyEncoding string `yaml:"key_encoding"`
}

// PolicyConfig mirrors vc.Policy.
type PolicyConfig struct {
	RequireCredentialStatus bool `yaml:"require_credential_status"`
	RequireSchemaIDMatch    bool `yaml:"require_schema_id_match"`
}

// ProviderConfig configures remote schema retrieval.
type ProviderConfig struct {
	GitHubAPIURL string        `yaml:"github_api_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "warn", Format: "text", Output: "stderr"},
		Defaults: DefaultsConfig{
			Format:      string(codec.FormatJSON),
			Cryptosuite: crypto.DefaultCryptosuite,
			KeyEncoding: KeyEncodingRaw,
		},
		Provider: ProviderConfig{
			GitHubAPIURL: provider.DefaultGitHubAPIURL,
			Timeout:      provider.DefaultTimeout,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path falls
// back to $VCTOOL_CONFIG, and to the defaults alone when that is unset too.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that have a closed set.
func (c *Config) Validate() error {
	if _, err := codec.ParseFormat(c.Defaults.Format); err != nil {
		return fmt.Errorf("defaults.format: %w", err)
	}
	if _, err := crypto.Lookup(c.Defaults.Cryptosuite); err != nil {
		return fmt.Errorf("defaults.cryptosuite: %w", err)
	}
	switch c.Defaults.KeyEncoding {
	case KeyEncodingRaw, KeyEncodingHex:
	default:
		return fmt.Errorf("defaults.key_encoding: must be %q or %q, got %q", KeyEncodingRaw, KeyEncodingHex, c.Defaults.KeyEncoding)
	}
	if c.Provider.Timeout < 0 {
		return errors.New("provider.timeout must not be negative")
	}
	return nil
}

// VCPolicy returns the credential policy.
func (c *Config) VCPolicy() vc.Policy {
	return vc.Policy{
		RequireCredentialStatus: c.Policy.RequireCredentialStatus,
		RequireSchemaIDMatch:    c.Policy.RequireSchemaIDMatch,
	}
}

// ProviderOptions returns the options for provider.NewDefaultProvider.
func (c *Config) ProviderOptions() []provider.Option {
	var opts []provider.Option
	if c.Provider.GitHubAPIURL != "" {
		opts = append(opts, provider.WithGitHubAPIURL(c.Provider.GitHubAPIURL))
	}
	if c.Provider.Timeout > 0 {
		opts = append(opts, provider.WithTimeout(c.Provider.Timeout))
	}
	return opts
}
