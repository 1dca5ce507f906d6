// Package config loads the manifest producer configuration.
//
// Settings come from three layers, later layers overriding earlier ones:
// built-in defaults, an optional TOML file and MANIFEST_* environment
// variables (optionally read from a .env file). Command line flags are
// applied on top by the caller.
//
// Example file:
//
//	[matcher]
//	namespace_prefix = "sifis_api::service::SifisApiClient"
//	synthetic_markers = ["closure"]
//	require_global = true
//	duplicates = "keep"
//
//	[catalog]
//	base_url = "https://raw.githubusercontent.com/sifis-home/manifest/master/data"
//	timeout = 30
//	cache_size = 16
//
//	[catalog.s3]
//	endpoint = "minio.local:9000"
//	region = "us-east-1"
//	use_ssl = false
//
//	[app]
//	name = "lamp-controller"
//	description = "Turns lamps on and off"
//
//	[log]
//	dir = "/var/log/manifest"
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/isseis/go-app-manifest/internal/catalogsource"
	"github.com/isseis/go-app-manifest/internal/manifest"
	"github.com/isseis/go-app-manifest/internal/matcher"
)

// Error definitions for the config package
var (
	// ErrInvalidConfig is matched by every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrParseConfig indicates the TOML document could not be decoded.
	ErrParseConfig = errors.New("failed to parse config")
)

// Config is the complete configuration.
type Config struct {
	Matcher MatcherConfig `toml:"matcher"`
	Catalog CatalogConfig `toml:"catalog"`
	Binary  BinaryConfig  `toml:"binary"`
	App     AppConfig     `toml:"app"`
	Log     LogConfig     `toml:"log"`
}

// MatcherConfig mirrors matcher.Config.
type MatcherConfig struct {
	NamespacePrefix  string   `toml:"namespace_prefix"`
	SyntheticMarkers []string `toml:"synthetic_markers"`
	RequireGlobal    bool     `toml:"require_global"`
	Duplicates       string   `toml:"duplicates"`
}

// CatalogConfig configures catalog loading.
type CatalogConfig struct {
	BaseURL string `toml:"base_url"`

	// Timeout is the remote fetch timeout in seconds.
	Timeout   int      `toml:"timeout"`
	CacheSize int      `toml:"cache_size"`
	S3        S3Config `toml:"s3"`
}

// S3Config configures s3:// catalog sources. An empty endpoint disables them.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// BinaryConfig configures how binaries are opened.
type BinaryConfig struct {
	// Arch selects the slice of a universal Mach-O binary.
	Arch string `toml:"arch"`
}

// AppConfig is the application identity written into manifests.
type AppConfig struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
}

// LogConfig configures the per-run JSON log file.
type LogConfig struct {
	// Dir enables a log file per run when set.
	Dir string `toml:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	m := matcher.DefaultConfig()
	return &Config{
		Matcher: MatcherConfig{
			NamespacePrefix:  m.NamespacePrefix,
			SyntheticMarkers: m.SyntheticMarkers,
			RequireGlobal:    m.RequireGlobal,
			Duplicates:       m.Duplicates.String(),
		},
		Catalog: CatalogConfig{
			BaseURL:   catalogsource.DefaultBaseURL,
			Timeout:   int(catalogsource.DefaultTimeout / time.Second),
			CacheSize: catalogsource.DefaultCacheSize,
			S3: S3Config{
				Region: catalogsource.DefaultS3Region,
			},
		},
		App: AppConfig{
			Name:        manifest.PlaceholderName,
			Description: manifest.PlaceholderDescription,
		},
	}
}

// ApplyDefaults fills settings left empty by the file or environment.
func ApplyDefaults(cfg *Config) {
	if cfg.Matcher.Duplicates == "" {
		cfg.Matcher.Duplicates = matcher.DuplicatesKeep.String()
	}
	if cfg.Catalog.BaseURL == "" {
		cfg.Catalog.BaseURL = catalogsource.DefaultBaseURL
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = int(catalogsource.DefaultTimeout / time.Second)
	}
	if cfg.Catalog.S3.Region == "" {
		cfg.Catalog.S3.Region = catalogsource.DefaultS3Region
	}
	if cfg.App.Name == "" {
		cfg.App.Name = manifest.PlaceholderName
	}
	if cfg.App.Description == "" {
		cfg.App.Description = manifest.PlaceholderDescription
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := matcher.ParseDuplicates(c.Matcher.Duplicates); err != nil {
		return fmt.Errorf("%w: matcher.duplicates: %w", ErrInvalidConfig, err)
	}
	if c.Catalog.Timeout < 0 {
		return fmt.Errorf("%w: catalog.timeout must not be negative, got %d", ErrInvalidConfig, c.Catalog.Timeout)
	}
	if c.Catalog.CacheSize < 0 {
		return fmt.Errorf("%w: catalog.cache_size must not be negative, got %d", ErrInvalidConfig, c.Catalog.CacheSize)
	}
	for i, marker := range c.Matcher.SyntheticMarkers {
		if marker == "" {
			return fmt.Errorf("%w: matcher.synthetic_markers[%d] is empty", ErrInvalidConfig, i)
		}
	}
	return nil
}

// MatcherConfig converts the matcher section. Validate must have succeeded.
func (c *Config) MatcherConfig() matcher.Config {
	duplicates, _ := matcher.ParseDuplicates(c.Matcher.Duplicates)
	return matcher.Config{
		NamespacePrefix:  c.Matcher.NamespacePrefix,
		SyntheticMarkers: append([]string(nil), c.Matcher.SyntheticMarkers...),
		RequireGlobal:    c.Matcher.RequireGlobal,
		Duplicates:       duplicates,
	}
}

// CatalogSourceConfig converts the catalog section.
func (c *Config) CatalogSourceConfig() catalogsource.Config {
	cfg := catalogsource.Config{
		BaseURL:   c.Catalog.BaseURL,
		Timeout:   time.Duration(c.Catalog.Timeout) * time.Second,
		CacheSize: c.Catalog.CacheSize,
	}
	if c.Catalog.S3.Endpoint != "" {
		cfg.S3 = &catalogsource.S3Config{
			Endpoint:  c.Catalog.S3.Endpoint,
			Region:    c.Catalog.S3.Region,
			AccessKey: c.Catalog.S3.AccessKey,
			SecretKey: c.Catalog.S3.SecretKey,
			UseSSL:    c.Catalog.S3.UseSSL,
		}
	}
	return cfg
}

// Meta returns the application identity.
func (c *Config) Meta() manifest.Meta {
	return manifest.Meta{Name: c.App.Name, Description: c.App.Description}
}
