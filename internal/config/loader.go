package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/isseis/go-app-manifest/internal/safefileio"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "MANIFEST_"

// DefaultEnvFile is loaded by LoadEnvFile when no name is given.
const DefaultEnvFile = ".env"

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from defaults, the TOML file at path (if
// path is not empty) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		content, err := safefileio.SafeReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if cfg, err = Parse(content); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a TOML document on top of the defaults. Unknown keys are
// rejected.
func Parse(content []byte) (*Config, error) {
	cfg := Default()

	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			return nil, fmt.Errorf("%w: %s", ErrParseConfig, strictErr.String())
		}
		return nil, fmt.Errorf("%w: %w", ErrParseConfig, err)
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(name string) error {
	if name == "" {
		name = DefaultEnvFile
	}
	if err := godotenv.Load(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	return nil
}

// ApplyEnv overrides cfg with MANIFEST_* variables.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s: %w", ErrInvalidConfig, EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("NAMESPACE_PREFIX", &cfg.Matcher.NamespacePrefix)
	if v, ok := lookup(EnvPrefix + "SYNTHETIC_MARKERS"); ok {
		cfg.Matcher.SyntheticMarkers = splitList(v)
	}
	str("DUPLICATES", &cfg.Matcher.Duplicates)
	str("CATALOG_BASE_URL", &cfg.Catalog.BaseURL)
	str("S3_ENDPOINT", &cfg.Catalog.S3.Endpoint)
	str("S3_REGION", &cfg.Catalog.S3.Region)
	str("S3_ACCESS_KEY", &cfg.Catalog.S3.AccessKey)
	str("S3_SECRET_KEY", &cfg.Catalog.S3.SecretKey)
	str("ARCH", &cfg.Binary.Arch)
	str("APP_NAME", &cfg.App.Name)
	str("APP_DESCRIPTION", &cfg.App.Description)
	str("LOG_DIR", &cfg.Log.Dir)

	return errors.Join(
		boolean("REQUIRE_GLOBAL", &cfg.Matcher.RequireGlobal),
		boolean("S3_USE_SSL", &cfg.Catalog.S3.UseSSL),
		integer("CATALOG_TIMEOUT", &cfg.Catalog.Timeout),
		integer("CATALOG_CACHE_SIZE", &cfg.Catalog.CacheSize),
	)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
