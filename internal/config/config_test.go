package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-app-manifest/internal/catalogsource"
	"github.com/isseis/go-app-manifest/internal/manifest"
	"github.com/isseis/go-app-manifest/internal/matcher"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, "manifest.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, matcher.DefaultConfig(), cfg.MatcherConfig())
	assert.Equal(t, manifest.DefaultMeta(), cfg.Meta())

	src := cfg.CatalogSourceConfig()
	assert.Equal(t, catalogsource.DefaultBaseURL, src.BaseURL)
	assert.Equal(t, catalogsource.DefaultTimeout, src.Timeout)
	assert.Equal(t, catalogsource.DefaultCacheSize, src.CacheSize)
	assert.Nil(t, src.S3, "s3 stays disabled without an endpoint")
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
[matcher]
namespace_prefix = "acme::Door"
synthetic_markers = ["closure", "vtable"]
require_global = false
duplicates = "by-api-name"

[catalog]
base_url = "http://mirror.local/catalogs"
timeout = 5
cache_size = 0

[catalog.s3]
endpoint = "minio.local:9000"
access_key = "access"
secret_key = "secret"
use_ssl = true

[binary]
arch = "arm64"

[app]
name = "door-controller"

[log]
dir = "logs"
`))
	require.NoError(t, err)
	ApplyDefaults(cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, matcher.Config{
		NamespacePrefix:  "acme::Door",
		SyntheticMarkers: []string{"closure", "vtable"},
		RequireGlobal:    false,
		Duplicates:       matcher.DuplicatesByAPIName,
	}, cfg.MatcherConfig())

	src := cfg.CatalogSourceConfig()
	assert.Equal(t, "http://mirror.local/catalogs", src.BaseURL)
	assert.Equal(t, 5*time.Second, src.Timeout)
	assert.Equal(t, 0, src.CacheSize)
	require.NotNil(t, src.S3)
	assert.Equal(t, catalogsource.S3Config{
		Endpoint:  "minio.local:9000",
		Region:    catalogsource.DefaultS3Region,
		AccessKey: "access",
		SecretKey: "secret",
		UseSSL:    true,
	}, *src.S3)

	assert.Equal(t, "arm64", cfg.Binary.Arch)
	assert.Equal(t, "logs", cfg.Log.Dir)
	assert.Equal(t, manifest.Meta{Name: "door-controller", Description: manifest.PlaceholderDescription}, cfg.Meta())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown section", "[runner]\nverbose = true\n"},
		{"unknown key", "[matcher]\nprefix = \"x\"\n"},
		{"wrong type", "[catalog]\ntimeout = \"soon\"\n"},
		{"not toml", "matcher = [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.ErrorIs(t, err, ErrParseConfig)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown duplicates", func(c *Config) { c.Matcher.Duplicates = "sometimes" }},
		{"negative timeout", func(c *Config) { c.Catalog.Timeout = -1 }},
		{"negative cache size", func(c *Config) { c.Catalog.CacheSize = -3 }},
		{"empty marker", func(c *Config) { c.Matcher.SyntheticMarkers = []string{"closure", ""} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"MANIFEST_NAMESPACE_PREFIX":   "acme::Lamp",
		"MANIFEST_SYNTHETIC_MARKERS":  "closure, {{vtable}} ,",
		"MANIFEST_REQUIRE_GLOBAL":     "false",
		"MANIFEST_DUPLICATES":         "by-api-name",
		"MANIFEST_CATALOG_TIMEOUT":    "7",
		"MANIFEST_CATALOG_CACHE_SIZE": "2",
		"MANIFEST_S3_ENDPOINT":        "s3.local",
		"MANIFEST_S3_USE_SSL":         "1",
		"MANIFEST_ARCH":               "x86_64",
		"MANIFEST_APP_NAME":           "lamp",
		"MANIFEST_APP_DESCRIPTION":    "Lamp app",
		"MANIFEST_LOG_DIR":            "/var/log/manifest",
	}))
	require.NoError(t, err)

	assert.Equal(t, "acme::Lamp", cfg.Matcher.NamespacePrefix)
	assert.Equal(t, []string{"closure", "{{vtable}}"}, cfg.Matcher.SyntheticMarkers)
	assert.False(t, cfg.Matcher.RequireGlobal)
	assert.Equal(t, "by-api-name", cfg.Matcher.Duplicates)
	assert.Equal(t, 7, cfg.Catalog.Timeout)
	assert.Equal(t, 2, cfg.Catalog.CacheSize)
	assert.Equal(t, "s3.local", cfg.Catalog.S3.Endpoint)
	assert.True(t, cfg.Catalog.S3.UseSSL)
	assert.Equal(t, "x86_64", cfg.Binary.Arch)
	assert.Equal(t, manifest.Meta{Name: "lamp", Description: "Lamp app"}, cfg.Meta())
	assert.Equal(t, "/var/log/manifest", cfg.Log.Dir)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"MANIFEST_REQUIRE_GLOBAL":  "maybe",
		"MANIFEST_CATALOG_TIMEOUT": "ten",
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "MANIFEST_REQUIRE_GLOBAL")
	assert.Contains(t, err.Error(), "MANIFEST_CATALOG_TIMEOUT")
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "[app]\nname = \"from-file\"\ndescription = \"File\"\n")
	t.Setenv("MANIFEST_APP_DESCRIPTION", "From env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.App.Name)
	assert.Equal(t, "From env", cfg.App.Description, "environment overrides the file")
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, matcher.DefaultNamespacePrefix, cfg.Matcher.NamespacePrefix)
}

func TestLoad_Errors(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "[matcher]\nduplicates = \"twice\"\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadEnvFile(t *testing.T) {
	const key = "MANIFEST_TEST_DOTENV_VALUE"
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv(key))

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "absent.env")), "a missing file is ignored")
}
