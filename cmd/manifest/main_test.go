package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-app-manifest/internal/manifest"
	objfiletesting "github.com/isseis/go-app-manifest/internal/objfile/testing"
)

const lampCatalog = `{
  "version": "0.1",
  "api_labels": [
    {
      "api_name": "turn_lamp_on",
      "api_description": "Turns on a lamp.",
      "behavior_label": [{"device_type": "lamp", "action": "turn_on"}],
      "security_label": {
        "safety": [{"name": "FireHazard", "description": "The execution may cause fire.", "risk_score": 2}]
      }
    }
  ]
}`

const turnLampOn = "_ZN9sifis_api7service14SifisApiClient12turn_lamp_on17h0123456789abcdefE"

type cliFixture struct {
	dir     string
	binary  string
	catalog string
}

func newCLIFixture(t *testing.T) cliFixture {
	t.Helper()
	dir := t.TempDir()
	return cliFixture{
		dir: dir,
		binary: objfiletesting.WriteFile(t, dir, "app", objfiletesting.ELF(
			objfiletesting.Sym{Name: "main", Global: true, Func: true},
			objfiletesting.Sym{Name: turnLampOn, Global: true, Func: true},
		)),
		catalog: "file://" + objfiletesting.WriteFile(t, dir, "catalog.json", []byte(lampCatalog)),
	}
}

// baseArgs keeps the run away from any .env in the package directory.
func (fx cliFixture) baseArgs(extra ...string) []string {
	args := []string{"-quiet", "-env-file", filepath.Join(fx.dir, "missing.env"), "-b", fx.binary, "-l", fx.catalog}
	return append(args, extra...)
}

func TestRun_PrintsManifest(t *testing.T) {
	fx := newCLIFixture(t)
	var stdout, stderr bytes.Buffer

	code := run(fx.baseArgs("-app-name", "lamp"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	label, err := manifest.Decode(&stdout)
	require.NoError(t, err)
	assert.Equal(t, "lamp", label.Name)
	assert.Equal(t, manifest.PlaceholderDescription, label.Description)
	assert.Equal(t, "0.1", label.APIVersion)
	require.Len(t, label.APILabels, 1)
	assert.Equal(t, "turn_lamp_on", label.APILabels[0].Name)
}

func TestRun_WritesOutputFile(t *testing.T) {
	fx := newCLIFixture(t)
	output := filepath.Join(fx.dir, "manifest.json")
	var stdout, stderr bytes.Buffer

	code := run(fx.baseArgs("-o", output), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Empty(t, stdout.String())

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	label, err := manifest.Decode(f)
	require.NoError(t, err)
	assert.Len(t, label.APILabels, 1)
}

func TestRun_LogDirectory(t *testing.T) {
	fx := newCLIFixture(t)
	logDir := filepath.Join(fx.dir, "logs")
	var stdout, stderr bytes.Buffer

	code := run(fx.baseArgs("-log-dir", logDir), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"-h"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")
}

func TestRun_ArgumentErrors(t *testing.T) {
	fx := newCLIFixture(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing binary", []string{"-l", fx.catalog}, errMissingBinary.Error()},
		{"missing catalog", []string{"-b", fx.binary}, errMissingCatalog.Error()},
		{"unknown flag", []string{"-frobnicate"}, "flag provided but not defined"},
		{"positional argument", []string{"-b", fx.binary, "-l", fx.catalog, "extra"}, "unexpected arguments"},
		{"bad dedup policy", fx.baseArgs("-dedup", "sometimes"), "matcher.duplicates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 1, run(tt.args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), tt.want)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_ReportsFailureKind(t *testing.T) {
	fx := newCLIFixture(t)
	garbage := objfiletesting.WriteFile(t, fx.dir, "garbage", []byte("not a binary at all"))
	badCatalog := objfiletesting.WriteFile(t, fx.dir, "bad.json", []byte(`{"version": 1}`))

	tests := []struct {
		name string
		args []string
		kind string
	}{
		{"malformed binary", []string{"-b", garbage, "-l", fx.catalog}, "binary_format"},
		{"directory as binary", []string{"-b", fx.dir, "-l", fx.catalog}, "path_format"},
		{"malformed catalog", []string{"-b", fx.binary, "-l", "file://" + badCatalog}, "catalog_format"},
		{"missing binary file", []string{"-b", filepath.Join(fx.dir, "nope"), "-l", fx.catalog}, "io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-quiet", "-env-file", filepath.Join(fx.dir, "missing.env")}, tt.args...)
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 1, run(args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), "Error: "+tt.kind+"\n")
			assert.Contains(t, stderr.String(), "Run ID: ")
			assert.Empty(t, stdout.String())
		})
	}
}
