package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
	"github.com/conduit-lang/metamodel/internal/orm/modelcache"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "metamodel.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, modelcache.DefaultSizeLimit, cfg.Cache.SizeLimit)
	assert.Equal(t, modelcache.DefaultMaxEntries, cfg.Cache.MaxEntries)
	assert.False(t, cfg.Diagnostics.SensitiveDataLogging)
	assert.Empty(t, cfg.Diagnostics.Warnings)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeConfig(t, dir, `
cache:
  size_limit: 500
  max_entries: 4
diagnostics:
  sensitive_data_logging: true
  warnings:
    CollectionWithoutComparer: error
    ShadowPropertyConflictsWithField: ignore
logging:
  level: debug
  development: true
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(500), cfg.Cache.SizeLimit)
	assert.Equal(t, 4, cfg.Cache.MaxEntries)
	assert.True(t, cfg.Diagnostics.SensitiveDataLogging)
	// viper lowercases map keys
	assert.Equal(t, map[string]string{
		"collectionwithoutcomparer":        "error",
		"shadowpropertyconflictswithfield": "ignore",
	}, cfg.Diagnostics.Warnings)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("METAMODEL_LOGGING_LEVEL", "debug")
	t.Setenv("METAMODEL_CACHE_SIZE_LIMIT", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, int64(0), cfg.Cache.SizeLimit)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "negative size limit",
			content: "cache:\n  size_limit: -1\n",
			wantErr: "cache.size_limit must not be negative",
		},
		{
			name:    "zero max entries",
			content: "cache:\n  max_entries: 0\n",
			wantErr: "cache.max_entries must be positive",
		},
		{
			name:    "bad level",
			content: "logging:\n  level: loud\n",
			wantErr: "logging.level",
		},
		{
			name:    "unknown event",
			content: "diagnostics:\n  warnings:\n    NoSuchEvent: error\n",
			wantErr: "unknown event",
		},
		{
			name:    "bad behavior",
			content: "diagnostics:\n  warnings:\n    ModelBuilt: shout\n",
			wantErr: "unknown warning behavior",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadFrom(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "logging:\n  level: info\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	chdir(t, nested)

	got, err := FindConfigFile()
	require.NoError(t, err)

	// macOS temp dirs resolve through a symlink
	wantResolved, _ := filepath.EvalSymlinks(want)
	gotResolved, _ := filepath.EvalSymlinks(got)
	assert.Equal(t, wantResolved, gotResolved)
}

func TestNewDiagnosticsLogger(t *testing.T) {
	cfg := &Config{
		Diagnostics: DiagnosticsConfig{
			SensitiveDataLogging: true,
			Warnings: map[string]string{
				"collectionwithoutcomparer": "error",
				"10702":                     "ignore",
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}

	logger, err := cfg.NewDiagnosticsLogger(zap.NewNop())
	require.NoError(t, err)

	assert.True(t, logger.SensitiveDataLoggingEnabled())
	assert.Equal(t, diagnostics.BehaviorError, logger.Behavior(diagnostics.CollectionWithoutComparer))
	assert.Equal(t, diagnostics.BehaviorIgnore, logger.Behavior(diagnostics.ModelBuilt))
	assert.Equal(t, diagnostics.BehaviorLog, logger.Behavior(diagnostics.ModelBuilding))
}

func TestNewZapLogger(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "warn"}}
	log, err := cfg.NewZapLogger()
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Core().Enabled(zap.WarnLevel))

	cfg.Logging.Level = "verbose"
	_, err = cfg.NewZapLogger()
	assert.Error(t, err)
}
