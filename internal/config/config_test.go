package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, 30*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, "repo", cfg.Clone.Directory)
	assert.Empty(t, cfg.Extractor.Path)
	assert.Empty(t, cfg.Analysis.Languages)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
extractor:
  path: /opt/ctags/bin/ctags
  timeout: 5s
analysis:
  workers: 8
  languages: [C, C++, Go]
  path_filter: '^src/'
clone:
  directory: checkout
`))
	require.NoError(t, err)

	assert.Equal(t, "/opt/ctags/bin/ctags", cfg.Extractor.Path)
	assert.Equal(t, 5*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.Equal(t, []string{"C", "C++", "Go"}, cfg.Analysis.Languages)
	assert.Equal(t, "^src/", cfg.Analysis.PathFilter)
	assert.Equal(t, "checkout", cfg.Clone.Directory)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "analysis: ["))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.Analysis.Workers = -1
	cfg.Extractor.Timeout = time.Second
	require.ErrorIs(t, cfg.Validate(), ErrInvalidWorkers)

	cfg = &Config{}
	cfg.Analysis.Workers = 2
	require.ErrorIs(t, cfg.Validate(), ErrInvalidTimeout)

	cfg.Extractor.Timeout = time.Second
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "analysis:\n  workers: -3\n"))
	require.ErrorIs(t, err, ErrInvalidWorkers)
}
