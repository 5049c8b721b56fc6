package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, DefaultJobs, config.Build.Jobs)
	assert.Zero(t, config.Build.Timeout)
	assert.True(t, config.Output.Stdout)
	assert.Equal(t, "auto", config.Output.Color)
	assert.Equal(t, "warn", config.Log.Level)
	assert.Equal(t, "console", config.Log.Format)
	assert.NoError(t, config.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	config, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `build:
  jobs: 4
  timeout: 3s
output:
  dir: out
  stdout: false
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, config.Build.Jobs)
	assert.Equal(t, 3*time.Second, config.Build.Timeout)
	assert.Equal(t, "out", config.Output.Dir)
	assert.False(t, config.Output.Stdout)
	assert.Equal(t, "auto", config.Output.Color, "unset keys keep defaults")
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
}

func TestLoadDiscoversFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ralph-bril.toml"), []byte("[build]\njobs = 2\n"), 0o644))
	chdir(t, dir)

	config, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, config.Build.Jobs)
}

func TestDiscoverOrder(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Discover(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ralph-bril.yaml"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, ".ralph-bril.yaml"), Discover(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ralph-bril.yml"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "ralph-bril.yml"), Discover(dir))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("RALPH_BRIL_BUILD_JOBS", "6")
	t.Setenv("RALPH_BRIL_LOG_LEVEL", "info")

	config, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 6, config.Build.Jobs)
	assert.Equal(t, "info", config.Log.Level)
}

func TestLoadFlagsOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ralph-bril.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build:\n  jobs: 4\nlog:\n  level: info\n"), 0o644))
	t.Setenv("RALPH_BRIL_OUTPUT_DIR", "from-env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("jobs", 0, "")
	fs.String("log-level", "", "")
	fs.String("output-dir", "", "")
	require.NoError(t, fs.Parse([]string{"--jobs", "8"}))

	config, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 8, config.Build.Jobs, "flag beats file")
	assert.Equal(t, "info", config.Log.Level, "unset flag does not hide file value")
	assert.Equal(t, "from-env", config.Output.Dir, "unset flag does not hide env value")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative jobs", func(c *Config) { c.Build.Jobs = -1 }},
		{"negative timeout", func(c *Config) { c.Build.Timeout = -time.Second }},
		{"bad color", func(c *Config) { c.Output.Color = "sometimes" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ralph-bril.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: xml\n"), 0o644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DefaultConfig().Write(&buf))

	output := buf.String()
	assert.Contains(t, output, "build:\n")
	assert.Contains(t, output, "  jobs: 0\n")
	assert.Contains(t, output, "  level: warn\n")
	assert.Contains(t, output, "  color: auto\n")
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
