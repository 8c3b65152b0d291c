package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, ",", cfg.Delimiter)
	assert.Equal(t, ',', cfg.Comma())
	assert.Equal(t, "native", cfg.Backend)
	assert.Equal(t, "auto", cfg.Viewer)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 50*time.Millisecond, cfg.Reload.Debounce)
	assert.Equal(t, 100*time.Millisecond, cfg.Reload.RefreshInterval)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "livid.yaml"), []byte(`
delimiter: ";"
backend: wasm
viewer: none
toolchain:
  wasm: "clang --target=wasm32-wasi {src} -o {out}"
reload:
  debounce: 200ms
log:
  level: warn
`), 0o644))
	t.Setenv("LIVID_LOG_LEVEL", "debug")
	t.Setenv("LIVID_METRICS_ADDR", ":9100")

	fs := pflag.NewFlagSet("livid", pflag.ContinueOnError)
	fs.StringP("delimiter", "t", ",", "")
	fs.String("viewer", "auto", "")
	require.NoError(t, fs.Parse([]string{"-t", "\t"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, "\t", cfg.Delimiter, "flag beats file")
	assert.Equal(t, "none", cfg.Viewer, "unset flag leaves the file value")
	assert.Equal(t, "wasm", cfg.Backend)
	assert.Equal(t, "debug", cfg.Log.Level, "env beats file")
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, 200*time.Millisecond, cfg.Reload.Debounce)
	assert.Contains(t, cfg.Toolchain.Wasm, "wasm32-wasi")
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Delimiter: ",", Backend: "native", Viewer: "auto"}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"tab", func(c *Config) { c.Delimiter = "\t" }, true},
		{"multibyte char", func(c *Config) { c.Delimiter = "§" }, true},
		{"empty delimiter", func(c *Config) { c.Delimiter = "" }, false},
		{"two chars", func(c *Config) { c.Delimiter = ",;" }, false},
		{"quote", func(c *Config) { c.Delimiter = `"` }, false},
		{"newline", func(c *Config) { c.Delimiter = "\n" }, false},
		{"backend", func(c *Config) { c.Backend = "jvm" }, false},
		{"viewer", func(c *Config) { c.Viewer = "emacs" }, false},
		{"negative debounce", func(c *Config) { c.Reload.Debounce = -time.Second }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
