package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnv is a getenv that has nothing set.
func noEnv(string) string { return "" }

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestAssembleDefaults(t *testing.T) {
	cfg, err := assemble(cliOptions{}, noEnv)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Empty(t, cfg.AllowedRoots)
	assert.Equal(t, 50, cfg.MaxFileSizeMB)
	assert.Equal(t, int64(50*1048576), cfg.MaxFileSizeBytes())
	assert.Zero(t, cfg.Bandwidth)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(cwd), cfg.BaseDir)
}

func TestAssembleEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "b64serve.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(
		"port: 4000\nmaxFileSizeMB: 10\nallowedRoots:\n  - "+dir+"\n"), 0o644))

	cfg, err := assemble(cliOptions{ConfigPath: cfgFile}, envFrom(map[string]string{
		"B64SERVE_PORT": "5000",
	}))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port, "env wins over file")
	assert.Equal(t, 10, cfg.MaxFileSizeMB, "file wins over default")
	require.Len(t, cfg.AllowedRoots, 1)
	assert.Equal(t, filepath.Clean(dir), cfg.AllowedRoots[0])
}

func TestAssembleFlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	cfg, err := assemble(cliOptions{
		Port:          6000,
		Roots:         []string{dir},
		MaxFileSizeMB: 2,
	}, envFrom(map[string]string{
		"B64SERVE_PORT":             "5000",
		"B64SERVE_ROOTS":            "/somewhere/else",
		"B64SERVE_MAX_FILE_SIZE_MB": "99",
	}))
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, 2, cfg.MaxFileSizeMB)
	assert.Equal(t, []string{filepath.Clean(dir)}, cfg.AllowedRoots)
}

func TestAssembleRootsFromEnvColonSeparated(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	cfg, err := assemble(cliOptions{}, envFrom(map[string]string{
		"B64SERVE_ROOTS": a + ":" + b,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Clean(a), filepath.Clean(b)}, cfg.AllowedRoots)
}

func TestAssembleRootsNormalizedAbsolute(t *testing.T) {
	dir := t.TempDir()
	messy := dir + string(filepath.Separator) + "." + string(filepath.Separator)
	cfg, err := assemble(cliOptions{Roots: []string{messy}}, noEnv)
	require.NoError(t, err)
	require.Len(t, cfg.AllowedRoots, 1)
	assert.True(t, filepath.IsAbs(cfg.AllowedRoots[0]))
	assert.Equal(t, filepath.Clean(dir), cfg.AllowedRoots[0])
}

func TestAssembleMissingRootIsNotFatal(t *testing.T) {
	cfg, err := assemble(cliOptions{Roots: []string{"/definitely/not/there"}}, noEnv)
	require.NoError(t, err)
	assert.Len(t, cfg.AllowedRoots, 1)
}

func TestAssembleInvalidValues(t *testing.T) {
	_, err := assemble(cliOptions{Port: 99999}, noEnv)
	assert.Error(t, err)

	_, err = assemble(cliOptions{}, envFrom(map[string]string{"B64SERVE_PORT": "abc"}))
	assert.Error(t, err)

	_, err = assemble(cliOptions{MaxFileSizeMB: -1}, noEnv)
	assert.Error(t, err)

	_, err = assemble(cliOptions{ConfigPath: "/no/such/config.yaml"}, noEnv)
	assert.Error(t, err)

	_, err = assemble(cliOptions{Bandwidth: "fast"}, noEnv)
	assert.Error(t, err)
}

func TestAssembleBadYAML(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("port: [not a number"), 0o644))

	_, err := assemble(cliOptions{ConfigPath: cfgFile}, noEnv)
	assert.Error(t, err)
}

func TestParseBandwidth(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"10mbps", 10_000_000 / 8.0, true},
		{"500 kbps", 500_000 / 8.0, true},
		{"1gbps", 1_000_000_000 / 8.0, true},
		{"131072", 131072 / 8.0, true},
		{"0", 0, true},
		{"", 0, true},
		{"mbps", 0, false},
		{"10zbps", 0, false},
	}
	for _, tc := range cases {
		got, err := parseBandwidth(tc.in)
		if tc.ok {
			require.NoError(t, err, "in=%q", tc.in)
			assert.InDelta(t, tc.want, got, 0.001, "in=%q", tc.in)
		} else {
			assert.Error(t, err, "in=%q", tc.in)
		}
	}
}
