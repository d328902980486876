// Package config handles all server configuration.
// CLI flags take precedence; environment variables override the config file.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const bytesPerMB = 1 << 20

// Config holds the complete server configuration.
// It is built once at startup and never mutated afterwards, so concurrent
// request handlers can read it without locking.
type Config struct {
	// Port is the TCP port the HTTP server listens on (loopback only).
	Port int
	// AllowedRoots is the ordered list of directories files may be read from.
	// Every entry is a normalized absolute path. An empty list means every
	// request is rejected.
	AllowedRoots []string
	// MaxFileSizeMB caps the size of any single served file.
	MaxFileSizeMB int
	// BaseDir is the fixed directory relative request paths resolve against.
	BaseDir string
	// Bandwidth is the total server-wide response cap in bytes per second.
	// 0 means unlimited.
	Bandwidth float64
}

// MaxFileSizeBytes returns the size cap in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * bytesPerMB
}

// fileConfig is the YAML config-file structure.
type fileConfig struct {
	Port          int      `yaml:"port"`
	AllowedRoots  []string `yaml:"allowedRoots"`
	MaxFileSizeMB int      `yaml:"maxFileSizeMB"`
	BaseDir       string   `yaml:"baseDir"`
	Bandwidth     string   `yaml:"bandwidth"`
}

// rootList is a custom flag.Value that can be set multiple times.
type rootList []string

func (d *rootList) String() string {
	return strings.Join(*d, ", ")
}

func (d *rootList) Set(value string) error {
	*d = append(*d, value)
	return nil
}

// cliOptions carries the parsed command-line values into assemble.
// Zero values mean "not set on the command line".
type cliOptions struct {
	ConfigPath    string
	Port          int
	Roots         []string
	MaxFileSizeMB int
	BaseDir       string
	Bandwidth     string
}

// Load parses flags, environment variables, and the optional YAML config
// file, returning a validated Config.
func Load() (*Config, error) {
	var roots rootList
	configFlag := flag.String("config", "", "Path to a YAML config file (env: B64SERVE_CONFIG)")
	portFlag := flag.Int("port", 0, "HTTP port to listen on (env: B64SERVE_PORT, default: 3000)")
	maxSizeFlag := flag.Int("max-file-size-mb", 0, "Maximum servable file size in megabytes (env: B64SERVE_MAX_FILE_SIZE_MB, default: 50)")
	baseDirFlag := flag.String("base-dir", "", "Base directory for resolving relative request paths (env: B64SERVE_BASE_DIR, default: working directory)")
	bandwidthFlag := flag.String("bandwidth", "", "Total response bandwidth cap, e.g. 10mbps, 500kbps, 1gbps (env: B64SERVE_BANDWIDTH, default: unlimited)")
	flag.Var(&roots, "root", "Allowed root directory (repeatable; env: B64SERVE_ROOTS, colon-separated)")
	flag.Parse()

	// Remaining positional arguments are also treated as allowed roots.
	for _, arg := range flag.Args() {
		roots = append(roots, arg)
	}

	return assemble(cliOptions{
		ConfigPath:    *configFlag,
		Port:          *portFlag,
		Roots:         []string(roots),
		MaxFileSizeMB: *maxSizeFlag,
		BaseDir:       *baseDirFlag,
		Bandwidth:     *bandwidthFlag,
	}, os.Getenv)
}

// assemble resolves every option through the flag > env > file > default
// chain and normalizes the result.
func assemble(cli cliOptions, getenv func(string) string) (*Config, error) {
	var fc fileConfig
	configPath := cli.ConfigPath
	if configPath == "" {
		configPath = getenv("B64SERVE_CONFIG")
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configPath)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, errors.Wrapf(err, "parsing config file %s", configPath)
		}
	}

	// --- port ---
	port := cli.Port
	if port == 0 {
		if v := getenv("B64SERVE_PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, errors.Errorf("invalid B64SERVE_PORT value %q", v)
			}
			port = p
		}
	}
	if port == 0 {
		port = fc.Port
	}
	if port == 0 {
		port = 3000
	}
	if port < 1 || port > 65535 {
		return nil, errors.Errorf("invalid port %d", port)
	}

	// --- allowed roots ---
	roots := cli.Roots
	if len(roots) == 0 {
		if v := getenv("B64SERVE_ROOTS"); v != "" {
			for _, d := range strings.Split(v, ":") {
				d = strings.TrimSpace(d)
				if d != "" {
					roots = append(roots, d)
				}
			}
		}
	}
	if len(roots) == 0 {
		roots = fc.AllowedRoots
	}

	// Normalize every root to an absolute cleaned path before the guard ever
	// sees it. A root that does not stat is only a warning: an empty or
	// useless roots list is a valid reject-everything configuration.
	normalized := make([]string, 0, len(roots))
	for _, d := range roots {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving root %q", d)
		}
		abs = filepath.Clean(abs)
		if info, err := os.Stat(abs); err != nil {
			logrus.Warnf("config: root %s: %v", abs, err)
		} else if !info.IsDir() {
			logrus.Warnf("config: root %s is not a directory", abs)
		}
		normalized = append(normalized, abs)
	}

	// --- max file size ---
	maxMB := cli.MaxFileSizeMB
	if maxMB == 0 {
		if v := getenv("B64SERVE_MAX_FILE_SIZE_MB"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, errors.Errorf("invalid B64SERVE_MAX_FILE_SIZE_MB value %q", v)
			}
			maxMB = n
		}
	}
	if maxMB == 0 {
		maxMB = fc.MaxFileSizeMB
	}
	if maxMB == 0 {
		maxMB = 50
	}
	if maxMB < 0 {
		return nil, errors.Errorf("invalid max file size %dMB", maxMB)
	}

	// --- base dir ---
	baseDir := cli.BaseDir
	if baseDir == "" {
		baseDir = getenv("B64SERVE_BASE_DIR")
	}
	if baseDir == "" {
		baseDir = fc.BaseDir
	}
	if baseDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "could not determine working directory")
		}
		baseDir = cwd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving base dir %q", baseDir)
	}

	// --- bandwidth ---
	bwRaw := cli.Bandwidth
	if bwRaw == "" {
		bwRaw = getenv("B64SERVE_BANDWIDTH")
	}
	if bwRaw == "" {
		bwRaw = fc.Bandwidth
	}
	var bandwidthBps float64
	if bwRaw != "" {
		bps, err := parseBandwidth(bwRaw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid bandwidth %q", bwRaw)
		}
		bandwidthBps = bps
	}

	return &Config{
		Port:          port,
		AllowedRoots:  normalized,
		MaxFileSizeMB: maxMB,
		BaseDir:       filepath.Clean(absBase),
		Bandwidth:     bandwidthBps,
	}, nil
}

// parseBandwidth converts a human-readable bandwidth string to bytes per
// second. Accepted units (case-insensitive): bps, kbps, mbps, gbps.
// A bare number is treated as bits per second.
//
// Examples: "10mbps", "500 kbps", "1gbps", "131072"
func parseBandwidth(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	// Split into numeric prefix and unit suffix.
	i := 0
	for i < len(s) && (s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	if i == 0 {
		return 0, errors.New("no numeric value found")
	}
	numStr := s[:i]
	unit := strings.ToLower(strings.TrimFunc(s[i:], unicode.IsSpace))

	val, err := strconv.ParseFloat(numStr, 64)
	if err != nil || val < 0 {
		return 0, errors.Errorf("invalid number %q", numStr)
	}

	// Convert bits/sec units to bytes/sec.
	switch unit {
	case "", "bps":
		return val / 8, nil
	case "kbps":
		return val * 1_000 / 8, nil
	case "mbps":
		return val * 1_000_000 / 8, nil
	case "gbps":
		return val * 1_000_000_000 / 8, nil
	default:
		return 0, errors.Errorf("unknown unit %q (accepted: bps, kbps, mbps, gbps)", unit)
	}
}
