package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/joho/godotenv"
)

const (
	defaultCasesFile  = "config/endpoints.json"
	defaultReportFile = "reports/api_test_result.xlsx"
	envFile           = ".env"
)

// Environment variables that override the fixed default locations.
const (
	EnvCases       = "APISMOKE_CASES"
	EnvCasesSheet  = "APISMOKE_CASES_SHEET"
	EnvReport      = "APISMOKE_REPORT"
	EnvMetricsFile = "APISMOKE_METRICS_FILE"
	EnvDebug       = "DEBUG"
)

// Config holds process-level settings. Case definitions are loaded separately by LoadCases.
type Config struct {
	BaseDir     string // directory holding the executable; relative paths resolve against it
	CasesPath   string
	CasesSheet  string // xlsx case files only; empty selects the first sheet
	ReportPath  string
	MetricsPath string // empty disables the metrics textfile
	Debug       bool
}

// Load resolves settings from the .env file, the environment and the executable's location.
func Load() (*Config, error) {
	baseDir, err := executableDir()
	if err != nil {
		return nil, errors.Wrap(err, "locate executable")
	}
	return LoadFrom(baseDir)
}

// LoadFrom is Load with an explicit base directory.
func LoadFrom(baseDir string) (*Config, error) {
	if err := loadDotEnv(baseDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseDir:     baseDir,
		CasesPath:   stringEnv(EnvCases, defaultCasesFile),
		CasesSheet:  stringEnv(EnvCasesSheet, ""),
		ReportPath:  stringEnv(EnvReport, defaultReportFile),
		MetricsPath: stringEnv(EnvMetricsFile, ""),
		Debug:       boolEnv(EnvDebug, false),
	}
	cfg.CasesPath = cfg.Resolve(cfg.CasesPath)
	cfg.ReportPath = cfg.Resolve(cfg.ReportPath)
	if cfg.MetricsPath != "" {
		cfg.MetricsPath = cfg.Resolve(cfg.MetricsPath)
	}
	return cfg, nil
}

// Resolve anchors a relative path at BaseDir.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// loadDotEnv reads .env from the working directory and from baseDir. Existing
// environment variables always win.
func loadDotEnv(baseDir string) error {
	candidates := []string{envFile, filepath.Join(baseDir, envFile)}
	seen := make(map[string]bool, len(candidates))
	for _, path := range candidates {
		abs, err := filepath.Abs(path)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true

		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return errors.Wrapf(err, "load %s", abs)
		}
	}
	return nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
