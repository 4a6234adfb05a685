// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Store    StoreConfig
	Download DownloadConfig
	Cache    CacheConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name        string
	Port        string        // Server port (default: 8080)
	ReadTimeout time.Duration // HTTP read timeout (default: 15s)
	// WriteTimeout must outlast the longest download attempt, since the
	// download endpoint holds its response open for the whole transfer.
	WriteTimeout time.Duration // HTTP write timeout (default: 15m)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// StoreConfig holds book-store aggregation configuration.
type StoreConfig struct {
	// EnableDbooks toggles the single-endpoint dbooks source (default: true)
	EnableDbooks bool
	// EnableLibgen toggles the multi-mirror libgen source (default: true)
	EnableLibgen bool
	// DbooksBaseURL is the dbooks API base (default: https://www.dbooks.org)
	DbooksBaseURL string
	// LibgenMirrors is the fixed mirror pool, in preference order
	LibgenMirrors []string
	// SearchTimeout bounds a whole search fan-out (default: 15s)
	SearchTimeout time.Duration
	// LinkExtractorURL is an optional external link-extraction service
	// consulted when catalog-page scraping finds nothing. Empty disables it.
	LinkExtractorURL string

	// Circuit breaker tuning. The libgen breaker tolerates more failures
	// because individual mirror failures are expected and handled by the
	// mirror health tracker.
	DbooksFailureThreshold int           // default: 3
	DbooksResetTimeout     time.Duration // default: 5m
	LibgenFailureThreshold int           // default: 5
	LibgenResetTimeout     time.Duration // default: 3m
}

// DownloadConfig holds file download configuration.
type DownloadConfig struct {
	// Dir is the destination directory for downloaded books
	Dir string
	// Timeout bounds a single download attempt (default: 10m)
	Timeout time.Duration
}

// CacheConfig holds search-result cache configuration.
type CacheConfig struct {
	// Enabled toggles the badger result cache (default: true)
	Enabled bool
	// Path is the badger directory (default: {download dir}/.cache)
	Path string
	// TTL is how long cached search results stay valid (default: 10m)
	TTL time.Duration
}

// defaultLibgenMirrors is the built-in mirror pool.
var defaultLibgenMirrors = []string{
	"https://libgen.is",
	"https://libgen.rs",
	"https://libgen.st",
	"https://libgen.li",
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15m)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	enableDbooks := flag.String("enable-dbooks", "", "Enable the dbooks source (default: true)")
	enableLibgen := flag.String("enable-libgen", "", "Enable the libgen source (default: true)")
	dbooksBaseURL := flag.String("dbooks-url", "", "dbooks API base URL")
	libgenMirrors := flag.String("libgen-mirrors", "", "Comma-separated libgen mirror base URLs")
	searchTimeout := flag.String("search-timeout", "", "Search fan-out timeout (default: 15s)")
	linkExtractorURL := flag.String("link-extractor-url", "", "External link-extraction service URL (optional)")

	downloadDir := flag.String("download-dir", "", "Destination directory for downloads")
	downloadTimeout := flag.String("download-timeout", "", "Download attempt timeout (default: 10m)")

	cacheEnabled := flag.String("cache-enabled", "", "Enable the search result cache (default: true)")
	cachePath := flag.String("cache-path", "", "Path for the result cache")
	cacheTTL := flag.String("cache-ttl", "", "Result cache TTL (default: 10m)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "Inkleaf Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Store: StoreConfig{
			EnableDbooks:           getBoolConfigValue(*enableDbooks, "STORE_ENABLE_DBOOKS", true),
			EnableLibgen:           getBoolConfigValue(*enableLibgen, "STORE_ENABLE_LIBGEN", true),
			DbooksBaseURL:          getConfigValue(*dbooksBaseURL, "STORE_DBOOKS_URL", "https://www.dbooks.org"),
			LinkExtractorURL:       getConfigValue(*linkExtractorURL, "STORE_LINK_EXTRACTOR_URL", ""),
			DbooksFailureThreshold: getIntConfigValue("", "STORE_DBOOKS_FAILURE_THRESHOLD", 3),
			LibgenFailureThreshold: getIntConfigValue("", "STORE_LIBGEN_FAILURE_THRESHOLD", 5),
		},
		Download: DownloadConfig{
			Dir: getConfigValue(*downloadDir, "DOWNLOAD_DIR", ""),
		},
		Cache: CacheConfig{
			Enabled: getBoolConfigValue(*cacheEnabled, "CACHE_ENABLED", true),
			Path:    getConfigValue(*cachePath, "CACHE_PATH", ""),
		},
	}

	// Parse the mirror pool.
	mirrorsStr := getConfigValue(*libgenMirrors, "STORE_LIBGEN_MIRRORS", "")
	if mirrorsStr == "" {
		cfg.Store.LibgenMirrors = defaultLibgenMirrors
	} else {
		for _, m := range strings.Split(mirrorsStr, ",") {
			m = strings.TrimRight(strings.TrimSpace(m), "/")
			if m != "" {
				cfg.Store.LibgenMirrors = append(cfg.Store.LibgenMirrors, m)
			}
		}
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15m"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Store.SearchTimeout, err = parseDurationValue(*searchTimeout, "STORE_SEARCH_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Store.DbooksResetTimeout, err = parseDurationValue("", "STORE_DBOOKS_RESET_TIMEOUT", "5m"); err != nil {
		return nil, err
	}
	if cfg.Store.LibgenResetTimeout, err = parseDurationValue("", "STORE_LIBGEN_RESET_TIMEOUT", "3m"); err != nil {
		return nil, err
	}
	if cfg.Download.Timeout, err = parseDurationValue(*downloadTimeout, "DOWNLOAD_TIMEOUT", "10m"); err != nil {
		return nil, err
	}
	if cfg.Cache.TTL, err = parseDurationValue(*cacheTTL, "CACHE_TTL", "10m"); err != nil {
		return nil, err
	}

	// Expand and validate paths.
	if err := cfg.expandDownloadDir(); err != nil {
		return nil, fmt.Errorf("invalid download dir: %w", err)
	}
	if err := cfg.expandCachePath(); err != nil {
		return nil, fmt.Errorf("invalid cache path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if len(c.Store.LibgenMirrors) == 0 {
		return errors.New("at least one libgen mirror is required")
	}

	if c.Store.DbooksFailureThreshold < 1 || c.Store.LibgenFailureThreshold < 1 {
		return errors.New("circuit breaker failure thresholds must be >= 1")
	}

	if c.Download.Dir == "" {
		return errors.New("download dir cannot be empty after expansion")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDownloadDir expands ~ and makes the path absolute.
// Defaults to ~/Inkleaf/downloads.
func (c *Config) expandDownloadDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Inkleaf", "downloads")

	expanded, err := expandPath(c.Download.Dir, defaultPath)
	if err != nil {
		return err
	}
	c.Download.Dir = expanded
	return nil
}

// expandCachePath expands ~ and makes the path absolute.
// Defaults to {download dir}/.cache.
func (c *Config) expandCachePath() error {
	defaultPath := filepath.Join(c.Download.Dir, ".cache")

	expanded, err := expandPath(c.Cache.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Cache.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// parseDurationValue resolves a duration setting through the standard precedence.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	str := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(strings.ReplaceAll(envKey, "_", " ")), str, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Strip surrounding quotes if present.
		value = strings.Trim(value, `"'`)

		// Don't override existing environment variables.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}
