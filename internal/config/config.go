// Package config loads crossfs settings from command-line flags,
// environment variables and a .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cross-org/fs/internal/validation"
	"github.com/cross-org/fs/pkg/crossfs"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	FS     FSConfig

	// Args holds the positional arguments left after the global flags:
	// the command name and its own arguments.
	Args []string
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `flag:"env" validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string `flag:"log-level" validate:"loglevel"`
	Format string `flag:"log-format" validate:"omitempty,oneof=json text pretty"`
}

// FSConfig selects the platform and tunes filesystem operations.
type FSConfig struct {
	Platform      string `flag:"platform" validate:"platform"`
	Concurrency   int    `flag:"concurrency" validate:"min=1,max=4096"`
	HashAlgorithm string `flag:"hash" validate:"hashalg"`
}

// LoadConfig parses args (without the program name) and builds the
// configuration. Precedence, highest first:
// 1. Command-line flags.
// 2. Environment variables.
// 3. .env file.
// 4. Default values.
//
// Parsing stops at the first positional argument, which starts Args.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("crossfs", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, text, pretty; default depends on env)")
	platformName := fs.String("platform", "", "Filesystem platform (native, unix, portable, memory)")
	concurrency := fs.String("concurrency", "", "Maximum platform calls in flight (default: 64)")
	hashAlgorithm := fs.String("hash", "", "Default hash algorithm (default: sha256)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env file is fine; a malformed one is not.
	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		FS: FSConfig{
			Platform:      getConfigValue(*platformName, "CROSSFS_PLATFORM", "native"),
			HashAlgorithm: getConfigValue(*hashAlgorithm, "CROSSFS_HASH", crossfs.DefaultHashAlgorithm),
		},
		Args: fs.Args(),
	}

	n, err := getIntConfigValue(*concurrency, "CROSSFS_CONCURRENCY", crossfs.DefaultConcurrency)
	if err != nil {
		return nil, err
	}
	cfg.FS.Concurrency = n

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that every value is present and valid.
func (c *Config) Validate() error {
	return validation.New().Validate(c)
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	s := getConfigValue(flagValue, envKey, "")
	if s == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return n, nil
}

// loadEnvFile loads KEY=value lines from path into the environment.
// Variables that already have a non-empty value keep it.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path) //#nosec G304 -- path comes from the -env-file flag
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}
