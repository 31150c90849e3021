package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, it searches for mcp-runtime.yaml/.yml
// in standard locations. The search requires an explicit YAML extension to
// avoid Viper's SetConfigName matching the binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("mcp-runtime")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: MCPRUNTIME_SERVER_HTTP_ADDR
	viper.SetEnvPrefix("MCPRUNTIME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for an mcp-runtime config file
// with an explicit YAML extension.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".mcp-runtime"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "mcp-runtime"))
		}
	} else {
		paths = append(paths, "/etc/mcp-runtime")
	}
	return findConfigFileInPaths(paths)
}

func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "mcp-runtime"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds every Config key for environment variable support.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.allowed_origins")

	_ = viper.BindEnv("correlation.max_pending_requests")
	_ = viper.BindEnv("correlation.default_timeout")
	_ = viper.BindEnv("correlation.cleanup_interval")

	_ = viper.BindEnv("buffer.size")
	_ = viper.BindEnv("buffer.max_in_flight")
	_ = viper.BindEnv("buffer.max_frame_size")

	_ = viper.BindEnv("worker_pool.workers")
	_ = viper.BindEnv("worker_pool.queue_size")
	_ = viper.BindEnv("worker_pool.ordered_dispatch")

	_ = viper.BindEnv("session.max_idle_time")
	_ = viper.BindEnv("session.sweep_interval")

	_ = viper.BindEnv("oauth2.enabled")
	_ = viper.BindEnv("oauth2.jwks_url")
	_ = viper.BindEnv("oauth2.issuer")
	_ = viper.BindEnv("oauth2.audience")
	_ = viper.BindEnv("oauth2.jwks_cache_ttl")
	_ = viper.BindEnv("oauth2.required_scopes")
	_ = viper.BindEnv("oauth2.scope_policy")

	_ = viper.BindEnv("http_auth.skip_paths")
	_ = viper.BindEnv("http_auth.auth_realm")

	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the validated Config.
func LoadConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults, but does
// NOT apply dev defaults or validate. Use when CLI flags may override
// DevMode before validation.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was
// loaded, or empty if none was found (env-vars-only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
