package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/breeze-rmm/registry-inspector/internal/inspector"
)

// EnvPrefix is prepended to environment overrides, e.g. REGINSPECT_FORMAT.
const EnvPrefix = "REGINSPECT"

// Config holds the inspector configuration
type Config struct {
	// Output
	Format           string `mapstructure:"format"`
	FailOnVulnerable bool   `mapstructure:"fail_on_vulnerable"`

	// Store backend
	Store     string `mapstructure:"store"`
	StoreFile string `mapstructure:"store_file"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Audit trail
	AuditLog        string `mapstructure:"audit_log"`
	AuditMaxSizeMB  int    `mapstructure:"audit_max_size_mb"`
	AuditMaxBackups int    `mapstructure:"audit_max_backups"`

	// Check run when no positional arguments are given
	Check CheckConfig `mapstructure:"check"`
}

// CheckConfig overrides the default check.
type CheckConfig struct {
	Location  string `mapstructure:"location"`
	ValueName string `mapstructure:"value_name"`
	Expected  string `mapstructure:"expected"`
}

// Request converts the configured check into an inspector request.
func (c CheckConfig) Request() inspector.Request {
	return inspector.Request{
		Location:  c.Location,
		ValueName: c.ValueName,
		Expected:  c.Expected,
	}
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	def := inspector.DefaultRequest()
	return &Config{
		Format:          "plain",
		Store:           "auto",
		StoreFile:       filepath.Join(GetConfigDir(), "store.yaml"),
		LogLevel:        "error",
		LogFormat:       "console",
		AuditMaxSizeMB:  10,
		AuditMaxBackups: 3,
		Check: CheckConfig{
			Location:  def.Location,
			ValueName: def.ValueName,
			Expected:  def.Expected,
		},
	}
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"format":             "format",
	"fail-on-vulnerable": "fail_on_vulnerable",
	"store":              "store",
	"store-file":         "store_file",
	"log-level":          "log_level",
	"log-format":         "log_format",
	"audit-log":          "audit_log",
}

// Load reads configuration from file, environment and flags, in increasing
// order of precedence. cfgFile may be empty to search the default locations.
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("registry-inspector")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("format", cfg.Format)
	v.SetDefault("fail_on_vulnerable", cfg.FailOnVulnerable)
	v.SetDefault("store", cfg.Store)
	v.SetDefault("store_file", cfg.StoreFile)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("audit_log", cfg.AuditLog)
	v.SetDefault("audit_max_size_mb", cfg.AuditMaxSizeMB)
	v.SetDefault("audit_max_backups", cfg.AuditMaxBackups)
	v.SetDefault("check.location", cfg.Check.Location)
	v.SetDefault("check.value_name", cfg.Check.ValueName)
	v.SetDefault("check.expected", cfg.Check.Expected)
}

// GetConfigDir returns the platform-specific config directory
func GetConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Breeze", "RegistryInspector")
	case "darwin":
		return "/Library/Application Support/Breeze/RegistryInspector"
	default:
		return "/etc/registry-inspector"
	}
}
