package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig holds the shell's network and authentication settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"`
	CLIPort                int    `mapstructure:"cli_port"`
	MaxCLILoginAttempt     int    `mapstructure:"max_cli_login_attempt"`
	CLILockdown            string `mapstructure:"cli_lockdown"`
	CLICooldownSeconds     int    `mapstructure:"cli_cooldown"`
	CLIAuthTimeoutMs       int    `mapstructure:"cli_authentication_timeout"`
	CLIInputSizeRaw        string `mapstructure:"cli_input_size"`
}

// DirConfig holds on-disk directory locations.
type DirConfig struct {
	Database string `mapstructure:"database"`
	Logs     string `mapstructure:"logs"`
}

// PersistentConfig controls AOL durability.
type PersistentConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	BackupSizeLimitRaw string `mapstructure:"backup_size_limit"`
}

// MeidsConfig controls the sharded data file layer.
type MeidsConfig struct {
	Encrypt    bool   `mapstructure:"encrypt"`
	Permission string `mapstructure:"permission"`
	Count      int    `mapstructure:"count"`
	SizeRaw    string `mapstructure:"size"`
}

// MemoryConfig controls the in-memory cap and unit base used when parsing
// every byte-size string elsewhere in the config.
type MemoryConfig struct {
	Monitor    bool   `mapstructure:"monitor"`
	MaxSizeRaw string `mapstructure:"max_size"`
	MBMode     bool   `mapstructure:"mb_mode"`
}

// LogsConfig controls internal/logx's output.
type LogsConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	ShowTime           bool   `mapstructure:"show_time"`
	TimeFormat         string `mapstructure:"time_format"`
	UseColors          bool   `mapstructure:"use_colors"`
	SaveCLIConnections bool   `mapstructure:"save_cli_connections"`
	SaveCLILogins      bool   `mapstructure:"save_cli_logins"`
}

// Config is the fully loaded, typed server configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Dir        DirConfig        `mapstructure:"dir"`
	Persistent PersistentConfig `mapstructure:"persistent"`
	Meids      MeidsConfig      `mapstructure:"meids"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Logs       LogsConfig       `mapstructure:"logs"`
}

// Load reads the YAML config file at path (if it exists - a missing file
// falls back entirely to defaults) and layers `MEIDKV_`-prefixed
// environment variables and any `.env`/`.env.local` file on top.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	applyDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, errors.Wrap(err, "config: read config file")
			}
		}
	}

	v.SetEnvPrefix("meidkv")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cli_port", 6402)
	v.SetDefault("server.max_cli_login_attempt", 3)
	v.SetDefault("server.cli_lockdown", "none")
	v.SetDefault("server.cli_cooldown", 60)
	v.SetDefault("server.cli_authentication_timeout", 5000)
	v.SetDefault("server.cli_input_size", "0")

	v.SetDefault("dir.database", "data")
	v.SetDefault("dir.logs", "logs")

	v.SetDefault("persistent.enabled", true)
	v.SetDefault("persistent.backup_size_limit", "0")

	v.SetDefault("meids.encrypt", false)
	v.SetDefault("meids.permission", "0644")
	v.SetDefault("meids.count", 8)
	v.SetDefault("meids.size", "0")

	v.SetDefault("memory.monitor", false)
	v.SetDefault("memory.max_size", "0")
	v.SetDefault("memory.mb_mode", true)

	v.SetDefault("logs.enabled", true)
	v.SetDefault("logs.show_time", true)
	v.SetDefault("logs.time_format", "15:04:05")
	v.SetDefault("logs.use_colors", true)
	v.SetDefault("logs.save_cli_connections", false)
	v.SetDefault("logs.save_cli_logins", true)
}

// CLIInputSizeBytes resolves the configured max shell input size to bytes.
func (c *Config) CLIInputSizeBytes() (int64, error) {
	return ParseByteSize(c.Server.CLIInputSizeRaw, c.Memory.MBMode)
}

// BackupSizeLimitBytes resolves the AOL rotation size to bytes.
func (c *Config) BackupSizeLimitBytes() (int64, error) {
	return ParseByteSize(c.Persistent.BackupSizeLimitRaw, c.Memory.MBMode)
}

// MeidEntrySizeBytes resolves the per-entry size cap to bytes.
func (c *Config) MeidEntrySizeBytes() (int64, error) {
	return ParseByteSize(c.Meids.SizeRaw, c.Memory.MBMode)
}

// MemoryMaxSizeBytes resolves the overall memory cap to bytes.
func (c *Config) MemoryMaxSizeBytes() (int64, error) {
	return ParseByteSize(c.Memory.MaxSizeRaw, c.Memory.MBMode)
}

// AuthTimeoutMs clamps the configured auth timeout to a 1000 ms floor, so
// a misconfigured value can't shrink the window a client needs to
// authenticate within.
func (c *Config) AuthTimeoutMs() int {
	if c.Server.CLIAuthTimeoutMs < 1000 {
		return 1000
	}
	return c.Server.CLIAuthTimeoutMs
}

// CooldownSeconds clamps the configured lockdown cooldown to a 5-second
// floor.
func (c *Config) CooldownSeconds() int {
	if c.Server.CLICooldownSeconds < 5 {
		return 5
	}
	return c.Server.CLICooldownSeconds
}

// MeidFileMode parses meids.permission as an octal Unix mode string (e.g.
// "0644"), used when creating shard data and key files. An empty or
// unparsable value falls back to 0644.
func (c *Config) MeidFileMode() os.FileMode {
	s := strings.TrimSpace(c.Meids.Permission)
	if s == "" {
		return 0o644
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0o644
	}
	return os.FileMode(n)
}
