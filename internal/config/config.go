package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// current holds the live configuration. Hot reloads swap the pointer
// atomically, so readers on other goroutines always see a consistent
// snapshot without locking.
var current atomic.Pointer[Config]

// Get returns the live configuration snapshot. Callers that must follow
// hot reloads (the admin list) re-call Get instead of caching the result.
func Get() *Config {
	return current.Load()
}

// Config struct is the top-level configuration structure.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Templates TemplatesConfig `mapstructure:"templates"`
}

// TelegramConfig holds the bot credentials and the admin list.
type TelegramConfig struct {
	Token    string  `mapstructure:"token"`
	AdminIDs []int64 `mapstructure:"admin_ids"`
	// Mode selects how updates arrive: "polling" or "webhook".
	Mode       string `mapstructure:"mode"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// IsAdmin reports whether the given Telegram user ID is on the admin list.
func (t TelegramConfig) IsAdmin(userID int64) bool {
	for _, id := range t.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ServerConfig holds the HTTP server settings (webhook mode and health checks).
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings. Driver selects the
// backend: "sqlite" uses Path, "postgres" uses the connection fields.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// LimitsConfig caps questionnaire size during authoring and import.
type LimitsConfig struct {
	MaxQuestions int `mapstructure:"max_questions"`
	MaxOptions   int `mapstructure:"max_options"`
}

// TemplatesConfig points at the directory the /import command reads from.
type TemplatesConfig struct {
	Directory string `mapstructure:"directory"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Telegram defaults
	v.SetDefault("telegram.mode", "polling")

	// Server defaults
	v.SetDefault("server.port", "8080")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "surveybot.db")
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "surveybot")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Limits defaults
	v.SetDefault("limits.max_questions", 20)
	v.SetDefault("limits.max_options", 10)

	// Templates defaults
	v.SetDefault("templates.directory", "templates")
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config") // Name of config file (without extension)
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("SURVEYBOT") // e.g., SURVEYBOT_TELEGRAM_TOKEN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into a fresh struct and publish it atomically.
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	current.Store(&c)

	if c.Telegram.Token == "" {
		log.Warn("No Telegram token configured; set telegram.token or SURVEYBOT_TELEGRAM_TOKEN")
	}

	// Set up a watch for configuration changes for hot-reloading. Reloads
	// build a new struct and swap the pointer; the old snapshot stays
	// valid for readers mid-event.
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
			return
		}
		current.Store(&next)
	})

	log.Info("Configuration loaded successfully")
	return nil
}
