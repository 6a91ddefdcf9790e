package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/EternisAI/vpn-admin-bot/internal/api/http"
	"github.com/EternisAI/vpn-admin-bot/internal/db"
	"github.com/EternisAI/vpn-admin-bot/internal/provisioner"
	"github.com/EternisAI/vpn-admin-bot/internal/session"
	"github.com/EternisAI/vpn-admin-bot/internal/telegram"
)

type Config struct {
	Log      LogConfig
	Telegram telegram.Config    `mapstructure:"telegram"`
	Auth     AuthConfig         `mapstructure:"auth"`
	Catalog  CatalogConfig      `mapstructure:"catalog"`
	Tool     provisioner.Config `mapstructure:"tool"`
	Http     http.Config        `mapstructure:"http"`
	Grpc     GrpcConfig         `mapstructure:"grpc"`
	DB       db.Config          `mapstructure:"db"`
}

type AuthConfig struct {
	Secret          string        `mapstructure:"secret"`
	SecretHash      string        `mapstructure:"secret_hash"`
	TTL             time.Duration `mapstructure:"ttl"`
	Superusers      string        `mapstructure:"superusers"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type CatalogConfig struct {
	Dir string `mapstructure:"dir"`
}

type GrpcConfig struct {
	Port int `mapstructure:"port"`
}

var config Config

func ParseCommaSeparated(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseSuperusers reads a comma separated list of numeric Telegram ids.
func ParseSuperusers(input string) ([]session.Principal, error) {
	ids := ParseCommaSeparated(input)
	result := make([]session.Principal, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid superuser id %q: %w", id, err)
		}
		result = append(result, session.Principal(n))
	}
	return result, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if c.Auth.Secret == "" && c.Auth.SecretHash == "" {
		errs = append(errs, errors.New("auth.secret or auth.secret_hash is required"))
	}
	if c.Auth.TTL <= 0 {
		errs = append(errs, errors.New("auth.ttl must be positive"))
	}
	if c.Auth.CleanupInterval <= 0 {
		errs = append(errs, errors.New("auth.cleanup_interval must be positive"))
	}
	if c.Catalog.Dir == "" {
		errs = append(errs, errors.New("catalog.dir is required"))
	}
	if c.Tool.Path == "" {
		errs = append(errs, errors.New("tool.path is required"))
	}
	if _, err := ParseSuperusers(c.Auth.Superusers); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Redacted returns a copy that is safe to print.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Telegram.Token = mask(c.Telegram.Token)
	c.Auth.Secret = mask(c.Auth.Secret)
	c.Auth.SecretHash = mask(c.Auth.SecretHash)
	c.Http.AdminAPIKey = mask(c.Http.AdminAPIKey)
	c.DB.Url = mask(c.DB.Url)
	return c
}

func setDefaults() {
	viper.SetDefault("log.level", LOG_LEVEL_INFO)
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.poll_timeout", telegram.DefaultPollTimeout)
	viper.SetDefault("telegram.debug", false)
	viper.SetDefault("auth.secret", "")
	viper.SetDefault("auth.secret_hash", "")
	viper.SetDefault("auth.ttl", time.Hour)
	viper.SetDefault("auth.superusers", "")
	viper.SetDefault("auth.cleanup_interval", 5*time.Minute)
	viper.SetDefault("catalog.dir", "/etc/openvpn/clients")
	viper.SetDefault("tool.path", "")
	viper.SetDefault("tool.create_flag", provisioner.DefaultCreateFlag)
	viper.SetDefault("tool.remove_flag", provisioner.DefaultRemoveFlag)
	viper.SetDefault("tool.timeout", provisioner.DefaultTimeout)
	viper.SetDefault("tool.concurrency", 1)
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.admin_api_key", "")
	viper.SetDefault("grpc.port", 0)
	viper.SetDefault("db.url", "")
	viper.SetDefault("db.schema", "")
}

func InitConfig() {
	var err error

	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/vpnbot")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	_ = viper.BindEnv("telegram.token", "TELEGRAM_TOKEN")
	_ = viper.BindEnv("auth.secret", "BOT_SECRET")
	_ = viper.BindEnv("db.url", "DB_URL")
	_ = viper.BindEnv("http.admin_api_key", "ADMIN_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}

	// Initialize logger with configured log level
	initLogger(config.Log.Level)

	// Pretty print config as JSON (only at DEBUG level)
	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		configJSON, err := json.MarshalIndent(config.Redacted(), "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}
