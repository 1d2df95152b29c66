package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/oromamedia/oroma-tv/backend/internal/moderation"
	"github.com/spf13/viper"
)

const (
	envPrefix            = "OROMA"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "oroma.db"
	defaultLogLevel      = "info"
	defaultAdminUsername = "admin"
	defaultTokenTTLMin   = 60
	defaultChatPolicy    = string(moderation.PolicyMask)
	defaultCommentPolicy = string(moderation.PolicyReject)
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress       string
	DatabasePath      string
	LogLevel          string
	RedisAddr         string
	SigningSecret     string
	TokenTTL          time.Duration
	AdminUsername     string
	AdminPasswordHash string
	ChatPolicy        moderation.Policy
	CommentPolicy     moderation.Policy
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("redis.addr", "")
	configViper.SetDefault("auth.admin_username", defaultAdminUsername)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMin)
	configViper.SetDefault("moderation.chat_policy", defaultChatPolicy)
	configViper.SetDefault("moderation.comment_policy", defaultCommentPolicy)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	chatPolicy, err := moderation.ParsePolicy(configViper.GetString("moderation.chat_policy"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("moderation.chat_policy: %w", err)
	}
	commentPolicy, err := moderation.ParsePolicy(configViper.GetString("moderation.comment_policy"))
	if err != nil {
		return AppConfig{}, fmt.Errorf("moderation.comment_policy: %w", err)
	}

	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		RedisAddr:         configViper.GetString("redis.addr"),
		SigningSecret:     configViper.GetString("auth.signing_secret"),
		TokenTTL:          time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		AdminUsername:     configViper.GetString("auth.admin_username"),
		AdminPasswordHash: configViper.GetString("auth.admin_password_hash"),
		ChatPolicy:        chatPolicy,
		CommentPolicy:     commentPolicy,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.AdminPasswordHash) == "" {
		return fmt.Errorf("auth.admin_password_hash is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	return nil
}
