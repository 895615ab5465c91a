package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultCalDAVServerURL = "https://caldav.icloud.com/"
	DefaultLLMBaseURL      = "https://api.deepseek.com"
	DefaultLLMModel        = "deepseek-chat"
	DefaultTimezone        = "Asia/Shanghai"
)

// ConfigFiles are read in priority order; the first one found wins.
var ConfigFiles = []string{"config_private.json", "config.json"}

// Profile is the configuration to start the calendar agent.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string
	// Timezone is the IANA zone used as the reference location for relative times
	Timezone string

	// Store selects the calendar driver: "caldav" or "memory"
	Store string
	// SessionStore selects the session backend: "memory" or "redis"
	SessionStore string
	// RedisAddr is the redis address used when SessionStore is "redis"
	RedisAddr string
	// APISecret signs API bearer tokens; empty leaves the API open
	APISecret string // CALENDAR_API_SECRET

	// CalDAV configuration
	CalDAVServerURL       string // CALDAV_SERVER_URL (default: https://caldav.icloud.com/)
	CalDAVUsername        string // APPLE_CALENDAR_USERNAME
	CalDAVPassword        string // APPLE_CALENDAR_PASSWORD (app-specific password)
	CalDAVDefaultCalendar string // CALENDAR_DEFAULT_CALENDAR

	// Language service configuration
	LLMProvider string // LLM_PROVIDER (default: deepseek, "none" disables it)
	LLMAPIKey   string // DEEPSEEK_API_KEY
	LLMBaseURL  string // DEEPSEEK_BASE_URL (default: https://api.deepseek.com)
	LLMModel    string // DEEPSEEK_MODEL (default: deepseek-chat)

	// PMThrough is the last bare hour treated as afternoon ("3点" -> 15:00); 0 disables it.
	PMThrough int // CALENDAR_PM_THROUGH (default: 7)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if a language service provider and its API key are configured.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMProvider != "none" && p.LLMAPIKey != ""
}

// Location returns the configured reference location.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables. Values already set are kept
// unless the variable is present.
func (p *Profile) FromEnv() {
	p.CalDAVServerURL = getEnvOrDefault("CALDAV_SERVER_URL", p.CalDAVServerURL)
	p.CalDAVUsername = getEnvOrDefault("APPLE_CALENDAR_USERNAME", p.CalDAVUsername)
	p.CalDAVPassword = getEnvOrDefault("APPLE_CALENDAR_PASSWORD", p.CalDAVPassword)
	p.CalDAVDefaultCalendar = getEnvOrDefault("CALENDAR_DEFAULT_CALENDAR", p.CalDAVDefaultCalendar)

	p.LLMProvider = getEnvOrDefault("LLM_PROVIDER", p.LLMProvider)
	p.LLMAPIKey = getEnvOrDefault("DEEPSEEK_API_KEY", p.LLMAPIKey)
	p.LLMBaseURL = getEnvOrDefault("DEEPSEEK_BASE_URL", p.LLMBaseURL)
	p.LLMModel = getEnvOrDefault("DEEPSEEK_MODEL", p.LLMModel)

	p.Timezone = getEnvOrDefault("CALENDAR_TIMEZONE", p.Timezone)
	p.RedisAddr = getEnvOrDefault("REDIS_ADDR", p.RedisAddr)
	p.APISecret = getEnvOrDefault("CALENDAR_API_SECRET", p.APISecret)
	if v := os.Getenv("CALENDAR_PM_THROUGH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.PMThrough = n
		}
	}
}

// FromConfigFile merges the first config file found in dir (config_private.json before
// config.json). A missing file is not an error.
func (p *Profile) FromConfigFile(dir string) error {
	for _, name := range ConfigFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}
		p.fromViper(v)
		slog.Debug("loaded config file", slog.String("file", name))
		return nil
	}
	return nil
}

func (p *Profile) fromViper(v *viper.Viper) {
	set := func(dst *string, key string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	set(&p.CalDAVServerURL, "caldav.server_url")
	set(&p.CalDAVUsername, "caldav.username")
	set(&p.CalDAVPassword, "caldav.password")
	set(&p.CalDAVDefaultCalendar, "caldav.default_calendar")
	set(&p.LLMAPIKey, "deepseek.api_key")
	set(&p.LLMBaseURL, "deepseek.base_url")
	set(&p.LLMModel, "deepseek.model")
	set(&p.Timezone, "timezone")
	set(&p.APISecret, "api.secret")
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port == 0 {
		p.Port = 5000
	}
	if p.Timezone == "" {
		p.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
	}

	if p.Store == "" {
		p.Store = "caldav"
	}
	if p.SessionStore == "" {
		p.SessionStore = "memory"
	}
	if p.LLMProvider == "" {
		p.LLMProvider = "deepseek"
	}
	if p.CalDAVServerURL == "" {
		p.CalDAVServerURL = DefaultCalDAVServerURL
	}
	if p.LLMBaseURL == "" {
		p.LLMBaseURL = DefaultLLMBaseURL
	}
	if p.LLMModel == "" {
		p.LLMModel = DefaultLLMModel
	}

	switch p.Store {
	case "caldav":
		if p.CalDAVUsername == "" || p.CalDAVPassword == "" {
			return errors.New("caldav.username and caldav.password are required (APPLE_CALENDAR_USERNAME / APPLE_CALENDAR_PASSWORD)")
		}
	case "memory":
	default:
		return errors.Errorf("unsupported store %q", p.Store)
	}

	switch p.SessionStore {
	case "memory":
	case "redis":
		if p.RedisAddr == "" {
			return errors.New("redis address is required for the redis session store")
		}
	default:
		return errors.Errorf("unsupported session store %q", p.SessionStore)
	}

	if !p.IsLLMEnabled() {
		slog.Warn("language service not configured, using rule-based extraction only")
	}
	return nil
}
