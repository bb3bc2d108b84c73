package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

// PasswordPolicy controls registration / reset password strength checks.
type PasswordPolicy struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireDigit   bool `mapstructure:"require_digit"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// LockoutConfig controls the failed-login lockout state machine.
type LockoutConfig struct {
	Threshold       int `mapstructure:"threshold"`
	DurationMinutes int `mapstructure:"duration_minutes"`
}

// Duration 返回锁定时长
func (l LockoutConfig) Duration() time.Duration {
	return time.Duration(l.DurationMinutes) * time.Minute
}

// SessionConfig controls session lifetimes and the cookie transport.
type SessionConfig struct {
	IdleMinutes         int    `mapstructure:"idle_minutes"`
	AbsoluteHours       int    `mapstructure:"absolute_hours"`
	SweepIntervalMinute int    `mapstructure:"sweep_interval_minutes"`
	CookieName          string `mapstructure:"cookie_name"`
	CookieSecure        bool   `mapstructure:"cookie_secure"`
}

func (s SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleMinutes) * time.Minute
}

func (s SessionConfig) AbsoluteTTL() time.Duration {
	return time.Duration(s.AbsoluteHours) * time.Hour
}

func (s SessionConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalMinute) * time.Minute
}

// TokenConfig controls lifetimes of email-verification and password-reset tokens.
type TokenConfig struct {
	VerificationHours int `mapstructure:"verification_hours"`
	ResetMinutes      int `mapstructure:"reset_minutes"`
}

func (t TokenConfig) VerificationTTL() time.Duration {
	return time.Duration(t.VerificationHours) * time.Hour
}

func (t TokenConfig) ResetTTL() time.Duration {
	return time.Duration(t.ResetMinutes) * time.Minute
}

type AuthConfig struct {
	Password PasswordPolicy `mapstructure:"password"`
	Lockout  LockoutConfig  `mapstructure:"lockout"`
	Session  SessionConfig  `mapstructure:"session"`
	Tokens   TokenConfig    `mapstructure:"tokens"`

	// 未验证邮箱的账号是否允许登录（默认允许，身份信息里带 email_verified 标记）
	AllowUnverifiedLogin bool `mapstructure:"allow_unverified_login"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// SeedConfig bootstraps the first super_admin account on an empty database.
type SeedConfig struct {
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it defaults to "config.yaml" in current working directory.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		if path == "" {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
		} else {
			v.SetConfigFile(path)
		}

		// environment overrides, e.g. MP_SERVER_PORT=9000
		v.SetEnvPrefix("MP") // member portal
		v.AutomaticEnv()

		setDefaults(v)

		if err = v.ReadInConfig(); err != nil {
			err = fmt.Errorf("read config: %w", err)
			return
		}

		var c Config
		if err = v.Unmarshal(&c); err != nil {
			err = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		appConfig = &c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// setDefaults 给所有安全相关参数设置默认值，配置文件里可以只写需要覆盖的项
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8080)

	v.SetDefault("auth.password.min_length", 8)
	v.SetDefault("auth.password.require_upper", true)
	v.SetDefault("auth.password.require_lower", true)
	v.SetDefault("auth.password.require_digit", true)
	v.SetDefault("auth.password.require_special", false)

	v.SetDefault("auth.lockout.threshold", 5)
	v.SetDefault("auth.lockout.duration_minutes", 30)

	v.SetDefault("auth.session.idle_minutes", 60)
	v.SetDefault("auth.session.absolute_hours", 8)
	v.SetDefault("auth.session.sweep_interval_minutes", 60)
	v.SetDefault("auth.session.cookie_name", "mp_session")
	v.SetDefault("auth.session.cookie_secure", false)

	v.SetDefault("auth.tokens.verification_hours", 24)
	v.SetDefault("auth.tokens.reset_minutes", 60)

	v.SetDefault("auth.allow_unverified_login", true)
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}
