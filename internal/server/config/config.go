// Package config загружает конфигурацию сервера из значений по умолчанию,
// YAML файла и флагов командной строки (в порядке возрастания приоритета).
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// Значения по умолчанию
const (
	DefaultAddr           = ":8080"
	DefaultDBPath         = "tasktracker.db"
	DefaultReadTimeout    = 15 * time.Second
	DefaultWriteTimeout   = 15 * time.Second
	DefaultIdleTimeout    = 60 * time.Second
	DefaultBcryptCost     = bcrypt.DefaultCost
	DefaultSMTPPort       = 587
	DefaultSMTPSender     = "tasks@example.com"
	DefaultPollInterval   = 30 * time.Second
	DefaultMaxAttempts    = 5
	DefaultRateLimitRPS   = 1.0
	DefaultRateLimitBurst = 5
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// secretBytes длина случайного секрета, если он не задан
const secretBytes = 32

// HTTP параметры HTTP сервера
type HTTP struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// DB параметры базы данных
type DB struct {
	Path string `koanf:"path"`
}

// Auth параметры выдачи токенов и хеширования паролей
type Auth struct {
	Secret     string `koanf:"secret"`
	BcryptCost int    `koanf:"bcrypt_cost"`
}

// SMTP параметры почтового сервера. Пустой Host - письма только пишутся в лог.
type SMTP struct {
	Host     string `koanf:"host"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Sender   string `koanf:"sender"`
	Port     int    `koanf:"port"`
}

// Mail параметры фоновой отправки писем
type Mail struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	MaxAttempts  int           `koanf:"max_attempts"`
}

// RateLimit ограничение частоты signup/login запросов с одного IP
type RateLimit struct {
	// CIDR прокси, чьим X-Forwarded-For можно верить
	TrustedProxies []string `koanf:"trusted_proxies"`
	RPS            float64  `koanf:"rps"`
	Burst          int      `koanf:"burst"`
}

// Log параметры логирования
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config конфигурация сервера
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	SMTP      SMTP      `koanf:"smtp"`
	Log       Log       `koanf:"log"`
	DB        DB        `koanf:"db"`
	Auth      Auth      `koanf:"auth"`
	Mail      Mail      `koanf:"mail"`
	RateLimit RateLimit `koanf:"ratelimit"`

	// GeneratedSecret выставляется, если auth.secret не задан и был сгенерирован
	GeneratedSecret bool `koanf:"-"`
}

// NewFlagSet создает набор флагов со значениями по умолчанию.
// Имена флагов совпадают с ключами конфигурации.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.String("config", "", "path to YAML config file")

	fs.String("http.addr", DefaultAddr, "HTTP listen address")
	fs.Duration("http.read_timeout", DefaultReadTimeout, "HTTP read timeout")
	fs.Duration("http.write_timeout", DefaultWriteTimeout, "HTTP write timeout")
	fs.Duration("http.idle_timeout", DefaultIdleTimeout, "HTTP idle timeout")

	fs.String("db.path", DefaultDBPath, "path to SQLite database file")

	fs.String("auth.secret", "", "token signing secret (random if empty)")
	fs.Int("auth.bcrypt_cost", DefaultBcryptCost, "bcrypt cost for password hashes")

	fs.String("smtp.host", "", "SMTP host (empty - log emails instead of sending)")
	fs.Int("smtp.port", DefaultSMTPPort, "SMTP port")
	fs.String("smtp.username", "", "SMTP username")
	fs.String("smtp.password", "", "SMTP password")
	fs.String("smtp.sender", DefaultSMTPSender, "From address for outgoing emails")

	fs.Duration("mail.poll_interval", DefaultPollInterval, "outbox polling interval")
	fs.Int("mail.max_attempts", DefaultMaxAttempts, "delivery attempts before an email is abandoned")

	fs.Float64("ratelimit.rps", DefaultRateLimitRPS, "signup/login requests per second per IP")
	fs.Int("ratelimit.burst", DefaultRateLimitBurst, "signup/login burst per IP")
	fs.StringSlice("ratelimit.trusted_proxies", nil, "CIDRs of reverse proxies allowed to set X-Forwarded-For")

	fs.String("log.level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.String("log.format", DefaultLogFormat, "log format (text or json)")

	return fs
}

// Load разбирает args и собирает конфигурацию.
// Явно переданные флаги перекрывают файл, файл перекрывает значения по умолчанию.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("server")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	return FromFlags(fs)
}

// FromFlags собирает конфигурацию из уже разобранного набора флагов
func FromFlags(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, err := fs.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to read config flag: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Значения флагов по умолчанию применяются только для ключей, которых нет в файле
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Auth.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Auth.Secret = secret
		cfg.GeneratedSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет, что конфигурация корректна
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.IdleTimeout <= 0 {
		errs = append(errs, errors.New("http timeouts must be positive"))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost))
	}
	if c.SMTP.Host != "" && (c.SMTP.Port <= 0 || c.SMTP.Port > 65535) {
		errs = append(errs, fmt.Errorf("smtp.port must be a valid port, got %d", c.SMTP.Port))
	}
	if c.SMTP.Host != "" && c.SMTP.Sender == "" {
		errs = append(errs, errors.New("smtp.sender is required when smtp.host is set"))
	}
	if c.Mail.PollInterval <= 0 {
		errs = append(errs, errors.New("mail.poll_interval must be positive"))
	}
	if c.Mail.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("mail.max_attempts must be at least 1, got %d", c.Mail.MaxAttempts))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("ratelimit.rps must be positive and ratelimit.burst at least 1"))
	}
	for _, cidr := range c.RateLimit.TrustedProxies {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			errs = append(errs, fmt.Errorf("ratelimit.trusted_proxies: invalid CIDR %q", cidr))
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func randomSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
