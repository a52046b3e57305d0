package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.HTTP.Addr)
	assert.Equal(t, DefaultReadTimeout, cfg.HTTP.ReadTimeout)
	assert.Equal(t, DefaultDBPath, cfg.DB.Path)
	assert.Equal(t, DefaultBcryptCost, cfg.Auth.BcryptCost)
	assert.Equal(t, DefaultPollInterval, cfg.Mail.PollInterval)
	assert.Equal(t, DefaultMaxAttempts, cfg.Mail.MaxAttempts)
	assert.InDelta(t, DefaultRateLimitRPS, cfg.RateLimit.RPS, 0.0001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.SMTP.Host)
	assert.Empty(t, cfg.RateLimit.TrustedProxies)

	// Секрет не задан - генерируется случайный
	assert.True(t, cfg.GeneratedSecret)
	assert.Len(t, cfg.Auth.Secret, secretBytes*2)

	other, err := Load(nil)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Auth.Secret, other.Auth.Secret)
}

func TestLoad_FileAndFlags(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9090"
  read_timeout: 5s
db:
  path: /var/lib/tasks.db
auth:
  secret: from-file
smtp:
  host: smtp.example.com
  port: 2525
mail:
  poll_interval: 1m
ratelimit:
  trusted_proxies:
    - 10.0.0.0/8
    - 192.168.0.0/16
log:
  format: json
`)

	cfg, err := Load([]string{"--config", path, "--http.addr", ":7070", "--log.level", "debug"})
	require.NoError(t, err)

	// Флаг перекрывает файл
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Значения из файла
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "/var/lib/tasks.db", cfg.DB.Path)
	assert.Equal(t, "from-file", cfg.Auth.Secret)
	assert.False(t, cfg.GeneratedSecret)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, time.Minute, cfg.Mail.PollInterval)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, cfg.RateLimit.TrustedProxies)
	assert.Equal(t, "json", cfg.Log.Format)

	// Не заданы ни в файле, ни флагами
	assert.Equal(t, DefaultWriteTimeout, cfg.HTTP.WriteTimeout)
	assert.Equal(t, DefaultSMTPSender, cfg.SMTP.Sender)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing config file", args: []string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}},
		{name: "unknown flag", args: []string{"--no-such-flag"}},
		{name: "bad log format", args: []string{"--log.format", "xml"}},
		{name: "bcrypt cost too low", args: []string{"--auth.bcrypt_cost", "2"}},
		{name: "bad trusted proxy", args: []string{"--ratelimit.trusted_proxies", "10.0.0.1/99"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			HTTP:      HTTP{Addr: ":8080", ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second},
			DB:        DB{Path: "x.db"},
			Auth:      Auth{Secret: "s", BcryptCost: DefaultBcryptCost},
			SMTP:      SMTP{Sender: "a@b.c", Port: 25},
			Mail:      Mail{PollInterval: time.Second, MaxAttempts: 1},
			RateLimit: RateLimit{RPS: 1, Burst: 1},
			Log:       Log{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		mutate  func(c *Config)
		name    string
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty addr", mutate: func(c *Config) { c.HTTP.Addr = "" }, wantErr: "http.addr"},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTP.IdleTimeout = 0 }, wantErr: "timeouts"},
		{name: "empty db path", mutate: func(c *Config) { c.DB.Path = "" }, wantErr: "db.path"},
		{name: "bad smtp port", mutate: func(c *Config) { c.SMTP.Host = "smtp"; c.SMTP.Port = 70000 }, wantErr: "smtp.port"},
		{name: "no attempts", mutate: func(c *Config) { c.Mail.MaxAttempts = 0 }, wantErr: "mail.max_attempts"},
		{name: "zero burst", mutate: func(c *Config) { c.RateLimit.Burst = 0 }, wantErr: "ratelimit"},
		{name: "bad trusted proxy", mutate: func(c *Config) { c.RateLimit.TrustedProxies = []string{"proxy"} }, wantErr: "trusted_proxies"},
		{name: "trusted proxies", mutate: func(c *Config) { c.RateLimit.TrustedProxies = []string{"10.0.0.0/8", "::1/128"} }},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
