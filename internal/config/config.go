package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Log struct {
		Level string
	} `mapstructure:"log"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
		Debug       bool
		TimeoutSec  int `mapstructure:"timeout_sec"`
	} `mapstructure:"telegram"`

	API struct {
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"api"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Redis struct {
		Addr       string
		Password   string
		DB         int
		SessionTTL time.Duration `mapstructure:"session_ttl"`
		RecentTTL  time.Duration `mapstructure:"recent_ttl"`
	} `mapstructure:"redis"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Tracing struct {
		Enabled      bool
		Exporter     string
		OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
		SamplerRatio float64 `mapstructure:"sampler_ratio"`
	} `mapstructure:"tracing"`

	UI struct {
		ToastTTL       time.Duration `mapstructure:"toast_ttl"`
		SearchDebounce time.Duration `mapstructure:"search_debounce"`
	} `mapstructure:"ui"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("log.level", "info")
	v.SetDefault("telegram.timeout_sec", 60)
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.session_ttl", 720*time.Hour)
	v.SetDefault("redis.recent_ttl", 24*time.Hour)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.sampler_ratio", 1.0)
	v.SetDefault("ui.toast_ttl", 3500*time.Millisecond)
	v.SetDefault("ui.search_debounce", 250*time.Millisecond)
}

func Load(path string) (Config, error) {
	// .env is optional
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		errs = append(errs, errors.New("postgres.dsn is required"))
	}
	return errors.Join(errs...)
}
