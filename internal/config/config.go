package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SPACETRAVELING_PRISMIC_ACCESSTOKEN.
const EnvPrefix = "SPACETRAVELING"

type Config struct {
	SiteTitle    string        `mapstructure:"siteTitle"`
	BaseURL      string        `mapstructure:"baseURL"`
	OutputDir    string        `mapstructure:"outputDir"`
	LayoutsDir   string        `mapstructure:"layoutsDir"`
	ContentDir   string        `mapstructure:"contentDir"`
	StaticDir    string        `mapstructure:"staticDir"`
	Locale       string        `mapstructure:"locale"`
	Revalidate   time.Duration `mapstructure:"revalidate"`
	DocumentType string        `mapstructure:"documentType"`

	Listing   PageSize `mapstructure:"listing"`
	Prerender PageSize `mapstructure:"prerender"`

	Source   Source   `mapstructure:"source"`
	Prismic  Prismic  `mapstructure:"prismic"`
	Postgres Postgres `mapstructure:"postgres"`
	Cache    Cache    `mapstructure:"cache"`
	Redis    Redis    `mapstructure:"redis"`
	Server   Server   `mapstructure:"server"`
}

type PageSize struct {
	PageSize int `mapstructure:"pageSize"`
}

// Source selects the document backend: "prismic" or "postgres".
type Source struct {
	Driver string `mapstructure:"driver"`
}

type Prismic struct {
	Endpoint    string `mapstructure:"endpoint"`
	AccessToken string `mapstructure:"accessToken"`
}

type Postgres struct {
	DSN string `mapstructure:"dsn"`
}

// Cache selects the page cache used by serve: "memory" or "redis".
type Cache struct {
	Driver string `mapstructure:"driver"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Server struct {
	Port int `mapstructure:"port"`
}

// Load reads cfgFile, or ./config.yaml when cfgFile is empty, and applies
// environment overrides. A missing default config file is not an error.
// The returned string is the config file actually used, if any.
func Load(cfgFile string) (Config, string, error) {
	v := viper.New()

	v.SetDefault("siteTitle", "spacetraveling.")
	v.SetDefault("baseURL", "")
	v.SetDefault("outputDir", "public")
	v.SetDefault("layoutsDir", "layouts")
	v.SetDefault("contentDir", "content")
	v.SetDefault("staticDir", "static")
	v.SetDefault("locale", "pt-BR")
	v.SetDefault("revalidate", "30m")
	v.SetDefault("documentType", "posts")
	v.SetDefault("listing.pageSize", 20)
	v.SetDefault("prerender.pageSize", 2)
	v.SetDefault("source.driver", "prismic")
	v.SetDefault("prismic.endpoint", "")
	v.SetDefault("prismic.accessToken", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("server.port", 3000)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return Config{}, "", fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}
	return cfg, used, nil
}

// Validate checks values that have no usable default.
func (c Config) Validate() error {
	if c.Revalidate <= 0 {
		return fmt.Errorf("revalidate must be positive, got %s", c.Revalidate)
	}
	if c.DocumentType == "" {
		return fmt.Errorf("documentType must not be empty")
	}
	switch c.Source.Driver {
	case "prismic", "postgres":
	default:
		return fmt.Errorf("unknown source.driver %q (want prismic or postgres)", c.Source.Driver)
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache.driver %q (want memory or redis)", c.Cache.Driver)
	}
	return nil
}

// RequireSource checks the settings of the selected document backend.
// Commands that never fetch documents skip it.
func (c Config) RequireSource() error {
	switch c.Source.Driver {
	case "prismic":
		u, err := url.Parse(c.Prismic.Endpoint)
		if c.Prismic.Endpoint == "" || err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("prismic.endpoint must be an absolute URL (or set %s_PRISMIC_ENDPOINT)", EnvPrefix)
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn must be set (or set %s_POSTGRES_DSN)", EnvPrefix)
		}
	}
	return nil
}
