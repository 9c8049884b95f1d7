// Package config carga la configuración del broker desde YAML con
// overrides por variables de entorno para los secretos. Ninguna
// credencial es constante de compilación; todo lo que gobierna
// comportamiento se inyecta por deploy, y las credenciales OAuth por
// tenant viven en el registro del client.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL es el origin público del broker; con él se arman los
		// callbacks OAuth registrados en cada provider.
		BaseURL string `yaml:"base_url"`
		// LoginURL es la superficie de login a la que vuelve el flujo
		// browser ante errores o cancelación del provider.
		LoginURL           string   `yaml:"login_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		ReadTimeout        string   `yaml:"read_timeout"`
		WriteTimeout       string   `yaml:"write_timeout"`
	} `yaml:"server"`

	Storage struct {
		// Driver: "memory" | "postgres"
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// Kind: "memory" | "redis"
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		// Secret firma los bearer tokens del broker. Override con
		// AUTHBROKER_JWT_SECRET; obligatorio en prod.
		Secret string `yaml:"secret"`
		// TTL de los tokens emitidos. Default 8760h (un año).
		TTL string `yaml:"ttl"`
	} `yaml:"jwt"`

	Admin struct {
		// APIKey custodia los endpoints CRUD admin de clients. Override
		// con AUTHBROKER_ADMIN_API_KEY.
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`

	Providers struct {
		// Timeout acota cada llamada saliente a un provider OAuth.
		Timeout string `yaml:"timeout"`
	} `yaml:"providers"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Social struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"social"`
	} `yaml:"rate"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load lee el YAML en path, aplica overrides de entorno y defaults, y
// valida el resultado.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("AUTHBROKER_JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("AUTHBROKER_ADMIN_API_KEY"); v != "" {
		c.Admin.APIKey = v
	}
	if v := os.Getenv("AUTHBROKER_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("AUTHBROKER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("AUTHBROKER_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.LoginURL == "" && c.Server.BaseURL != "" {
		c.Server.LoginURL = strings.TrimRight(c.Server.BaseURL, "/") + "/login"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.JWT.TTL == "" {
		c.JWT.TTL = "8760h"
	}
	if c.Providers.Timeout == "" {
		c.Providers.Timeout = "5s"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 20
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Social.Limit == 0 {
		c.Rate.Social.Limit = 30
	}
	if c.Rate.Social.Window == "" {
		c.Rate.Social.Window = "1m"
	}
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required (or AUTHBROKER_JWT_SECRET)")
	}
	if strings.EqualFold(c.App.Env, "prod") && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("config: jwt.secret must be at least 32 bytes in prod")
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn is required for the postgres driver")
	}
	if _, err := c.JWTTTL(); err != nil {
		return fmt.Errorf("config: jwt.ttl: %w", err)
	}
	if _, err := c.ProviderTimeout(); err != nil {
		return fmt.Errorf("config: providers.timeout: %w", err)
	}
	return nil
}

// JWTTTL devuelve la vida del bearer token ya parseada.
func (c *Config) JWTTTL() (time.Duration, error) {
	return time.ParseDuration(c.JWT.TTL)
}

// ProviderTimeout devuelve el timeout por llamada a provider ya parseado.
func (c *Config) ProviderTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Providers.Timeout)
}

// Window parsea una ventana de rate, con fallback de un minuto.
func Window(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// Duration parsea un campo de duración opcional; cero si falta o está
// malformado, para que cada caller aplique su propio default.
func Duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
