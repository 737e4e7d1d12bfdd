package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config agrupa toda la configuración del cliente. Se construye una sola vez
// en el arranque y se pasa por valor a los componentes; nunca se muta.
type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	API struct {
		// BaseURL es la raíz del API cifrado (xdata).
		BaseURL string `yaml:"base_url"`
		// CIAMBaseURL es la raíz del identity provider (OTP + grants).
		CIAMBaseURL string `yaml:"ciam_base_url"`
		// Key es el api key fijo enviado en x-api-key y usado por el codec.
		Key string `yaml:"key"`
		// BasicAuth es el valor ya codificado del header Authorization: Basic.
		BasicAuth string `yaml:"basic_auth"`
		// UserAgent fijo de la app móvil emulada.
		UserAgent string `yaml:"user_agent"`
		// ClientVersion es el tag x-version-app.
		ClientVersion string `yaml:"client_version"`
	} `yaml:"api"`

	Device struct {
		// Name y Model se envían en los headers Ax-Request-Device*.
		Name  string `yaml:"name"`
		Model string `yaml:"model"`
		// SubscriberType es el header Ax-Substype (PREPAID).
		SubscriberType string `yaml:"subscriber_type"`
		// IdentityFile es la ruta donde se persiste el par device id/fingerprint.
		IdentityFile string `yaml:"identity_file"`
	} `yaml:"device"`

	HTTP struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"http"`

	Log struct {
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	Metrics struct {
		// Addr opcional para exponer /metrics (vacío = deshabilitado).
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Load lee el YAML (si existe), aplica overrides de entorno AXEL_* y valida.
func Load(path string) (Config, error) {
	var cfg Config
	cfg.defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) defaults() {
	c.App.Env = "dev"
	c.API.UserAgent = "myXL / 8.7.0(1179); com.android.vending; (samsung; SM-N935F; SDK 28; Android 9)"
	c.API.ClientVersion = "8.7.0"
	c.Device.Name = "samsung"
	c.Device.Model = "SM-N935F"
	c.Device.SubscriberType = "PREPAID"
	c.Device.IdentityFile = ".axel-device.json"
	c.HTTP.Timeout = 30 * time.Second
	c.Log.Env = "dev"
	c.Log.Level = "info"
}

func (c *Config) applyEnv() {
	envStr("AXEL_BASE_API_URL", &c.API.BaseURL)
	envStr("AXEL_BASE_CIAM_URL", &c.API.CIAMBaseURL)
	envStr("AXEL_API_KEY", &c.API.Key)
	envStr("AXEL_BASIC_AUTH", &c.API.BasicAuth)
	envStr("AXEL_UA", &c.API.UserAgent)
	envStr("AXEL_CLIENT_VERSION", &c.API.ClientVersion)
	envStr("AXEL_DEVICE_IDENTITY_FILE", &c.Device.IdentityFile)
	envStr("AXEL_LOG_LEVEL", &c.Log.Level)
	envStr("AXEL_LOG_ENV", &c.Log.Env)
	envStr("AXEL_METRICS_ADDR", &c.Metrics.Addr)
	if v := strings.TrimSpace(os.Getenv("AXEL_HTTP_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.HTTP.Timeout = d
		}
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.API.BaseURL == "" {
		missing = append(missing, "api.base_url (AXEL_BASE_API_URL)")
	}
	if c.API.CIAMBaseURL == "" {
		missing = append(missing, "api.ciam_base_url (AXEL_BASE_CIAM_URL)")
	}
	if c.API.Key == "" {
		missing = append(missing, "api.key (AXEL_API_KEY)")
	}
	if c.API.BasicAuth == "" {
		missing = append(missing, "api.basic_auth (AXEL_BASIC_AUTH)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config incompleta: falta %s", strings.Join(missing, ", "))
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	return nil
}

// APIHost devuelve el host del API cifrado sin esquema (para el header host).
func (c Config) APIHost() string {
	return stripScheme(c.API.BaseURL)
}

// CIAMHost devuelve el host del identity provider sin esquema.
func (c Config) CIAMHost() string {
	return stripScheme(c.API.CIAMBaseURL)
}

func stripScheme(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	return strings.TrimSuffix(u, "/")
}

func envStr(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
