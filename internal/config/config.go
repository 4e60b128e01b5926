package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv string

	// Portal client side.
	Portal struct {
		APIURL          string        `yaml:"api_url"`
		Timeout         time.Duration `yaml:"timeout"`
		RegisterTimeout time.Duration `yaml:"register_timeout"`
	} `yaml:"portal"`

	Session struct {
		Store     string `yaml:"store"` // file | redis
		Path      string `yaml:"path"`
		RedisAddr string `yaml:"redis_addr"`
		RedisPass string `yaml:"redis_password"`
		RedisKey  string `yaml:"redis_key"`
	} `yaml:"session"`

	// Contract stub server.
	Stub struct {
		AppHost    string        `yaml:"host"`
		HTTPPort   string        `yaml:"port"`
		Store      string        `yaml:"store"` // postgres | memory
		JWTSecret  string        `yaml:"jwt_secret"`
		TokenTTL   time.Duration `yaml:"token_ttl"`
		CountScope string        `yaml:"count_scope"` // open | all
	} `yaml:"stub"`

	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Database string
		SSLMode  string
	} `yaml:"-"`

	KafkaBrokers     []string `yaml:"-"`
	KafkaTopicTicket string   `yaml:"-"`
	RabbitMQURL      string   `yaml:"-"`
	RabbitMQQueue    string   `yaml:"-"`
}

// Load reads .env, then the optional YAML profile, then the environment. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{}
	cfg.Portal.APIURL = "http://localhost:8000"
	cfg.Portal.Timeout = 15 * time.Second
	cfg.Portal.RegisterTimeout = 10 * time.Second
	cfg.Session.Store = "file"
	cfg.Session.RedisKey = "hospital-portal:session"
	cfg.Stub.AppHost = "0.0.0.0"
	cfg.Stub.HTTPPort = "8000"
	cfg.Stub.Store = "postgres"
	cfg.Stub.TokenTTL = 24 * time.Hour
	cfg.Stub.CountScope = "open"

	if err := loadProfile(cfg, profilePath()); err != nil {
		return nil, err
	}

	cfg.AppEnv = getEnv("APP_ENV", "development")
	cfg.Portal.APIURL = strings.TrimRight(getEnv("PORTAL_API_URL", cfg.Portal.APIURL), "/")
	var err error
	if cfg.Portal.Timeout, err = getDuration("PORTAL_TIMEOUT", cfg.Portal.Timeout); err != nil {
		return nil, err
	}
	if cfg.Portal.RegisterTimeout, err = getDuration("PORTAL_REGISTER_TIMEOUT", cfg.Portal.RegisterTimeout); err != nil {
		return nil, err
	}
	cfg.Session.Store = getEnv("SESSION_STORE", cfg.Session.Store)
	cfg.Session.Path = getEnv("SESSION_PATH", cfg.Session.Path)
	cfg.Session.RedisAddr = getEnv("REDIS_ADDR", cfg.Session.RedisAddr)
	cfg.Session.RedisPass = getEnv("REDIS_PASSWORD", cfg.Session.RedisPass)
	cfg.Session.RedisKey = getEnv("REDIS_SESSION_KEY", cfg.Session.RedisKey)
	if cfg.Session.Path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.Session.Path = filepath.Join(dir, "hospital-portal", "session.json")
		} else {
			cfg.Session.Path = ".hospital-portal-session.json"
		}
	}

	cfg.Stub.AppHost = getEnv("APP_HOST", cfg.Stub.AppHost)
	cfg.Stub.HTTPPort = firstEnv("APP_PORT", "HTTP_PORT", cfg.Stub.HTTPPort)
	cfg.Stub.Store = getEnv("STUB_STORE", cfg.Stub.Store)
	cfg.Stub.JWTSecret = getEnv("JWT_SECRET", cfg.Stub.JWTSecret)
	if cfg.Stub.TokenTTL, err = getDuration("JWT_TTL", cfg.Stub.TokenTTL); err != nil {
		return nil, err
	}
	cfg.Stub.CountScope = getEnv("DASHBOARD_COUNT_SCOPE", cfg.Stub.CountScope)

	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.Database = getEnv("DB_DATABASE", "hospital_portal")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.KafkaBrokers = ParseList(getEnv("KAFKA_BROKERS", ""))
	cfg.KafkaTopicTicket = getEnv("KAFKA_TOPIC_TICKET", "hospital.tickets")
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", "")
	cfg.RabbitMQQueue = getEnv("RABBITMQ_QUEUE", "hospital.tickets")
	return cfg, nil
}

func profilePath() string {
	if p := os.Getenv("PORTAL_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hospital-portal", "config.yaml")
}

func loadProfile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

// ValidateClient checks the settings the portal commands need.
func (c *Config) ValidateClient() error {
	u, err := url.Parse(c.Portal.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: PORTAL_API_URL %q is not an absolute URL", c.Portal.APIURL)
	}
	if c.Portal.Timeout <= 0 || c.Portal.RegisterTimeout <= 0 {
		return errors.New("config: PORTAL_TIMEOUT and PORTAL_REGISTER_TIMEOUT must be positive")
	}
	switch c.Session.Store {
	case "file":
	case "redis":
		if c.Session.RedisAddr == "" {
			return errors.New("config: SESSION_STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.Session.Store)
	}
	return nil
}

// Validate checks the settings the stub server needs.
func (c *Config) Validate() error {
	switch c.Stub.Store {
	case "memory":
	case "postgres":
		if c.DB.Host == "" || c.DB.Database == "" {
			return errors.New("config: DB_HOST and DB_DATABASE are required")
		}
		if c.AppEnv == "production" && c.DB.Password == "" {
			return errors.New("config: in production DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("config: unknown STUB_STORE %q", c.Stub.Store)
	}
	if c.Stub.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.Stub.CountScope != "open" && c.Stub.CountScope != "all" {
		return fmt.Errorf("config: DASHBOARD_COUNT_SCOPE must be 'open' or 'all', got %q", c.Stub.CountScope)
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) DatabaseURL() string {
	pass := url.QueryEscape(c.DB.Password)
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, pass, c.DB.Host, c.DB.Port, c.DB.Database, c.DB.SSLMode)
}

func (c *Config) Addr() string {
	return c.Stub.AppHost + ":" + c.Stub.HTTPPort
}

// ParseList splits "host1:9092,host2:9092" into its non-empty parts.
func ParseList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
