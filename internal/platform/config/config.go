package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"local"`
	Log       Log       `yaml:"log"`
	HTTP      HTTP      `yaml:"http"`
	Storage   Storage   `yaml:"storage"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Payment   Payment   `yaml:"payment"`
	Reclaimer Reclaimer `yaml:"reclaimer"`
	Tickets   Tickets   `yaml:"tickets"`
	Auth      Auth      `yaml:"auth"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"5s"`
}

type Storage struct {
	// Driver is "postgres" or "memory".
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

type Postgres struct {
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            string        `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	DBName          string        `yaml:"dbname" env:"DB_NAME" env-default:"ticket_marketplace"`
	SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"25"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"5m"`
	MigrateOnStart  bool          `yaml:"migrate_on_start" env:"DB_MIGRATE" env-default:"true"`
}

func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"30s"`
	Enabled  bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"true"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"order_events"`
}

type Payment struct {
	// Provider is "http" or "sandbox".
	Provider       string        `yaml:"provider" env:"PAYMENT_PROVIDER" env-default:"sandbox"`
	BaseURL        string        `yaml:"base_url" env:"PAYMENT_BASE_URL"`
	APIKey         string        `yaml:"api_key" env:"PAYMENT_API_KEY"`
	WebhookSecret  string        `yaml:"webhook_secret" env:"PAYMENT_WEBHOOK_SECRET"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"PAYMENT_TIMEOUT" env-default:"5s"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"PAYMENT_SESSION_TTL" env-default:"30m"`
	SuccessURL     string        `yaml:"success_url" env:"PAYMENT_SUCCESS_URL" env-default:"http://localhost:3000/checkout/success"`
	CancelURL      string        `yaml:"cancel_url" env:"PAYMENT_CANCEL_URL" env-default:"http://localhost:3000/checkout/cancel"`
}

type Reclaimer struct {
	Interval  time.Duration `yaml:"interval" env:"RECLAIMER_INTERVAL" env-default:"2m"`
	Threshold time.Duration `yaml:"threshold" env:"RECLAIMER_THRESHOLD" env-default:"30m"`
	BatchSize int           `yaml:"batch_size" env:"RECLAIMER_BATCH_SIZE" env-default:"100"`
}

type Tickets struct {
	CodeKey string `yaml:"code_key" env:"TICKET_CODE_KEY" env-required:"true"`
}

type Auth struct {
	// GatewayToken is the shared secret the gateway sends with identity
	// headers. Empty trusts the headers as they arrive.
	GatewayToken string `yaml:"gateway_token" env:"AUTH_GATEWAY_TOKEN"`
}

// MustLoad reads an optional .env, then the YAML at CONFIG_PATH (default
// ./config/local.yaml), with environment variables taking precedence. When the
// YAML file is absent the environment alone is used.
func MustLoad() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("error loading .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/local.yaml"
	}

	var cfg Config
	var err error
	if _, statErr := os.Stat(configPath); statErr == nil {
		err = cleanenv.ReadConfig(configPath, &cfg)
	} else {
		log.Printf("config file %s not found, using environment only", configPath)
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
