package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	DriverPostgres = "postgres"
	DriverPgx      = "pgx"

	EventsSNS   = "sns"
	EventsKafka = "kafka"
	EventsLog   = "log"
)

type Config struct {
	ServiceName string    `mapstructure:"service_name"`
	Env         string    `mapstructure:"env"`
	Port        string    `mapstructure:"port"`
	LogLevel    string    `mapstructure:"log_level"`
	Storage     Storage   `mapstructure:"storage"`
	Database    Database  `mapstructure:"database"`
	Redis       Redis     `mapstructure:"redis"`
	Events      Events    `mapstructure:"events"`
	AWS         AWS       `mapstructure:"aws"`
	Gateways    Gateways  `mapstructure:"gateways"`
	Telemetry   Telemetry `mapstructure:"telemetry"`
	Seed        Seed      `mapstructure:"seed"`
}

type Storage struct {
	Backend string `mapstructure:"backend"`
}

type Database struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type Redis struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	ProductTTL time.Duration `mapstructure:"product_ttl"`
}

type Events struct {
	Backend      string   `mapstructure:"backend"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

type AWS struct {
	Region                  string `mapstructure:"region"`
	EndpointSNS             string `mapstructure:"endpoint_sns"`
	EndpointSQS             string `mapstructure:"endpoint_sqs"`
	SNSTopicArn             string `mapstructure:"sns_topic_arn"`
	NotificationsQueueURL   string `mapstructure:"notifications_queue_url"`
	ProviderUpdatesQueueURL string `mapstructure:"provider_updates_queue_url"`
}

type Gateways struct {
	Stripe  Stripe  `mapstructure:"stripe"`
	Sandbox Sandbox `mapstructure:"sandbox"`
}

type Stripe struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	SecretKey string        `mapstructure:"secret_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type Sandbox struct {
	Enabled bool `mapstructure:"enabled"`
}

type Telemetry struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Seed is the catalog loaded into the memory backend at startup
type Seed struct {
	Products       []SeedProduct       `mapstructure:"products"`
	PaymentMethods []SeedPaymentMethod `mapstructure:"payment_methods"`
}

type SeedProduct struct {
	ID        string `mapstructure:"id"`
	TenantID  string `mapstructure:"tenant_id"`
	Name      string `mapstructure:"name"`
	Inventory int64  `mapstructure:"inventory"`
	Price     int64  `mapstructure:"price"`
	Currency  string `mapstructure:"currency"`
}

type SeedPaymentMethod struct {
	ID       string `mapstructure:"id"`
	TenantID string `mapstructure:"tenant_id"`
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Provider string `mapstructure:"provider"`
	Active   bool   `mapstructure:"active"`
}

// ReadConfig loads <ENVIRONMENT>.json from this package's directory.
// CHECKOUT_* variables override file values.
func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("unable to get current file")
	}

	return readConfig(viper.New(), filepath.Dir(filename), getConfigName())
}

func readConfig(v *viper.Viper, configDir, name string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v.SetConfigName(name)
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CHECKOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "checkout-service")
	v.SetDefault("env", getEnv("ENV", "local"))
	v.SetDefault("port", getEnv("PORT", "8080"))
	v.SetDefault("log_level", "info")

	v.SetDefault("storage.backend", StorageMemory)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", os.Getenv("DATABASE_URL"))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "checkout")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.product_ttl", 30*time.Second)

	v.SetDefault("events.backend", EventsLog)
	v.SetDefault("events.kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("events.kafka_topic", "checkout-events")

	v.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	v.SetDefault("aws.endpoint_sns", getEnv("AWS_ENDPOINT_URL_SNS", ""))
	v.SetDefault("aws.endpoint_sqs", getEnv("AWS_ENDPOINT_URL_SQS", ""))
	v.SetDefault("aws.sns_topic_arn", "")
	v.SetDefault("aws.notifications_queue_url", "")
	v.SetDefault("aws.provider_updates_queue_url", "")

	v.SetDefault("gateways.stripe.enabled", false)
	v.SetDefault("gateways.stripe.secret_key", "")
	v.SetDefault("gateways.stripe.base_url", "https://api.stripe.com")
	v.SetDefault("gateways.stripe.timeout", 10*time.Second)
	v.SetDefault("gateways.sandbox.enabled", true)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate rejects combinations BuildDependencies cannot wire
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StoragePostgres:
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.Backend == StoragePostgres {
		switch c.Database.Driver {
		case DriverPostgres, DriverPgx:
		default:
			return errors.Errorf("unknown database driver %q", c.Database.Driver)
		}
	}

	switch c.Events.Backend {
	case EventsLog:
	case EventsSNS:
		if c.AWS.SNSTopicArn == "" {
			return errors.New("aws.sns_topic_arn is required for the sns events backend")
		}
	case EventsKafka:
		if len(c.Events.KafkaBrokers) == 0 || c.Events.KafkaTopic == "" {
			return errors.New("events.kafka_brokers and events.kafka_topic are required for the kafka events backend")
		}
	default:
		return errors.Errorf("unknown events backend %q", c.Events.Backend)
	}

	if c.Gateways.Stripe.Enabled && c.Gateways.Stripe.SecretKey == "" {
		return errors.New("gateways.stripe.secret_key is required when stripe is enabled")
	}

	return nil
}

// GetDatabaseURL returns database.url or builds one from its parts
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
