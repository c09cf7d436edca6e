package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rzzdr/quant-curve-engine/internal/calibration"
	"github.com/rzzdr/quant-curve-engine/internal/kafka"
	"github.com/rzzdr/quant-curve-engine/pkg/api"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/circuit"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Config for the whole application
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	API         APIConfig         `mapstructure:"api"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Store       StoreConfig       `mapstructure:"store"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// General application configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Configuration for the API server
type APIConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	CalibrationTimeout time.Duration `mapstructure:"calibration_timeout"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
	RateLimit          float64       `mapstructure:"rate_limit"`
	RateBurst          int           `mapstructure:"rate_burst"`
	Websocket          bool          `mapstructure:"websocket"`
	CORS               CORSConfig    `mapstructure:"cors"`
}

// CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Configuration for Kafka
type KafkaConfig struct {
	Brokers  []string            `mapstructure:"brokers"`
	Consumer KafkaConsumerConfig `mapstructure:"consumer"`
	Producer KafkaProducerConfig `mapstructure:"producer"`
	Topics   KafkaTopicsConfig   `mapstructure:"topics"`
	Breaker  BreakerConfig       `mapstructure:"breaker"`
}

// Kafka consumer configuration
type KafkaConsumerConfig struct {
	GroupID        string        `mapstructure:"group_id"`
	StartOffset    string        `mapstructure:"start_offset"`
	MinBytes       int           `mapstructure:"min_bytes"`
	MaxBytes       int           `mapstructure:"max_bytes"`
	MaxWait        time.Duration `mapstructure:"max_wait"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
}

// Kafka producer configuration
type KafkaProducerConfig struct {
	RequiredAcks string        `mapstructure:"required_acks"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Kafka topics configuration
type KafkaTopicsConfig struct {
	CalibrationRequests string `mapstructure:"calibration_requests"`
	CalibrationResults  string `mapstructure:"calibration_results"`
	Partitions          int    `mapstructure:"partitions"`
	ReplicationFactor   int    `mapstructure:"replication_factor"`
}

// Circuit breaker around the result producer
type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Configuration for the calibration engine
type CalibrationConfig struct {
	AbsoluteTolerance float64 `mapstructure:"absolute_tolerance"`
	RelativeTolerance float64 `mapstructure:"relative_tolerance"`
	MaxSteps          int     `mapstructure:"max_steps"`
	Workers           int     `mapstructure:"workers"`
}

// Configuration for the snapshot store
type StoreConfig struct {
	HistoryDepth int `mapstructure:"history_depth"`
}

// Configuration for metrics
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Interval   time.Duration    `mapstructure:"interval"`
}

// Configuration for Prometheus metrics
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load reads defaults, then the YAML file at path if one is given, then
// QUANT_ environment variables (QUANT_API_PORT overrides api.port)
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	v.SetEnvPrefix("QUANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	switch {
	case c.API.Port <= 0 || c.API.Port > 65535:
		return errors.InvalidArgumentf("api.port %d is out of range", c.API.Port)
	case c.Calibration.AbsoluteTolerance <= 0:
		return errors.InvalidArgument("calibration.absolute_tolerance must be positive")
	case c.Calibration.MaxSteps <= 0:
		return errors.InvalidArgument("calibration.max_steps must be positive")
	case c.Calibration.Workers <= 0:
		return errors.InvalidArgument("calibration.workers must be positive")
	case c.Metrics.Prometheus.Enabled && c.Metrics.Prometheus.Port == c.API.Port:
		return errors.InvalidArgumentf("metrics and api cannot share port %d", c.API.Port)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "quant-curve-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "60s")
	v.SetDefault("api.shutdown_timeout", "30s")
	v.SetDefault("api.calibration_timeout", "30s")
	v.SetDefault("api.max_body_bytes", 4<<20)
	v.SetDefault("api.rate_limit", 50)
	v.SetDefault("api.rate_burst", 100)
	v.SetDefault("api.websocket", true)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer.group_id", "quant-curve-engine")
	v.SetDefault("kafka.consumer.start_offset", "earliest")
	v.SetDefault("kafka.consumer.min_bytes", 1)
	v.SetDefault("kafka.consumer.max_bytes", 10<<20)
	v.SetDefault("kafka.consumer.max_wait", "500ms")
	v.SetDefault("kafka.consumer.commit_interval", "0s")
	v.SetDefault("kafka.producer.required_acks", "all")
	v.SetDefault("kafka.producer.batch_timeout", "10ms")
	v.SetDefault("kafka.producer.timeout", "10s")
	v.SetDefault("kafka.topics.calibration_requests", "curves.calibration.requests")
	v.SetDefault("kafka.topics.calibration_results", "curves.calibration.results")
	v.SetDefault("kafka.topics.partitions", 3)
	v.SetDefault("kafka.topics.replication_factor", 1)
	v.SetDefault("kafka.breaker.max_failures", 5)
	v.SetDefault("kafka.breaker.timeout", "30s")

	// Calibration defaults
	def := calibration.DefaultEngineConfig()
	v.SetDefault("calibration.absolute_tolerance", def.AbsoluteTolerance)
	v.SetDefault("calibration.relative_tolerance", def.RelativeTolerance)
	v.SetDefault("calibration.max_steps", def.MaxSteps)
	v.SetDefault("calibration.workers", def.WorkerCount)

	// Store defaults
	v.SetDefault("store.history_depth", 10)

	// Metrics defaults
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.port", 9090)
	v.SetDefault("metrics.prometheus.path", "/metrics")
	v.SetDefault("metrics.interval", "15s")
}

// EngineConfig is the calibration engine configuration, labelled with source
func (c *Config) EngineConfig(source string) calibration.EngineConfig {
	return calibration.EngineConfig{
		AbsoluteTolerance: c.Calibration.AbsoluteTolerance,
		RelativeTolerance: c.Calibration.RelativeTolerance,
		MaxSteps:          c.Calibration.MaxSteps,
		WorkerCount:       c.Calibration.Workers,
		Source:            source,
	}
}

// ServerConfig is the HTTP server configuration
func (c *Config) ServerConfig() api.Config {
	return api.Config{
		Host:               c.API.Host,
		Port:               c.API.Port,
		ReadTimeout:        c.API.ReadTimeout,
		WriteTimeout:       c.API.WriteTimeout,
		CalibrationTimeout: c.API.CalibrationTimeout,
		MaxBodyBytes:       c.API.MaxBodyBytes,
		AllowedOrigins:     c.API.CORS.AllowedOrigins,
		RateLimit:          c.API.RateLimit,
		RateBurst:          c.API.RateBurst,
	}
}

// KafkaClientConfig is the kafka client configuration
func (c *Config) KafkaClientConfig() *kafka.Config {
	return &kafka.Config{
		Brokers:        c.Kafka.Brokers,
		GroupID:        c.Kafka.Consumer.GroupID,
		StartOffset:    c.Kafka.Consumer.StartOffset,
		MinBytes:       c.Kafka.Consumer.MinBytes,
		MaxBytes:       c.Kafka.Consumer.MaxBytes,
		MaxWait:        c.Kafka.Consumer.MaxWait,
		CommitInterval: c.Kafka.Consumer.CommitInterval,
		BatchTimeout:   c.Kafka.Producer.BatchTimeout,
		RequiredAcks:   c.Kafka.Producer.RequiredAcks,
		DefaultTimeout: c.Kafka.Producer.Timeout,
	}
}

// BreakerConfig is the circuit breaker configuration for the result producer
func (c *Config) BreakerConfig() circuit.Config {
	return circuit.Config{
		MaxFailures: c.Kafka.Breaker.MaxFailures,
		Timeout:     c.Kafka.Breaker.Timeout,
	}
}

// GetConfigPath returns QUANT_CONFIG_PATH, or the default location when that
// file exists, or "" to run on defaults
func GetConfigPath() string {
	if configPath := os.Getenv("QUANT_CONFIG_PATH"); configPath != "" {
		return configPath
	}
	if _, err := os.Stat("./config/config.yaml"); err == nil {
		return "./config/config.yaml"
	}
	return ""
}
