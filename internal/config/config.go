package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis"`
	ClickHouse    ClickHouseConfig    `yaml:"clickhouse"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Grouping      GroupingConfig      `yaml:"grouping"`
	Aggregation   AggregationConfig   `yaml:"aggregation"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ElasticsearchConfig struct {
	Addresses      []string      `yaml:"addresses"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	IndexPrefix    string        `yaml:"index_prefix"`
	BulkSize       int           `yaml:"bulk_size"`
}

type RedisConfig struct {
	Addresses    []string       `yaml:"addresses"`
	Password     string         `yaml:"password"`
	DB           int            `yaml:"db"`
	PoolSize     int            `yaml:"pool_size"`
	MinIdleConns int            `yaml:"min_idle_conns"`
	DialTimeout  time.Duration  `yaml:"dial_timeout"`
	ReadTimeout  time.Duration  `yaml:"read_timeout"`
	WriteTimeout time.Duration  `yaml:"write_timeout"`
	TTL          CacheTTLConfig `yaml:"ttl"`
}

type CacheTTLConfig struct {
	GroupingResults time.Duration `yaml:"grouping_results"`
	TopKeywords     time.Duration `yaml:"top_keywords"`
	StaleFallback   time.Duration `yaml:"stale_fallback"`
}

type ClickHouseConfig struct {
	Addresses    []string      `yaml:"addresses"`
	Database     string        `yaml:"database"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
}

type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	TopicEvents   string        `yaml:"topic_events"`
	TopicDLQ      string        `yaml:"topic_dlq"`
	ConsumerGroup string        `yaml:"consumer_group"`
	BatchSize     int           `yaml:"batch_size"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	MaxRetries    int           `yaml:"max_retries"`
}

// GroupingConfig tunes the matching engine and the resilience wrappers around
// the stores it reads from.
type GroupingConfig struct {
	MinScore             int                  `yaml:"min_score"`
	Similarity           string               `yaml:"similarity"`
	DictionaryPath       string               `yaml:"dictionary_path"`
	MaxRecordsPerRequest int                  `yaml:"max_records_per_request"`
	RunTimeout           time.Duration        `yaml:"run_timeout"`
	CircuitBreaker       CircuitBreakerConfig `yaml:"circuit_breaker"`
	Retry                RetryConfig          `yaml:"retry"`
	SlowRun              SlowRunConfig        `yaml:"slow_run"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

type SlowRunConfig struct {
	WarningThreshold  time.Duration `yaml:"warning_threshold"`
	CriticalThreshold time.Duration `yaml:"critical_threshold"`
}

type AggregationConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxBuffer     int           `yaml:"max_buffer"`
	GroupWindow   time.Duration `yaml:"group_window"`
}

type ObservabilityConfig struct {
	MetricsPort     int    `yaml:"metrics_port"`
	TracingEndpoint string `yaml:"tracing_endpoint"`
	LogLevel        string `yaml:"log_level"`
	ServiceName     string `yaml:"service_name"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Elasticsearch: ElasticsearchConfig{
			Addresses:      []string{"http://localhost:9200"},
			MaxRetries:     3,
			RequestTimeout: 500 * time.Millisecond,
			IndexPrefix:    "keywords",
			BulkSize:       2000,
		},
		Redis: RedisConfig{
			Addresses:    []string{"localhost:6379"},
			PoolSize:     100,
			MinIdleConns: 10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
			TTL: CacheTTLConfig{
				GroupingResults: 10 * time.Minute,
				TopKeywords:     60 * time.Second,
				StaleFallback:   1 * time.Hour,
			},
		},
		ClickHouse: ClickHouseConfig{
			Addresses:    []string{"localhost:9000"},
			Database:     "keyword_insights",
			DialTimeout:  5 * time.Second,
			QueryTimeout: 5 * time.Second,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			TopicEvents:   "search.events",
			TopicDLQ:      "search.events.dlq",
			ConsumerGroup: "keyword-aggregator",
			BatchSize:     1000,
			BatchTimeout:  1 * time.Second,
			MaxRetries:    3,
		},
		Grouping: GroupingConfig{
			MinScore:             70,
			Similarity:           "levenshtein",
			MaxRecordsPerRequest: 50000,
			RunTimeout:           10 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests:      100,
				Interval:         30 * time.Second,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
			Retry: RetryConfig{
				MaxAttempts: 2,
				InitialWait: 50 * time.Millisecond,
				MaxWait:     500 * time.Millisecond,
				Multiplier:  2.0,
			},
			SlowRun: SlowRunConfig{
				WarningThreshold:  500 * time.Millisecond,
				CriticalThreshold: 2 * time.Second,
			},
		},
		Aggregation: AggregationConfig{
			FlushInterval: 5 * time.Second,
			MaxBuffer:     1000,
			GroupWindow:   1 * time.Minute,
		},
		Observability: ObservabilityConfig{
			MetricsPort: 9090,
			LogLevel:    "info",
			ServiceName: "keyword-insights",
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("at least one elasticsearch address required")
	}
	if len(c.Redis.Addresses) == 0 {
		return fmt.Errorf("at least one redis address required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker required")
	}
	if c.Grouping.MinScore <= 0 || c.Grouping.MinScore > 100 {
		return fmt.Errorf("grouping min score must be between 1 and 100")
	}
	if c.Grouping.MaxRecordsPerRequest <= 0 {
		return fmt.Errorf("max records per request must be positive")
	}
	if c.Aggregation.MaxBuffer <= 0 {
		return fmt.Errorf("aggregation max buffer must be positive")
	}
	if c.Aggregation.FlushInterval <= 0 {
		return fmt.Errorf("aggregation flush interval must be positive")
	}
	if c.Aggregation.GroupWindow <= 0 {
		return fmt.Errorf("aggregation group window must be positive")
	}
	return nil
}
