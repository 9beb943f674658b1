package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		RateBurst       float64       `yaml:"rate_burst" default:"20" validate:"gte=0"`
		RateRPS         float64       `yaml:"rate_rps" default:"10" validate:"gte=0"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
		// Aggregated error logs are shipped to this topic when Kafka is enabled.
		CollectorTopic    string        `yaml:"collector_topic" default:"jarvis.logs.errors"`
		CollectorInterval time.Duration `yaml:"collector_interval" default:"30s"`
		CollectorMax      int           `yaml:"collector_max" default:"100"`
	} `yaml:"log"`
	Metrics struct {
		Path string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Kafka struct {
		Enabled         bool     `yaml:"enabled"`
		Brokers         []string `yaml:"brokers"`
		SignalsTopic    string   `yaml:"signals_topic" default:"jarvis.signals"`
		ConfidenceTopic string   `yaml:"confidence_topic" default:"jarvis.confidence"`
		SamplesTopic    string   `yaml:"samples_topic" default:"jarvis.price.samples"`
		RequiredAcks    int      `yaml:"required_acks" default:"-1"`
		Compression     string   `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		Producer        struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"jarvis"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"jarvis.price.samples.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"jarvis"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"jarvis"`
		Queue    struct {
			Workers    int           `yaml:"workers" default:"2"`
			RetryLimit int           `yaml:"retry_limit" default:"2"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		} `yaml:"queue"`
	} `yaml:"redis"`
	Market struct {
		DemoMode         bool          `yaml:"demo_mode"`
		Timeout          time.Duration `yaml:"timeout" default:"8s"`
		CacheTTL         time.Duration `yaml:"cache_ttl" default:"10s"`
		ProbeInterval    time.Duration `yaml:"probe_interval" default:"1m"`
		RateLimitRPS     float64       `yaml:"rate_limit_rps" default:"5"`
		RateLimitBurst   float64       `yaml:"rate_limit_burst" default:"10"`
		DexScreenerURL   string        `yaml:"dexscreener_url" default:"https://api.dexscreener.com/latest/dex"`
		GeckoTerminalURL string        `yaml:"geckoterminal_url" default:"https://api.geckoterminal.com/api/v2/networks/solana"`
		JupiterPriceURL  string        `yaml:"jupiter_price_url" default:"https://price.jup.ag/v6"`
		JupiterQuoteURL  string        `yaml:"jupiter_quote_url" default:"https://quote-api.jup.ag/v6"`
		BagsURL          string        `yaml:"bags_url" default:"https://public-api-v2.bags.fm/api/v1"`
		BagsAPIKey       string        `yaml:"bags_api_key"`
		SentimentURL     string        `yaml:"sentiment_url"`
		QuoteMint        string        `yaml:"quote_mint" default:"So11111111111111111111111111111111111111112"`
	} `yaml:"market"`
	Execution struct {
		RPCURL        string        `yaml:"rpc_url" default:"https://api.mainnet-beta.solana.com"`
		JitoURL       string        `yaml:"jito_url" default:"https://mainnet.block-engine.jito.wtf/api/v1/transactions"`
		UseJito       bool          `yaml:"use_jito"`
		Timeout       time.Duration `yaml:"timeout" default:"20s"`
		SkipPreflight bool          `yaml:"skip_preflight"`
	} `yaml:"execution"`
	Strategy struct {
		Timeframe string        `yaml:"timeframe" default:"15m"`
		Candles   int           `yaml:"candles" default:"200" validate:"gte=21,lte=1000"`
		Pools     []string      `yaml:"pools"`
		Interval  time.Duration `yaml:"interval" default:"1m"`
		Majority  float64       `yaml:"majority" default:"0.5" validate:"gt=0,lt=1"`
	} `yaml:"strategy"`
	Gate struct {
		TightMax      float64       `yaml:"tight_max" default:"0.002"`
		NormalMax     float64       `yaml:"normal_max" default:"0.01"`
		WideMax       float64       `yaml:"wide_max" default:"0.03"`
		TripRatio     float64       `yaml:"trip_ratio" default:"0.03"`
		RecoveryRatio float64       `yaml:"recovery_ratio" default:"0.01"`
		Mints         []string      `yaml:"mints"`
		PollInterval  time.Duration `yaml:"poll_interval" default:"10s"`
	} `yaml:"gate"`
	Feeds struct {
		GraduationsInterval time.Duration `yaml:"graduations_interval" default:"30s"`
		SentimentInterval   time.Duration `yaml:"sentiment_interval" default:"15m"`
	} `yaml:"feeds"`
	Telegram struct {
		Enabled bool          `yaml:"enabled"`
		Token   string        `yaml:"token"`
		ChatID  int64         `yaml:"chat_id"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"telegram"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default returns a configuration populated only with default values.
func Default() *Config {
	c, _ := Parse([]byte("{}"))
	return c
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is not an error: defaults plus environment are used instead.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		c, err = Load(path)
	} else {
		c, err = Parse([]byte("{}"))
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			if p, perr := strconv.Atoi(port); perr == nil {
				c.Redis.Port = p
			}
		}
		c.Redis.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			c.Telegram.ChatID = id
		}
	}
	if v := os.Getenv("SENTIMENT_URL"); v != "" {
		c.Market.SentimentURL = v
	}
	if v := os.Getenv("BAGS_API_KEY"); v != "" {
		c.Market.BagsAPIKey = v
	}
	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		c.Execution.RPCURL = v
	}
	if v := os.Getenv("JARVIS_DEMO"); v != "" {
		c.Market.DemoMode, _ = strconv.ParseBool(v)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == 0) {
		return fmt.Errorf("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	g := c.Gate
	if !(g.TightMax > 0 && g.TightMax < g.NormalMax && g.NormalMax < g.WideMax) {
		return fmt.Errorf("gate tiers must satisfy 0 < tight_max < normal_max < wide_max")
	}
	if g.RecoveryRatio >= g.TripRatio {
		return fmt.Errorf("gate.recovery_ratio (%v) must be below gate.trip_ratio (%v)", g.RecoveryRatio, g.TripRatio)
	}
	if g.RecoveryRatio <= 0 {
		return fmt.Errorf("gate.recovery_ratio must be positive")
	}
	return nil
}
