package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/leshachaplin/mmpgen/internal/storage/event/clickhouse"
	"github.com/leshachaplin/mmpgen/internal/storage/gcs"
	"github.com/leshachaplin/mmpgen/internal/worker"
	"github.com/leshachaplin/mmpgen/internal/worker/redpanda/consumer"
	"github.com/leshachaplin/mmpgen/internal/worker/redpanda/producer"
)

const envPrefix = "MMPGEN"

// Config is the main config for the application
type Config struct {
	LogLevel      string            `mapstructure:"log_level" validate:"omitempty,oneof=TRACE DEBUG INFO WARN ERROR PANIC"`
	LogFormat     string            `mapstructure:"log_format" validate:"omitempty,oneof=json console"`
	Generator     Generator         `mapstructure:"generator"`
	Storage       gcs.Config        `mapstructure:"storage"`
	Server        Server            `mapstructure:"server"`
	Clickhouse    clickhouse.Config `mapstructure:"clickhouse"`
	EventWorker   worker.Config     `mapstructure:"event_worker"`
	EventProducer producer.Config   `mapstructure:"event_producer"`
	EventConsumer consumer.Config   `mapstructure:"event_consumer"`
}

type Generator struct {
	NumEvents      int    `mapstructure:"num_events" validate:"min=0"`
	HistoricalDays int    `mapstructure:"historical_days" validate:"min=0,max=3650"`
	Output         string `mapstructure:"output" validate:"required"`
	Seed           int64  `mapstructure:"seed"`
	LocalOnly      bool   `mapstructure:"local_only"`
	// Stream publishes generated batches to the event topic.
	Stream bool `mapstructure:"stream"`
	// Warehouse loads generated batches into ClickHouse.
	Warehouse bool `mapstructure:"warehouse"`
}

type Server struct {
	Addr string `mapstructure:"addr" validate:"required"`
	// Worker consumes the event topic and stores batches in ClickHouse.
	Worker bool `mapstructure:"worker"`
}

var ErrInvalid = errors.New("invalid configuration")

var bucketName = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,220}[a-z0-9]$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("bucket", func(fl validator.FieldLevel) bool {
		return bucketName.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks field constraints and reports every violation at once.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Load reads defaults, an optional YAML file and MMPGEN_* environment variables.
// GCS_BUCKET is honored as a fallback for the storage bucket.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("storage.bucket", envPrefix+"_STORAGE_BUCKET", "GCS_BUCKET")
	_ = v.BindEnv("storage.access_token", envPrefix+"_STORAGE_ACCESS_TOKEN", "GCS_ACCESS_TOKEN")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error loading configuration: %w", err)
		}
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName("mmpgen")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("error loading configuration: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "INFO")
	v.SetDefault("log_format", "json")

	v.SetDefault("generator.num_events", 100)
	v.SetDefault("generator.historical_days", 30)
	v.SetDefault("generator.output", "data/raw/mmp_events.jsonl")

	v.SetDefault("storage.bucket", "mobile-measurement-data")
	v.SetDefault("storage.prefix", "raw")
	v.SetDefault("storage.endpoint", gcs.DefaultEndpoint)
	v.SetDefault("storage.max_attempts", gcs.DefaultMaxAttempts)
	v.SetDefault("storage.retry_base", gcs.DefaultRetryBase)
	v.SetDefault("storage.timeout", "30s")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("clickhouse.addr", "localhost:9000")
	v.SetDefault("clickhouse.db", "mobile_measurement")
	v.SetDefault("clickhouse.table", "mmp_events")
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.password", "")

	v.SetDefault("event_worker.num_workers", 4)

	v.SetDefault("event_producer.retry_attempts", 5)
	v.SetDefault("event_producer.retry_delay", "1s")
	v.SetDefault("event_producer.brokers", []string{"localhost:9092"})
	v.SetDefault("event_producer.topic", "mmp-events")

	v.SetDefault("event_consumer.brokers", []string{"localhost:9092"})
	v.SetDefault("event_consumer.consumer_group", "mmpgen-warehouse")
	v.SetDefault("event_consumer.topics", []string{"mmp-events"})
}
