package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DBConfig - параметры подключения к одному экземпляру PostgreSQL
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// FeedConfig - параметры движка ленты. Передается в сервисы явно,
// сервисы не читают окружение сами.
type FeedConfig struct {
	CelebrityThreshold int64 `yaml:"celebrity_threshold"`
	MaxFeedSize        int64 `yaml:"max_feed_size"`
	MaxAuthorFeed      int64 `yaml:"max_author_feed"`
	AuthorFeedTTL      int64 `yaml:"author_feed_ttl"` // секунды
	FanoutBatchSize    int   `yaml:"fanout_batch_size"`
	CelebrityPullSize  int64 `yaml:"celebrity_pull_size"`
	QueueWorkers       int   `yaml:"queue_workers"`
}

const (
	DefaultCelebrityThreshold = 10000
	DefaultMaxFeedSize        = 500
	DefaultMaxAuthorFeed      = 100
	DefaultAuthorFeedTTL      = 86400
	DefaultFanoutBatchSize    = 1000
	DefaultCelebrityPullSize  = 20
	DefaultQueueWorkers       = 5
)

// DefaultFeedConfig возвращает значения по умолчанию
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		CelebrityThreshold: DefaultCelebrityThreshold,
		MaxFeedSize:        DefaultMaxFeedSize,
		MaxAuthorFeed:      DefaultMaxAuthorFeed,
		AuthorFeedTTL:      DefaultAuthorFeedTTL,
		FanoutBatchSize:    DefaultFanoutBatchSize,
		CelebrityPullSize:  DefaultCelebrityPullSize,
		QueueWorkers:       DefaultQueueWorkers,
	}
}

// AuthorFeedTTLDuration - TTL списка последних постов автора
func (f FeedConfig) AuthorFeedTTLDuration() time.Duration {
	return time.Duration(f.AuthorFeedTTL) * time.Second
}

// WithDefaults заполняет незаданные (нулевые и отрицательные) поля
func (f FeedConfig) WithDefaults() FeedConfig {
	d := DefaultFeedConfig()
	if f.CelebrityThreshold <= 0 {
		f.CelebrityThreshold = d.CelebrityThreshold
	}
	if f.MaxFeedSize <= 0 {
		f.MaxFeedSize = d.MaxFeedSize
	}
	if f.MaxAuthorFeed <= 0 {
		f.MaxAuthorFeed = d.MaxAuthorFeed
	}
	if f.AuthorFeedTTL <= 0 {
		f.AuthorFeedTTL = d.AuthorFeedTTL
	}
	if f.FanoutBatchSize <= 0 {
		f.FanoutBatchSize = d.FanoutBatchSize
	}
	if f.CelebrityPullSize <= 0 {
		f.CelebrityPullSize = d.CelebrityPullSize
	}
	if f.QueueWorkers <= 0 {
		f.QueueWorkers = d.QueueWorkers
	}
	return f
}

type ConfigSchema struct {
	Databases struct {
		Master   DBConfig   `yaml:"master"`
		Replicas []DBConfig `yaml:"replicas"`
	} `yaml:"db"`
	Redis    RedisConfig `yaml:"redis"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Queue    string `yaml:"queue"`
		Disabled bool   `yaml:"disabled"`
	} `yaml:"rabbitmq"`
	Backend struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"backend"`
	Logs struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logs"`
	Feed FeedConfig `yaml:"feed"`
}

var AppConfig *ConfigSchema

// LoadConfig читает YAML-конфиг, затем применяет переменные окружения
// (включая загруженные из .env файлов)
func LoadConfig(filePath string) error {
	conf, err := Load(filePath)
	if err != nil {
		return err
	}
	AppConfig = conf
	return nil
}

// Load возвращает конфиг без записи в глобальную переменную
func Load(filePath string) (*ConfigSchema, error) {
	loadDotEnvs()

	conf := &ConfigSchema{}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", filePath, err)
		}
	}

	if err := applyEnv(conf); err != nil {
		return nil, err
	}
	conf.Feed = conf.Feed.WithDefaults()
	if conf.Backend.Port == 0 {
		conf.Backend.Port = 8080
	}
	if conf.RabbitMQ.Queue == "" {
		conf.RabbitMQ.Queue = "feed_events_ws"
	}
	return conf, nil
}

// loadDotEnvs загружает .env файлы; уже заданные переменные не перезаписываются
func loadDotEnvs() {
	env := os.Getenv("FEED_ENV")
	if env == "" {
		env = "dev"
	}
	_ = godotenv.Load(".env." + env + ".local")
	_ = godotenv.Load(".env." + env)
	_ = godotenv.Load(".env")
}

func applyEnv(conf *ConfigSchema) error {
	int64Vars := []struct {
		name string
		dst  *int64
	}{
		{"FEED_CELEBRITY_THRESHOLD", &conf.Feed.CelebrityThreshold},
		{"MAX_FEED_SIZE", &conf.Feed.MaxFeedSize},
		{"MAX_AUTHOR_FEED", &conf.Feed.MaxAuthorFeed},
		{"AUTHOR_FEED_TTL", &conf.Feed.AuthorFeedTTL},
		{"FEED_CELEBRITY_PULL", &conf.Feed.CelebrityPullSize},
	}
	for _, v := range int64Vars {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.name, err)
		}
		*v.dst = n
	}

	intVars := []struct {
		name string
		dst  *int
	}{
		{"FEED_FANOUT_BATCH", &conf.Feed.FanoutBatchSize},
		{"FEED_QUEUE_WORKERS", &conf.Feed.QueueWorkers},
	}
	for _, v := range intVars {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.name, err)
		}
		*v.dst = n
	}

	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		conf.RabbitMQ.URL = url
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		conf.Redis.Host = host
	}
	return nil
}
