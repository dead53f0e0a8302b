package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server struct {
		Port           string        `env:"PORT" envDefault:"3000"`
		AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
		ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
		WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
		// Time allowed for in-flight requests on shutdown
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	}

	Database struct {
		// One of sqlite, postgres, mysql
		Driver          string        `env:"DB_DRIVER" envDefault:"sqlite"`
		DSN             string        `env:"DATABASE_URL" envDefault:"database/lightbnb.db"`
		MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
		QueryTimeout    time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`
	}

	Search struct {
		DefaultLimit int `env:"SEARCH_DEFAULT_LIMIT" envDefault:"10"`
		MaxLimit     int `env:"SEARCH_MAX_LIMIT" envDefault:"100"`
		// List properties without reviews (their average rating is null)
		IncludeUnreviewed bool          `env:"SEARCH_INCLUDE_UNREVIEWED" envDefault:"true"`
		CacheSize         int64         `env:"SEARCH_CACHE_SIZE" envDefault:"1000"`
		CacheTTL          time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"5m"`
		MemcachedHost     string        `env:"MEMCACHED_HOST"`
	}

	Events struct {
		AMQPURL   string `env:"AMQP_URL"`
		QueueName string `env:"AMQP_RESERVATIONS_QUEUE" envDefault:"reservations"`
	}

	Seed struct {
		// JSON or YAML catalog fixture loaded at startup
		Path string `env:"SEED_PATH"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of records per catalog batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of batches the queue buffers before pushes back off
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"16"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

// LoadConfig reads the optional dotenv files (".env" when none are given)
// and parses the environment into a Config.
func LoadConfig(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
