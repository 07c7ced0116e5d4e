// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	App            AppConfig
	Cache          CacheConfig
	Forecast       ForecastConfig
	Recommendation RecommendationConfig
	Storage        StorageConfig
	Drive          DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConcurrentTx int64
}

type AppConfig struct {
	UploadDir string
	DataDir   string
	LogLevel  string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// ForecastConfig drives model dispatch and the end-of-month batch.
type ForecastConfig struct {
	Workers           int
	FallbackToMean    bool
	MinARIMAHistory   int
	ARIMAFitTimeout   time.Duration
	ARIMAMaxIteration int
}

// RecommendationConfig holds the lead-time fallback and the backfill trust policy.
type RecommendationConfig struct {
	DefaultMaxLeadTime float64
	DefaultAvgLeadTime float64
	UseBackfill        bool
}

// StorageConfig encapsulates the connection info for S3-compatible object storage.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		// Ensure upload and data directories exist
		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "autopo_forecast")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)
	viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	viper.SetDefault("APP_DATA_DIR", "./data/output")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_REPORT_TTL_SECONDS", 3600)
	viper.SetDefault("FORECAST_WORKERS", 1)
	viper.SetDefault("FORECAST_FALLBACK_TO_MEAN", false)
	viper.SetDefault("FORECAST_MIN_ARIMA_HISTORY", 12)
	viper.SetDefault("FORECAST_ARIMA_FIT_TIMEOUT_SECONDS", 30)
	viper.SetDefault("FORECAST_ARIMA_MAX_ITERATIONS", 2000)
	viper.SetDefault("LEADTIME_DEFAULT_MAX_DAYS", 10)
	viper.SetDefault("LEADTIME_DEFAULT_AVG_DAYS", 7)
	viper.SetDefault("RECOMMENDATION_USE_BACKFILL", true)
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:          viper.GetString("DB_DRIVER"),
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetString("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConcurrentTx: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
		},
		App: AppConfig{
			UploadDir: viper.GetString("APP_UPLOAD_DIR"),
			DataDir:   viper.GetString("APP_DATA_DIR"),
			LogLevel:  viper.GetString("LOG_LEVEL"),
		},
		Cache: CacheConfig{
			Enabled:          viper.GetBool("CACHE_ENABLED"),
			RedisURL:         viper.GetString("REDIS_URL"),
			RedisHost:        viper.GetString("REDIS_HOST"),
			RedisPort:        viper.GetString("REDIS_PORT"),
			RedisPassword:    viper.GetString("REDIS_PASSWORD"),
			RedisDB:          viper.GetInt("REDIS_DB"),
			ReportTTLSeconds: viper.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Forecast: ForecastConfig{
			Workers:           viper.GetInt("FORECAST_WORKERS"),
			FallbackToMean:    viper.GetBool("FORECAST_FALLBACK_TO_MEAN"),
			MinARIMAHistory:   viper.GetInt("FORECAST_MIN_ARIMA_HISTORY"),
			ARIMAFitTimeout:   time.Duration(viper.GetInt("FORECAST_ARIMA_FIT_TIMEOUT_SECONDS")) * time.Second,
			ARIMAMaxIteration: viper.GetInt("FORECAST_ARIMA_MAX_ITERATIONS"),
		},
		Recommendation: RecommendationConfig{
			DefaultMaxLeadTime: viper.GetFloat64("LEADTIME_DEFAULT_MAX_DAYS"),
			DefaultAvgLeadTime: viper.GetFloat64("LEADTIME_DEFAULT_AVG_DAYS"),
			UseBackfill:        viper.GetBool("RECOMMENDATION_USE_BACKFILL"),
		},
		Storage: StorageConfig{
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        viper.GetString("SALES_DRIVE_FOLDER_ID"),
		},
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
