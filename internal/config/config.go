package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config - конфигурация утилиты импорта XML-фидов.
// Источники по приоритету: явный путь к файлу (YAML или JSON),
// переменная окружения CONFIG_PATH, затем только переменные окружения.
// Переменные окружения перекрывают значения из файла.
type Config struct {
	Logger   LoggerConfig   `yaml:"logger"   json:"logger"`
	Import   ImportConfig   `yaml:"import"   json:"import"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Listing  ListingConfig  `yaml:"listing"  json:"listing"`
	Server   ServerConfig   `yaml:"server"   json:"server"`
}

// LoggerConfig содержит настройки логирования.
// Пустые File/ErrorFile означают stdout/stderr.
type LoggerConfig struct {
	Level     string `yaml:"level"      json:"level"      env:"LOG_LEVEL"      env-default:"info"`
	File      string `yaml:"file"       json:"file"       env:"LOG_FILE"`
	ErrorFile string `yaml:"error_file" json:"error_file" env:"LOG_ERROR_FILE"`
	AddSource bool   `yaml:"add_source" json:"add_source" env:"LOG_ADD_SOURCE"`
}

// ImportConfig описывает один импорт фида.
type ImportConfig struct {
	FeedURL      string        `yaml:"feed_url"      json:"feed_url"      env:"IMPORT_FEED_URL"`
	ReportFile   string        `yaml:"report_file"   json:"report_file"   env:"IMPORT_REPORT_FILE"`
	Format       string        `yaml:"format"        json:"format"        env:"IMPORT_FORMAT"        env-default:"realtypult"`
	TempDir      string        `yaml:"temp_dir"      json:"temp_dir"      env:"IMPORT_TEMP_DIR"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout" env:"IMPORT_FETCH_TIMEOUT" env-default:"2m"`
	// ItemTimeout ограничивает ожидание ответа обработчика; 0 - без ограничения.
	ItemTimeout time.Duration `yaml:"item_timeout" json:"item_timeout" env:"IMPORT_ITEM_TIMEOUT" env-default:"0s"`
	// Interval > 0 включает периодический запуск импорта.
	Interval time.Duration `yaml:"interval" json:"interval" env:"IMPORT_INTERVAL" env-default:"0s"`
}

// DatabaseConfig - подключение к PostgreSQL для хранилища объявлений.
type DatabaseConfig struct {
	URL string `yaml:"url" json:"url" env:"DATABASE_URL"`
}

// ListingConfig - правила обработчика объявлений.
type ListingConfig struct {
	PublicBaseURL  string   `yaml:"public_base_url" json:"public_base_url" env:"LISTING_PUBLIC_BASE_URL" env-default:"http://localhost:8080"`
	RequiredFields []string `yaml:"required_fields" json:"required_fields" env:"LISTING_REQUIRED_FIELDS" env-separator:","`
}

// ServerConfig - статусный HTTP API периодического режима.
// Пустой Address отключает сервер.
type ServerConfig struct {
	Address string `yaml:"address" json:"address" env:"SERVER_ADDRESS"`
}

// Load загружает конфигурацию. path может быть пустым.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg := New()
	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from env: %w", err)
		}
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return cfg, nil
}

// New создает Config со значениями по умолчанию.
func New() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level: "info",
		},
		Import: ImportConfig{
			Format:       "realtypult",
			FetchTimeout: 2 * time.Minute,
		},
		Listing: ListingConfig{
			PublicBaseURL: "http://localhost:8080",
		},
	}
}

// Validate проверяет обязательные параметры и возвращает первую найденную проблему.
// formats - список поддерживаемых форматов фида.
func (c *Config) Validate(formats []string) error {
	if c.Import.FeedURL == "" {
		return errors.New("import.feed_url is not set")
	}
	u, err := url.ParseRequestURI(c.Import.FeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid import.feed_url: %s", c.Import.FeedURL)
	}
	if c.Import.ReportFile == "" {
		return errors.New("import.report_file is not set")
	}
	if !slices.Contains(formats, c.Import.Format) {
		return fmt.Errorf("import.format must be one of [%s], got %q", strings.Join(formats, ", "), c.Import.Format)
	}
	if c.Import.FetchTimeout <= 0 {
		return errors.New("import.fetch_timeout must be positive")
	}
	if c.Import.ItemTimeout < 0 {
		return errors.New("import.item_timeout must not be negative")
	}
	if c.Import.Interval < 0 {
		return errors.New("import.interval must not be negative")
	}
	if c.Import.Interval > 0 && c.Import.Interval < time.Minute {
		return errors.New("import.interval must be at least 1m")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is not set")
	}
	if _, err := url.ParseRequestURI(c.Listing.PublicBaseURL); err != nil {
		return fmt.Errorf("invalid listing.public_base_url: %s", c.Listing.PublicBaseURL)
	}
	return nil
}
