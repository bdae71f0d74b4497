package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full pipeline configuration loaded from a YAML file.
type Config struct {
	Scraper ScraperConfig `yaml:"scraper"`
	Output  OutputConfig  `yaml:"output"`
	Filters FiltersConfig `yaml:"filters"`
}

// ScraperConfig controls fetching, throttling and pagination.
type ScraperConfig struct {
	StartURL       string `yaml:"start_url"`
	Headless       bool   `yaml:"headless"`
	PageTimeoutS   int    `yaml:"page_timeout_s"`
	RequestDelayMs int    `yaml:"request_delay_ms"`
	JitterMs       int    `yaml:"jitter_ms"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms"`
	MaxPages       int    `yaml:"max_pages"`
}

// OutputConfig names the on-disk artifacts.
type OutputConfig struct {
	CityCache string `yaml:"city_cache"`
	LogPath   string `yaml:"log_path"`
	CSVPath   string `yaml:"csv_path"`
}

// FiltersConfig controls which records make it into the filtered exports.
type FiltersConfig struct {
	PetFriendlyOnly bool    `yaml:"pet_friendly_only"`
	MinRating       float64 `yaml:"min_rating"`
}

// LoadConfig loads configuration from a YAML file. Missing keys keep their
// default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// GetDefaultConfig returns a configuration with conservative defaults.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Scraper.StartURL = "https://www.ihg.com/explore/pet-friendly-hotels"
	cfg.Scraper.Headless = true
	cfg.Scraper.PageTimeoutS = 30
	cfg.Scraper.RequestDelayMs = 3000
	cfg.Scraper.JitterMs = 1500
	cfg.Scraper.MaxRetries = 3
	cfg.Scraper.RetryBackoffMs = 1000
	cfg.Scraper.MaxPages = 100
	cfg.Output.CityCache = "data/ihg_city_urls.csv"
	cfg.Output.LogPath = "data/ihg_hotels.jsonl"
	cfg.Output.CSVPath = "data/ihg_hotels.csv"
	return cfg
}

// LoadEnv reads a .env file if present so DATABASE_URL, Telegram and Google
// credentials can live next to the binary during development.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}

// GetEnvOrDefault returns the value of the environment variable or a fallback.
func GetEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
