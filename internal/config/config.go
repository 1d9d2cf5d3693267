// Package config reads run settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"covenants/internal/database"

	"github.com/joho/godotenv"
)

// Config holds everything the commands need before flags are applied.
type Config struct {
	DB database.DBConfig

	LogLevel  string
	LogFormat string

	OutputDir        string
	RegulationSource string

	ImageMaxWidth        float64
	ImageMaxHeight       float64
	ImageWorkers         int
	ImageFetchTimeout    time.Duration
	ImageSharpen         float64
	ImageFullOrientation bool
	GroupWorkers         int
	RemedyDays           int
}

// Load reads envFile (missing is fine, empty skips it) and then the
// environment. Variables already set win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		DB:               database.LoadDatabaseConfig(),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		OutputDir:        getEnv("NOTICE_OUTPUT_DIR", "output"),
		RegulationSource: getEnv("REGULATION_CATALOG", ""),
	}

	var err error
	if cfg.ImageMaxWidth, err = getFloat("IMAGE_MAX_WIDTH", 180); err != nil {
		return nil, err
	}
	if cfg.ImageMaxHeight, err = getFloat("IMAGE_MAX_HEIGHT", 240); err != nil {
		return nil, err
	}
	if cfg.ImageSharpen, err = getFloat("IMAGE_SHARPEN", 1.3); err != nil {
		return nil, err
	}
	if cfg.ImageWorkers, err = getInt("IMAGE_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.GroupWorkers, err = getInt("GROUP_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.RemedyDays, err = getInt("NOTICE_REMEDY_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.ImageFetchTimeout, err = getDuration("IMAGE_FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ImageFullOrientation, err = getBool("IMAGE_FULL_ORIENTATION", true); err != nil {
		return nil, err
	}

	if cfg.ImageMaxWidth <= 0 || cfg.ImageMaxHeight <= 0 {
		return nil, fmt.Errorf("image bounds must be positive, got %gx%g", cfg.ImageMaxWidth, cfg.ImageMaxHeight)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s, got %q", key, v)
	}
	return d, nil
}

func getBool(key string, def bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false, got %q", key, v)
	}
	return b, nil
}
