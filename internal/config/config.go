package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Config holds settings shared by the roi tools
type Config struct {
	// External tools
	FFmpegPath  string
	FFprobePath string

	// Output
	Codec string

	// Progress logging
	ProgressInterval int
	LogLevel         logrus.Level
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		FFmpegPath:       getEnv("ROI_FFMPEG", "ffmpeg"),
		FFprobePath:      getEnv("ROI_FFPROBE", "ffprobe"),
		Codec:            getEnv("ROI_CODEC", "mpeg4"),
		ProgressInterval: getIntEnv("ROI_PROGRESS_INTERVAL", 30),
		LogLevel:         getLevelEnv("ROI_LOG_LEVEL", logrus.InfoLevel),
	}
}

// Helper functions to get environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getLevelEnv(key string, defaultValue logrus.Level) logrus.Level {
	if value := os.Getenv(key); value != "" {
		if level, err := logrus.ParseLevel(value); err == nil {
			return level
		}
	}
	return defaultValue
}
