// Package config handles platform configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	// Capture pipeline
	CaptureInterval time.Duration
	StopTimeout     time.Duration
	SourceLanguage  string
	TargetLanguage  string

	// Translation backend
	TranslateAPIKey   string
	TranslateEndpoint string
	CacheTTL          time.Duration
	CacheSweepPeriod  time.Duration

	// Recognition profiles
	ProfilePath         string
	SmallAreaThreshold  int
	LargeAreaThreshold  int
	TesseractLanguages  []string
}

func Load() *Config {
	return &Config{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8000"),
		CaptureInterval:     getEnvDurationMS("CAPTURE_INTERVAL_MS", 1000),
		StopTimeout:         getEnvDurationMS("STOP_TIMEOUT_MS", 5000),
		SourceLanguage:      getEnv("SOURCE_LANGUAGE", "en"),
		TargetLanguage:      getEnv("TARGET_LANGUAGE", "en"),
		TranslateAPIKey:     getEnv("TRANSLATE_API_KEY", ""),
		TranslateEndpoint:   getEnv("TRANSLATE_ENDPOINT", "https://translation.googleapis.com/language/translate/v2"),
		CacheTTL:            getEnvDurationMin("CACHE_TTL_MINUTES", 60),
		CacheSweepPeriod:    getEnvDurationMin("CACHE_SWEEP_MINUTES", 5),
		ProfilePath:         getEnv("PROFILE_PATH", defaultProfilePath()),
		SmallAreaThreshold:  getEnvInt("SMALL_AREA_THRESHOLD", 10000),
		LargeAreaThreshold:  getEnvInt("LARGE_AREA_THRESHOLD", 100000),
		TesseractLanguages:  getEnvList("TESSERACT_LANGUAGES", []string{"eng"}),
	}
}

// defaultProfilePath is the per-user application-data location for profiles.
func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "screensub", "ocr_profiles.json")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDurationMS(key string, defMillis int) time.Duration {
	return time.Duration(getEnvInt(key, defMillis)) * time.Millisecond
}

func getEnvDurationMin(key string, defMinutes int) time.Duration {
	return time.Duration(getEnvInt(key, defMinutes)) * time.Minute
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
