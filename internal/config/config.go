package config

import (
	"os"
	"strconv"
)

type Config struct {
	Dataset    DatasetConfig
	Detector   DetectorConfig
	Classifier ClassifierConfig
	Attendance AttendanceConfig
	Database   DatabaseConfig
}

type DatasetConfig struct {
	Dir       string // root directory with one folder per enrolled identity
	CachePath string // encoding cache artifact (gob)
	ModelPath string // trained model artifact (gob)
}

type DetectorConfig struct {
	URL string // detection sidecar base URL (defaults to http://localhost:8000)

	// Secondary cascade detector sensitivity. Higher MinNeighbors means fewer
	// false positives but more missed faces.
	CascadeMinNeighbors int
	CascadeMinSize      int // minimum face region edge in pixels

	IoUThreshold float64 // overlap above which a secondary region is considered the same face
}

type ClassifierConfig struct {
	// MatchThreshold is the maximum neighbor distance still accepted as a
	// known identity. Inclusive: a distance exactly at the threshold matches.
	MatchThreshold float64
}

type AttendanceConfig struct {
	SlotBufferMin   int // minutes added before slot start and after slot end
	WindowLiveMin   int // half-width for unscheduled live detections
	WindowManualMin int // half-width for dashboard marking with explicit time
	WindowBulkMin   int // half-width for bulk manual editing
	CooldownMin     int // bare-camera cooldown between records for one identity
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // default 25
	MaxIdleConns int    // default 5
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Dir:       envString("DATASET_DIR", "dataset"),
			CachePath: envString("CACHE_PATH", "encodings.gob"),
			ModelPath: envString("MODEL_PATH", "classifier.gob"),
		},
		Detector: DetectorConfig{
			URL:                 os.Getenv("DETECTOR_URL"),
			CascadeMinNeighbors: envInt("CASCADE_MIN_NEIGHBORS", 4),
			CascadeMinSize:      envInt("CASCADE_MIN_SIZE", 30),
			IoUThreshold:        envFloat("IOU_THRESHOLD", 0.3),
		},
		Classifier: ClassifierConfig{
			MatchThreshold: envFloat("MATCH_THRESHOLD", 0.60),
		},
		Attendance: AttendanceConfig{
			SlotBufferMin:   envInt("SLOT_BUFFER_MIN", 45),
			WindowLiveMin:   envInt("WINDOW_LIVE_MIN", 60),
			WindowManualMin: envInt("WINDOW_MANUAL_MIN", 20),
			WindowBulkMin:   envInt("WINDOW_BULK_MIN", 10),
			CooldownMin:     envInt("COOLDOWN_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
	}
}
