package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"subpower/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Paths      PathConfig
	Run        RunConfig
	Estimation EstimationConfig
	Catalog    CatalogConfig
	Export     ExportConfig
}

// PathConfig holds the input and output artifact locations
type PathConfig struct {
	InputDir  string
	OutputDir string
}

// RunConfig holds batch orchestration settings
type RunConfig struct {
	Workers     int
	Overwrite   bool
	Seed        int64
	ItemTimeout time.Duration
	Families    []string
}

// EstimationConfig holds the power estimation parameters
type EstimationConfig struct {
	Alpha         float64
	NumIter       int
	NumRuns       int
	Permutations  int
	CountStart    int
	CountStep     int
	CountBuffer   int
	FailurePolicy string
	Bootstrap     bool
	Mu0           float64
}

// CatalogConfig holds the optional postgres catalog settings
type CatalogConfig struct {
	DSN     string
	Enabled bool
}

// ExportConfig holds the optional workbook export settings
type ExportConfig struct {
	XLSXPath string
	Enabled  bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Paths: PathConfig{
			InputDir:  getEnvOrDefault("INPUT_DIR", "./simulations"),
			OutputDir: getEnvOrDefault("OUTPUT_DIR", "./power"),
		},
		Run: RunConfig{
			Workers:     getEnvIntOrDefault("WORKERS", 1),
			Overwrite:   getEnvBoolOrDefault("OVERWRITE", false),
			Seed:        int64(getEnvIntOrDefault("SEED", 1)),
			ItemTimeout: getEnvDurationOrDefault("ITEM_TIMEOUT", 10*time.Minute),
			Families:    splitList(getEnvOrDefault("FAMILIES", "independent_t")),
		},
		Estimation: EstimationConfig{
			Alpha:         getEnvFloatOrDefault("ALPHA", 0.05),
			NumIter:       getEnvIntOrDefault("NUM_ITER", 500),
			NumRuns:       getEnvIntOrDefault("NUM_RUNS", 10),
			Permutations:  getEnvIntOrDefault("PERMUTATIONS", 999),
			CountStart:    getEnvIntOrDefault("COUNT_START", 5),
			CountStep:     getEnvIntOrDefault("COUNT_STEP", 10),
			CountBuffer:   getEnvIntOrDefault("COUNT_BUFFER", 10),
			FailurePolicy: getEnvOrDefault("FAILURE_POLICY", "abort"),
			Bootstrap:     getEnvBoolOrDefault("BOOTSTRAP", false),
			Mu0:           getEnvFloatOrDefault("MU0", 0),
		},
		Catalog: CatalogConfig{
			DSN:     getEnvOrDefault("CATALOG_DSN", ""),
			Enabled: os.Getenv("CATALOG_DSN") != "",
		},
		Export: ExportConfig{
			XLSXPath: getEnvOrDefault("XLSX_EXPORT", ""),
			Enabled:  os.Getenv("XLSX_EXPORT") != "",
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Paths.InputDir == "" {
		return errors.ConfigInvalid("input directory is required")
	}
	if config.Paths.OutputDir == "" {
		return errors.ConfigInvalid("output directory is required")
	}
	if _, err := os.Stat(config.Paths.InputDir); err != nil {
		return errors.ConfigInvalid("input directory does not exist: " + config.Paths.InputDir)
	}
	if config.Run.Workers < 1 {
		return errors.ConfigInvalid("WORKERS must be at least 1")
	}
	if len(config.Run.Families) == 0 {
		return errors.ConfigInvalid("FAMILIES must name at least one test family")
	}
	if config.Estimation.Alpha <= 0 || config.Estimation.Alpha >= 1 {
		return errors.ConfigInvalid("ALPHA must lie in (0,1)")
	}
	if config.Estimation.NumIter < 1 || config.Estimation.NumRuns < 1 {
		return errors.ConfigInvalid("NUM_ITER and NUM_RUNS must be at least 1")
	}
	if config.Estimation.Permutations < 1 {
		return errors.ConfigInvalid("PERMUTATIONS must be at least 1")
	}
	if config.Estimation.CountStart < 1 || config.Estimation.CountStep < 1 {
		return errors.ConfigInvalid("COUNT_START and COUNT_STEP must be at least 1")
	}
	switch config.Estimation.FailurePolicy {
	case "abort", "drop":
	default:
		return errors.ConfigInvalid("FAILURE_POLICY must be abort or drop")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
