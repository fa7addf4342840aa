package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Feature extraction strategies.
const (
	StrategyPCA   = "pca"
	StrategyStats = "stats"
	StrategyBoth  = "both"
)

// Default dataset file names (GaitRec processed left-side tables).
const (
	DefaultVerticalFile = "GRF_F_V_PRO_left.csv"
	DefaultAPFile       = "GRF_F_AP_PRO_left.csv"
	DefaultMLFile       = "GRF_F_ML_PRO_left.csv"
	DefaultMetadataFile = "GRF_metadata.csv"
)

type Settings struct {
	BaseURL      string
	DataDir      string
	OutputDir    string
	VerticalFile string
	APFile       string
	MLFile       string
	MetadataFile string

	Strategy             string
	VarianceTarget       float64
	LegacyTestProjection bool

	CVFolds int
	KMin    int
	KMax    int
	KStep   int
	Trees   int
	Seed    int64

	MetricsPort  int
	ServeMetrics bool
	HTTPTimeout  time.Duration
}

type ConfigFile struct {
	Dataset struct {
		BaseURL      string `yaml:"baseURL"`
		Dir          string `yaml:"dir"`
		VerticalFile string `yaml:"verticalFile"`
		APFile       string `yaml:"apFile"`
		MLFile       string `yaml:"mlFile"`
		MetadataFile string `yaml:"metadataFile"`
	} `yaml:"dataset"`

	Features struct {
		Strategy             string  `yaml:"strategy"`
		VarianceTarget       float64 `yaml:"varianceTarget"`
		LegacyTestProjection bool    `yaml:"legacyTestProjection"`
	} `yaml:"features"`

	Model struct {
		CVFolds int   `yaml:"cvFolds"`
		KMin    int   `yaml:"kMin"`
		KMax    int   `yaml:"kMax"`
		KStep   int   `yaml:"kStep"`
		Trees   int   `yaml:"trees"`
		Seed    int64 `yaml:"seed"`
	} `yaml:"model"`

	System struct {
		OutputDir    string `yaml:"outputDir"`
		MetricsPort  int    `yaml:"metricsPort"`
		ServeMetrics bool   `yaml:"serveMetrics"`
		HTTPTimeout  string `yaml:"httpTimeout"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	httpTimeout, err := time.ParseDuration(config.System.HTTPTimeout)
	if err != nil {
		httpTimeout = 30 * time.Second
	}

	settings := Settings{
		BaseURL:      getEnvOrDefault("DATASET_BASE_URL", config.Dataset.BaseURL),
		DataDir:      getEnvOrDefault("DATA_DIR", stringOrDefault(config.Dataset.Dir, "data")),
		OutputDir:    getEnvOrDefault("OUTPUT_DIR", stringOrDefault(config.System.OutputDir, "results")),
		VerticalFile: stringOrDefault(config.Dataset.VerticalFile, DefaultVerticalFile),
		APFile:       stringOrDefault(config.Dataset.APFile, DefaultAPFile),
		MLFile:       stringOrDefault(config.Dataset.MLFile, DefaultMLFile),
		MetadataFile: stringOrDefault(config.Dataset.MetadataFile, DefaultMetadataFile),

		Strategy:             getEnvOrDefault("FEATURE_STRATEGY", stringOrDefault(config.Features.Strategy, StrategyBoth)),
		VarianceTarget:       getFloatFromEnvOrConfig("VARIANCE_TARGET", config.Features.VarianceTarget, 0.95),
		LegacyTestProjection: getBoolFromEnvOrConfig("LEGACY_TEST_PROJECTION", config.Features.LegacyTestProjection),

		CVFolds: getIntFromEnvOrConfig("CV_FOLDS", config.Model.CVFolds, 5),
		KMin:    getIntFromEnvOrConfig("KNN_K_MIN", config.Model.KMin, 5),
		KMax:    getIntFromEnvOrConfig("KNN_K_MAX", config.Model.KMax, 70),
		KStep:   getIntFromEnvOrConfig("KNN_K_STEP", config.Model.KStep, 5),
		Trees:   getIntFromEnvOrConfig("FOREST_TREES", config.Model.Trees, 100),
		Seed:    getInt64FromEnvOrConfig("SEED", config.Model.Seed, 1),

		MetricsPort:  getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort, 8080),
		ServeMetrics: getBoolFromEnvOrConfig("SERVE_METRICS", config.System.ServeMetrics),
		HTTPTimeout:  httpTimeout,
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		BaseURL:      os.Getenv("DATASET_BASE_URL"), // optional when files are already local
		DataDir:      getEnvOrDefault("DATA_DIR", "data"),
		OutputDir:    getEnvOrDefault("OUTPUT_DIR", "results"),
		VerticalFile: getEnvOrDefault("VERTICAL_FILE", DefaultVerticalFile),
		APFile:       getEnvOrDefault("AP_FILE", DefaultAPFile),
		MLFile:       getEnvOrDefault("ML_FILE", DefaultMLFile),
		MetadataFile: getEnvOrDefault("METADATA_FILE", DefaultMetadataFile),

		Strategy:             getEnvOrDefault("FEATURE_STRATEGY", StrategyBoth),
		VarianceTarget:       getFloatOrDefault("VARIANCE_TARGET", 0.95),
		LegacyTestProjection: getBoolOrDefault("LEGACY_TEST_PROJECTION", false),

		CVFolds: getIntOrDefault("CV_FOLDS", 5),
		KMin:    getIntOrDefault("KNN_K_MIN", 5),
		KMax:    getIntOrDefault("KNN_K_MAX", 70),
		KStep:   getIntOrDefault("KNN_K_STEP", 5),
		Trees:   getIntOrDefault("FOREST_TREES", 100),
		Seed:    getInt64OrDefault("SEED", 1),

		MetricsPort:  getIntOrDefault("METRICS_PORT", 8080),
		ServeMetrics: getBoolOrDefault("SERVE_METRICS", false),
		HTTPTimeout:  getDurationOrDefault("HTTP_TIMEOUT", 30*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// KGrid expands the configured kNN sweep grid.
func (s *Settings) KGrid() []int {
	var grid []int
	for k := s.KMin; k <= s.KMax; k += s.KStep {
		grid = append(grid, k)
	}
	return grid
}

func stringOrDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, def int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return def
}

func getInt64FromEnvOrConfig(key string, configValue, def int64) int64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseInt(env, 10, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return def
}

func getFloatFromEnvOrConfig(key string, configValue, def float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return def
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if settings.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	switch settings.Strategy {
	case StrategyPCA, StrategyStats, StrategyBoth:
	default:
		return fmt.Errorf("feature strategy must be one of pca, stats, both, got %q", settings.Strategy)
	}

	if settings.VarianceTarget <= 0 || settings.VarianceTarget > 1 {
		return fmt.Errorf("variance target must be in (0, 1], got %f", settings.VarianceTarget)
	}

	if settings.CVFolds < 2 || settings.CVFolds > 20 {
		return fmt.Errorf("cross-validation folds must be between 2 and 20, got %d", settings.CVFolds)
	}
	if settings.KMin < 1 {
		return fmt.Errorf("kNN grid minimum must be at least 1, got %d", settings.KMin)
	}
	if settings.KMax < settings.KMin {
		return fmt.Errorf("kNN grid maximum %d is below minimum %d", settings.KMax, settings.KMin)
	}
	if settings.KStep < 1 {
		return fmt.Errorf("kNN grid step must be at least 1, got %d", settings.KStep)
	}
	if settings.Trees < 1 || settings.Trees > 1000 {
		return fmt.Errorf("forest size must be between 1 and 1000 trees, got %d", settings.Trees)
	}

	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.HTTPTimeout < time.Second || settings.HTTPTimeout > 5*time.Minute {
		return fmt.Errorf("HTTP timeout must be between 1s and 5m, got %v", settings.HTTPTimeout)
	}

	return nil
}
