package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"regression-lab/internal/common"
	"regression-lab/internal/dataset"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	HTTPPort     int
	MetricsPort  int
	Epochs       int
	LearningRate float64
	TrainTimeout time.Duration // 0 disables the limit
	LogLevel     string
	LogFile      string // optional, rotated with lumberjack
	Seed         dataset.Set
}

type ConfigFile struct {
	Server struct {
		HTTPPort    int `yaml:"httpPort"`
		MetricsPort int `yaml:"metricsPort"`
	} `yaml:"server"`

	Training struct {
		Epochs       int            `yaml:"epochs"`
		LearningRate float64        `yaml:"learningRate"`
		Timeout      string         `yaml:"timeout"`
		Seed         []dataset.Pair `yaml:"seed"`
	} `yaml:"training"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

func Load() (Settings, error) {
	if err := loadDotEnv(); err != nil {
		return Settings{}, err
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// loadDotEnv populates unset environment variables from a .env file, if present.
// Variables already set in the process environment win.
func loadDotEnv() error {
	path := getEnvOrDefault(common.EnvDotEnvFile, common.DefaultDotEnvFile)
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
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

	var timeout time.Duration
	if config.Training.Timeout != "" {
		timeout, err = time.ParseDuration(config.Training.Timeout)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid training timeout %q: %w", config.Training.Timeout, err)
		}
	}

	seed := dataset.Seed()
	if len(config.Training.Seed) > 0 {
		seed = dataset.Set(config.Training.Seed).Clone()
	}

	settings := Settings{
		HTTPPort:     getIntFromEnvOrConfig(common.EnvHTTPPort, config.Server.HTTPPort, common.DefaultHTTPPort),
		MetricsPort:  getIntFromEnvOrConfig(common.EnvMetricsPort, config.Server.MetricsPort, common.DefaultMetricsPort),
		Epochs:       getIntFromEnvOrConfig(common.EnvEpochs, config.Training.Epochs, common.DefaultEpochs),
		LearningRate: getFloatFromEnvOrConfig(common.EnvLearningRate, config.Training.LearningRate, common.DefaultLearningRate),
		TrainTimeout: getDurationOrDefault(common.EnvTrainTimeout, timeout),
		LogLevel:     getEnvOrDefault(common.EnvLogLevel, orDefault(config.Logging.Level, common.DefaultLogLevel)),
		LogFile:      getEnvOrDefault(common.EnvLogFile, config.Logging.File),
		Seed:         seed,
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		HTTPPort:     getIntOrDefault(common.EnvHTTPPort, common.DefaultHTTPPort),
		MetricsPort:  getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		Epochs:       getIntOrDefault(common.EnvEpochs, common.DefaultEpochs),
		LearningRate: getFloatOrDefault(common.EnvLearningRate, common.DefaultLearningRate),
		TrainTimeout: getDurationOrDefault(common.EnvTrainTimeout, 0),
		LogLevel:     getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFile:      os.Getenv(common.EnvLogFile), // optional
		Seed:         dataset.Seed(),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
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

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings checks every setting against the bounds in common
func validateSettings(settings *Settings) error {
	if settings.HTTPPort < common.MinPort || settings.HTTPPort > common.MaxPort {
		return fmt.Errorf("HTTP port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.HTTPPort)
	}
	if settings.MetricsPort < common.MinPort || settings.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.MetricsPort)
	}
	if settings.HTTPPort == settings.MetricsPort {
		return errors.New(common.ErrMsgPortsCollide)
	}

	if settings.Epochs < common.MinEpochs || settings.Epochs > common.MaxEpochs {
		return fmt.Errorf("epochs must be between %d and %d, got %d", common.MinEpochs, common.MaxEpochs, settings.Epochs)
	}
	if settings.LearningRate <= common.MinLearningRate || settings.LearningRate > common.MaxLearningRate {
		return fmt.Errorf("learning rate must be in (%g, %g], got %g", common.MinLearningRate, common.MaxLearningRate, settings.LearningRate)
	}
	if settings.TrainTimeout < 0 || settings.TrainTimeout > common.MaxTrainTimeout*time.Minute {
		return fmt.Errorf("training timeout must be between 0 and %dm, got %v", common.MaxTrainTimeout, settings.TrainTimeout)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	if len(settings.Seed) == 0 {
		return fmt.Errorf("seed training set must contain at least one pair")
	}

	return nil
}
