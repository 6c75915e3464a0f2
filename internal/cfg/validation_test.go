package cfg

import (
	"testing"
	"time"

	"regression-lab/internal/dataset"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		HTTPPort:     8080,
		MetricsPort:  9090,
		Epochs:       250,
		LearningRate: 0.01,
		TrainTimeout: 0,
		LogLevel:     "info",
		Seed:         dataset.Seed(),
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	settings := createValidSettings()

	err := validateSettings(settings)
	if err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_InvalidPorts(t *testing.T) {
	testCases := []struct {
		name        string
		httpPort    int
		metricsPort int
		wantErr     bool
	}{
		{"privileged http port", 80, 9090, true},
		{"privileged metrics port", 8080, 443, true},
		{"minimum valid", 1024, 1025, false},
		{"maximum valid", 65535, 65534, false},
		{"http port too high", 70000, 9090, true},
		{"same port", 8080, 8080, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := createValidSettings()
			settings.HTTPPort = tc.httpPort
			settings.MetricsPort = tc.metricsPort

			err := validateSettings(settings)
			if tc.wantErr && err == nil {
				t.Error("Expected error for invalid ports")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Expected no error for valid ports, got: %v", err)
			}
		})
	}
}

func TestValidateSettings_InvalidEpochs(t *testing.T) {
	testCases := []struct {
		name    string
		epochs  int
		wantErr bool
	}{
		{"zero", 0, true},
		{"negative", -5, true},
		{"minimum valid", 1, false},
		{"default", 250, false},
		{"maximum valid", 100000, false},
		{"too many", 100001, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := createValidSettings()
			settings.Epochs = tc.epochs

			err := validateSettings(settings)
			if tc.wantErr && err == nil {
				t.Error("Expected error for invalid epochs")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Expected no error for valid epochs, got: %v", err)
			}
		})
	}
}

func TestValidateSettings_InvalidLearningRate(t *testing.T) {
	testCases := []struct {
		name    string
		lr      float64
		wantErr bool
	}{
		{"zero", 0, true},
		{"negative", -0.1, true},
		{"small", 0.0001, false},
		{"default", 0.01, false},
		{"maximum valid", 1.0, false},
		{"too large", 1.5, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := createValidSettings()
			settings.LearningRate = tc.lr

			err := validateSettings(settings)
			if tc.wantErr && err == nil {
				t.Error("Expected error for invalid learning rate")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Expected no error for valid learning rate, got: %v", err)
			}
		})
	}
}

func TestValidateSettings_InvalidTrainTimeout(t *testing.T) {
	testCases := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"disabled", 0, false},
		{"negative", -time.Second, true},
		{"normal", 30 * time.Second, false},
		{"maximum valid", 10 * time.Minute, false},
		{"too long", time.Hour, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := createValidSettings()
			settings.TrainTimeout = tc.timeout

			err := validateSettings(settings)
			if tc.wantErr && err == nil {
				t.Error("Expected error for invalid training timeout")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Expected no error for valid training timeout, got: %v", err)
			}
		})
	}
}

func TestValidateSettings_LogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "trace"} {
		settings := createValidSettings()
		settings.LogLevel = level
		if err := validateSettings(settings); err != nil {
			t.Errorf("Expected level %s to be valid, got: %v", level, err)
		}
	}

	settings := createValidSettings()
	settings.LogLevel = "chatty"
	if err := validateSettings(settings); err == nil {
		t.Error("Expected error for unknown log level")
	}
}

func TestValidateSettings_EmptySeed(t *testing.T) {
	settings := createValidSettings()
	settings.Seed = dataset.Set{}

	if err := validateSettings(settings); err == nil {
		t.Error("Expected error for empty seed training set")
	}
}
