package common

// Environment variable keys
const (
	EnvConfigFile   = "CONFIG_FILE"
	EnvDotEnvFile   = "DOTENV_FILE"
	EnvHTTPPort     = "HTTP_PORT"
	EnvMetricsPort  = "METRICS_PORT"
	EnvEpochs       = "EPOCHS"
	EnvLearningRate = "LEARNING_RATE"
	EnvTrainTimeout = "TRAIN_TIMEOUT"
	EnvLogLevel     = "LOG_LEVEL"
	EnvLogFile      = "LOG_FILE"
	EnvServerURL    = "REGRESS_SERVER"
)

// Configuration defaults
const (
	DefaultDotEnvFile   = ".env"
	DefaultHTTPPort     = 8080
	DefaultMetricsPort  = 9090
	DefaultEpochs       = 250
	DefaultLearningRate = 0.01
	DefaultLogLevel     = "info"
	DefaultServerURL    = "http://localhost:8080"
)

// Validation constants
const (
	MinPort         = 1024
	MaxPort         = 65535
	MinEpochs       = 1
	MaxEpochs       = 100000
	MinLearningRate = 0.0
	MaxLearningRate = 1.0
	MaxTrainTimeout = 10 // minutes
)

// Common error messages
const (
	ErrMsgPortsCollide = "HTTP port and metrics port must differ"
)
