package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

type AppConfig struct {
	Env                Environment
	LogLevel           string
	LogFile            string
	LogMaxSizeMB       int
	LogMaxBackups      int
	ServerPort         string
	RawBodyLog         bool
	HttpTimeoutSeconds int
	AllowedOrigins     []string
	MaxAnswerTokens    int
}

type GroqConfig struct {
	URL               string
	Token             string
	Model             string
	Temperature       float64
	MaxTokens         int
	RequestsPerMinute int
}

type GeminiConfig struct {
	Token       string
	Model       string
	Temperature float64
}

type PythonConfig struct {
	ConfigDir              string
	ProcessStartupDelay    int
	ProcessShutdownTimeout int
	ProcessKillTimeout     int
}

type SemanticConfig struct {
	Model       string
	TimeoutMs   int
	WorkerCount int
	Python      PythonConfig
}

type Config struct {
	App      AppConfig
	Groq     GroqConfig
	Gemini   GeminiConfig
	Semantic SemanticConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	appEnv := getEnv("APP_ENV", "development")
	env := parseEnvironment(appEnv)

	logLevel := getLogLevel(env)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	defaultPythonDir := filepath.Join(homeDir, ".config", "rater")

	return &Config{
		App: AppConfig{
			Env:                env,
			LogLevel:           logLevel,
			LogFile:            getEnv("APP_LOG_FILE", filepath.Join("logs", "app.log")),
			LogMaxSizeMB:       getEnvInt("APP_LOG_MAX_SIZE_MB", 1),
			LogMaxBackups:      getEnvInt("APP_LOG_MAX_BACKUPS", 10),
			ServerPort:         getEnv("APP_SERVER_PORT", getEnv("PORT", "10000")),
			RawBodyLog:         getEnvBool("APP_RAW_BODY_LOG", false),
			HttpTimeoutSeconds: getEnvInt("APP_HTTP_TIMEOUT_SECONDS", 30),
			AllowedOrigins:     getEnvList("APP_ALLOWED_ORIGINS", []string{"http://localhost"}),
			MaxAnswerTokens:    getEnvInt("APP_MAX_ANSWER_TOKENS", 2000),
		},
		Groq: GroqConfig{
			URL:               getEnv("GROQ_URL", "https://api.groq.com/openai/v1/chat/completions"),
			Token:             getEnv("GROQ_API_KEY", ""),
			Model:             getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
			Temperature:       getEnvFloat("GROQ_TEMPERATURE", 0.0),
			MaxTokens:         getEnvInt("GROQ_MAX_TOKENS", 8),
			RequestsPerMinute: getEnvInt("GROQ_REQUESTS_PER_MINUTE", 0),
		},
		Gemini: GeminiConfig{
			Token:       getEnv("GEMINI_API_KEY", ""),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature: getEnvFloat("GEMINI_TEMPERATURE", 0.0),
		},
		Semantic: SemanticConfig{
			Model:       getEnv("SEMANTIC_MODEL_NAME", "en_core_web_md"),
			TimeoutMs:   getEnvInt("SEMANTIC_TIMEOUT_MS", 10000),
			WorkerCount: getEnvInt("SEMANTIC_WORKER_COUNT", calculateDefaultWorkerCount()),
			Python: PythonConfig{
				ConfigDir:              getEnv("SEMANTIC_PYTHON_CONFIG_DIR", defaultPythonDir),
				ProcessStartupDelay:    getEnvInt("SEMANTIC_PYTHON_PROCESS_STARTUP_DELAY", 2),
				ProcessShutdownTimeout: getEnvInt("SEMANTIC_PYTHON_PROCESS_SHUTDOWN_TIMEOUT", 5),
				ProcessKillTimeout:     getEnvInt("SEMANTIC_PYTHON_PROCESS_KILL_TIMEOUT", 2),
			},
		},
	}, nil
}

func (c *Config) Validate() error {
	if c.Groq.URL == "" || c.Groq.Token == "" {
		return fmt.Errorf("GROQ_URL and GROQ_API_KEY are required")
	}
	if c.Semantic.WorkerCount < 1 {
		return fmt.Errorf("SEMANTIC_WORKER_COUNT must be at least 1")
	}
	if len(c.App.AllowedOrigins) == 0 {
		return fmt.Errorf("APP_ALLOWED_ORIGINS must list at least one origin")
	}
	return nil
}

// GeminiEnabled reports whether the optional Gemini backend is configured.
func (c *Config) GeminiEnabled() bool {
	return c.Gemini.Token != ""
}

func parseEnvironment(envStr string) Environment {
	env := Environment(strings.ToLower(envStr))

	switch env {
	case Development, Production:
		return env
	default:
		return Development
	}
}

func calculateDefaultWorkerCount() int {
	cpuCores := runtime.NumCPU()

	// en_core_web_md loads to roughly 150MB per process
	modelMemoryMB := 150

	var availableMemoryMB int64 = 2048

	if memInfo, err := os.ReadFile("/proc/meminfo"); err == nil {
		lines := strings.Split(string(memInfo), "\n")
		for _, line := range lines {
			if strings.HasPrefix(line, "MemTotal:") {
				fields := strings.Fields(line)
				if len(fields) >= 2 {
					if kb, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
						availableMemoryMB = kb / 1024
						break
					}
				}
			}
		}
	}

	workersByCPU := min(cpuCores, 4)

	// leave 1GB for system and Go process
	usableMemoryMB := int(availableMemoryMB) - 1024
	if usableMemoryMB < modelMemoryMB {
		usableMemoryMB = modelMemoryMB
	}

	workersByMemory := max(min(usableMemoryMB/modelMemoryMB, 4), 1)

	return min(max(min(workersByMemory, workersByCPU), 1), 4)
}

func getLogLevel(env Environment) string {
	if env == Production {
		return getEnv("APP_LOG_LEVEL", "info")
	}

	return getEnv("APP_LOG_LEVEL", "debug")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value == "true" {
		return true
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
