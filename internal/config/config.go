package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIAddr           string
	Provider          string
	OllamaBaseURL     string
	OpenAIBaseURL     string
	Model             string
	ModelTimeoutSecs  int
	DatabaseURL       string
	TemporalAddress   string
	TemporalTaskQueue string
	PDFCommand        string
	MaxUploadMB       int
	DataOutRoot       string
	LogLevel          string
	GradeConcurrency  int
}

func Load() Config {
	return Config{
		APIAddr:           getenv("ESSAYGRADER_API_ADDR", ":8000"),
		Provider:          getenv("ESSAYGRADER_PROVIDER", "ollama"),
		OllamaBaseURL:     getenv("ESSAYGRADER_OLLAMA_BASE_URL", "http://localhost:11434"),
		OpenAIBaseURL:     getenv("ESSAYGRADER_OPENAI_BASE_URL", "http://localhost:8080/v1"),
		Model:             getenv("ESSAYGRADER_MODEL", "llama3"),
		ModelTimeoutSecs:  getenvInt("ESSAYGRADER_MODEL_TIMEOUT_SECONDS", 120),
		DatabaseURL:       getenv("ESSAYGRADER_DATABASE_URL", ""),
		TemporalAddress:   getenv("ESSAYGRADER_TEMPORAL_ADDRESS", ""),
		TemporalTaskQueue: getenv("ESSAYGRADER_TEMPORAL_TASK_QUEUE", "essaygrader"),
		PDFCommand:        getenv("ESSAYGRADER_PDF_COMMAND", "weasyprint - -"),
		MaxUploadMB:       getenvInt("ESSAYGRADER_MAX_UPLOAD_MB", 10),
		DataOutRoot:       getenv("ESSAYGRADER_DATA_OUT", "./data/out"),
		LogLevel:          getenv("ESSAYGRADER_LOG_LEVEL", "info"),
		GradeConcurrency:  getenvInt("ESSAYGRADER_GRADE_CONCURRENCY", 4),
	}
}

func (c Config) ModelTimeout() time.Duration {
	if c.ModelTimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.ModelTimeoutSecs) * time.Second
}

func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

// PDFArgv splits PDFCommand on whitespace.
func (c Config) PDFArgv() []string {
	return strings.Fields(c.PDFCommand)
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
