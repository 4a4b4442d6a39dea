package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendGenerate = "generate"
	BackendOpenAI   = "openai"

	DefaultInstruction = "Summarize the given regulation. Also, provide your output in bullet points " +
		"and ensure your output is based on the content of this document."
)

type Config struct {
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`

	ScratchDir     string `env:"SCRATCH_DIR"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`

	SummarizerBackend string        `env:"SUMMARIZER_BACKEND" envDefault:"generate"`
	SummarizerURL     string        `env:"SUMMARIZER_URL"     envDefault:"http://localhost:11434/api/generate"`
	SummarizerModel   string        `env:"SUMMARIZER_MODEL"   envDefault:"llama3"`
	SummarizerTimeout time.Duration `env:"SUMMARIZER_TIMEOUT" envDefault:"2m"`
	Instruction       string        `env:"SUMMARY_INSTRUCTION"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	SummaryCacheSize int           `env:"SUMMARY_CACHE_SIZE" envDefault:"0"`
	SummaryCacheTTL  time.Duration `env:"SUMMARY_CACHE_TTL"  envDefault:"1h"`

	ScratchSweepSpec string        `env:"SCRATCH_SWEEP_SPEC" envDefault:"*/15 * * * *"`
	ScratchMaxAge    time.Duration `env:"SCRATCH_MAX_AGE"    envDefault:"1h"`

	TelegramToken string  `env:"TELEGRAM_TOKEN"`
	AllowedUsers  []int64 `env:"ALLOWED_USERS"`
}

// Parse reads the configuration from the environment and validates it.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.ScratchDir = strings.TrimSpace(c.ScratchDir)
	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(os.TempDir(), "pdfsum")
	}

	c.SummarizerBackend = strings.ToLower(strings.TrimSpace(c.SummarizerBackend))
	c.SummarizerURL = strings.TrimSpace(c.SummarizerURL)
	c.SummarizerModel = strings.TrimSpace(c.SummarizerModel)
	c.TelegramToken = strings.TrimSpace(c.TelegramToken)

	c.Instruction = strings.TrimSpace(c.Instruction)
	if c.Instruction == "" {
		c.Instruction = DefaultInstruction
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive (got %d)", c.MaxUploadBytes))
	}

	if c.SummarizerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SUMMARIZER_TIMEOUT must be positive (got %s)", c.SummarizerTimeout))
	}

	if c.SummarizerModel == "" {
		errs = append(errs, errors.New("SUMMARIZER_MODEL is empty"))
	}

	switch c.SummarizerBackend {
	case BackendGenerate:
		if c.SummarizerURL == "" {
			errs = append(errs, errors.New("SUMMARIZER_URL is empty"))
		}
	case BackendOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" && strings.TrimSpace(c.OpenAIBaseURL) == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY or OPENAI_BASE_URL is required for openai backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SUMMARIZER_BACKEND %q", c.SummarizerBackend))
	}

	return errors.Join(errs...)
}
