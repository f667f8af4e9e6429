package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where banter stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// LogFile is an optional path receiving JSON logs in addition to stderr
	LogFile string

	// Generation configuration
	// LLMProvider selects the generation backend: gemini, openai or ollama.
	LLMProvider    string // BANTER_LLM_PROVIDER (default: gemini)
	LLMModel       string // BANTER_LLM_MODEL (default: gemini-2.5-flash)
	GeminiAPIKey   string // BANTER_GEMINI_API_KEY
	OpenAIAPIKey   string // BANTER_OPENAI_API_KEY
	OpenAIBaseURL  string // BANTER_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	OllamaBaseURL  string // BANTER_OLLAMA_BASE_URL (default: http://localhost:11434)
	LLMMaxTokens   int    // BANTER_LLM_MAX_TOKENS (default: 4096)
	LLMMaxInFlight int    // BANTER_LLM_MAX_INFLIGHT (default: 8)

	// Document extraction configuration
	TikaServerURL string        // BANTER_TIKA_URL (default: http://localhost:9998)
	TikaTimeout   time.Duration // BANTER_TIKA_TIMEOUT (default: 30s)

	// Payment configuration (Razorpay)
	RazorpayKeyID     string // BANTER_RAZORPAY_KEY_ID
	RazorpayKeySecret string // BANTER_RAZORPAY_KEY_SECRET
	// OrderAmount is the pro upgrade price in the currency's smallest unit.
	OrderAmount   int64  // BANTER_ORDER_AMOUNT (default: 49900)
	OrderCurrency string // BANTER_ORDER_CURRENCY (default: INR)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsGenerationEnabled returns true if at least one generation backend is configured.
func (p *Profile) IsGenerationEnabled() bool {
	return p.GeminiAPIKey != "" || p.OpenAIAPIKey != "" || p.OllamaBaseURL != ""
}

// IsPaymentEnabled returns true if the payment gateway credentials are configured.
func (p *Profile) IsPaymentEnabled() bool {
	return p.RazorpayKeyID != "" && p.RazorpayKeySecret != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from BANTER_* environment variables.
// Values already set on the profile (e.g. by flags) take precedence.
func (p *Profile) FromEnv() {
	if p.Mode == "" {
		p.Mode = getEnvOrDefault("BANTER_MODE", "dev")
	}
	if p.Addr == "" {
		p.Addr = os.Getenv("BANTER_ADDR")
	}
	if p.Port == 0 {
		if port, err := strconv.Atoi(os.Getenv("BANTER_PORT")); err == nil {
			p.Port = port
		}
	}
	if p.Data == "" {
		p.Data = os.Getenv("BANTER_DATA")
	}
	if p.DSN == "" {
		p.DSN = os.Getenv("BANTER_DSN")
	}
	if p.Driver == "" {
		p.Driver = getEnvOrDefault("BANTER_DRIVER", "sqlite")
	}
	if p.LogFile == "" {
		p.LogFile = os.Getenv("BANTER_LOG_FILE")
	}

	p.LLMProvider = getEnvOrDefault("BANTER_LLM_PROVIDER", "gemini")
	p.LLMModel = getEnvOrDefault("BANTER_LLM_MODEL", "gemini-2.5-flash")
	p.GeminiAPIKey = os.Getenv("BANTER_GEMINI_API_KEY")
	p.OpenAIAPIKey = os.Getenv("BANTER_OPENAI_API_KEY")
	p.OpenAIBaseURL = getEnvOrDefault("BANTER_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.OllamaBaseURL = getEnvOrDefault("BANTER_OLLAMA_BASE_URL", "http://localhost:11434")
	if v, err := strconv.Atoi(os.Getenv("BANTER_LLM_MAX_TOKENS")); err == nil && v > 0 {
		p.LLMMaxTokens = v
	} else if p.LLMMaxTokens == 0 {
		p.LLMMaxTokens = 4096
	}
	if v, err := strconv.Atoi(os.Getenv("BANTER_LLM_MAX_INFLIGHT")); err == nil && v > 0 {
		p.LLMMaxInFlight = v
	} else if p.LLMMaxInFlight == 0 {
		p.LLMMaxInFlight = 8
	}

	p.TikaServerURL = getEnvOrDefault("BANTER_TIKA_URL", "http://localhost:9998")
	if d, err := time.ParseDuration(os.Getenv("BANTER_TIKA_TIMEOUT")); err == nil {
		p.TikaTimeout = d
	} else if p.TikaTimeout == 0 {
		p.TikaTimeout = 30 * time.Second
	}

	p.RazorpayKeyID = os.Getenv("BANTER_RAZORPAY_KEY_ID")
	p.RazorpayKeySecret = os.Getenv("BANTER_RAZORPAY_KEY_SECRET")
	if v, err := strconv.ParseInt(os.Getenv("BANTER_ORDER_AMOUNT"), 10, 64); err == nil && v > 0 {
		p.OrderAmount = v
	} else if p.OrderAmount == 0 {
		p.OrderAmount = 49900
	}
	if p.OrderCurrency == "" {
		p.OrderCurrency = getEnvOrDefault("BANTER_ORDER_CURRENCY", "INR")
	}
}

// Validate normalizes the profile and fills derived defaults.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}
	if p.Port == 0 {
		p.Port = 5000
	}
	if p.Data == "" {
		if p.Mode == "prod" {
			p.Data = "/var/opt/banter"
		} else {
			p.Data = "."
		}
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrapf(err, "invalid data directory %q", p.Data)
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			dbFile := fmt.Sprintf("banter_%s.db", p.Mode)
			p.DSN = filepath.Join(p.Data, dbFile)
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("DSN is required for postgres driver")
		}
	default:
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	return nil
}

func checkDataDir(dataDir string) (string, error) {
	dataDir = strings.TrimRight(filepath.Clean(dataDir), "/")
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}
	if fi, err := os.Stat(dataDir); err != nil || !fi.IsDir() {
		return "", errors.Errorf("%s is not a directory", dataDir)
	}
	return dataDir, nil
}
