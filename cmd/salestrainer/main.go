package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/shaf-aston/salestrainer/internal/api"
	"github.com/shaf-aston/salestrainer/internal/config"
	"github.com/shaf-aston/salestrainer/internal/genai"
	"github.com/shaf-aston/salestrainer/internal/nlu"
	"github.com/shaf-aston/salestrainer/internal/prompt"
	"github.com/shaf-aston/salestrainer/internal/session"
	"github.com/shaf-aston/salestrainer/internal/signals"
)

// Default configuration constants
const (
	// DefaultConfigDir is the default directory holding the YAML
	// configuration documents.
	DefaultConfigDir = "config"
	// DefaultAPIAddr is the default HTTP listen address.
	DefaultAPIAddr = ":8080"
)

// envConfig holds environment configuration.
type envConfig struct {
	ConfigDir   string
	APIAddr     string
	OpenAIKey   string
	OpenAIModel string
	Temperature string
	MaxTokens   string
	LogLevel    string
}

func main() {
	cfg := loadEnvironmentConfig()
	initializeLogger(cfg.LogLevel)

	configDir := flag.String("config-dir", cfg.ConfigDir, "directory containing signals.yaml, flows.yaml, products.yaml")
	apiAddr := flag.String("addr", cfg.APIAddr, "HTTP listen address")
	model := flag.String("model", cfg.OpenAIModel, "chat model to use for generation")
	flag.Parse()

	loaded, err := config.Load(*configDir)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err, "dir", *configDir)
		os.Exit(1)
	}

	genaiOpts, err := genaiOptions(cfg, *model)
	if err != nil {
		slog.Error("Invalid generation parameters", "error", err)
		os.Exit(1)
	}
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		slog.Error("Failed to initialize GenAI client", "error", err)
		os.Exit(1)
	}

	matcher := signals.NewMatcher()
	analyzer := nlu.NewAnalyzer(loaded.Catalog, matcher)
	classifier := nlu.NewObjectionClassifier(loaded.Catalog, matcher)
	assembler := prompt.NewAssembler(loaded.Catalog, matcher, analyzer, classifier)
	sessions := session.NewManager(loaded, matcher, analyzer, classifier, assembler, client)

	server := api.NewServer(sessions)
	slog.Info("Bootstrapping salestrainer", "addr", *apiAddr, "configDir", *configDir)
	if err := server.Start(*apiAddr); err != nil {
		slog.Error("salestrainer failed to run", "error", err)
		os.Exit(1)
	}
}

// genaiOptions assembles the GenAI client options from the environment
// configuration and the resolved model flag. Malformed numeric values are
// a startup failure, never a silent fallback to the defaults.
func genaiOptions(cfg envConfig, model string) ([]genai.Option, error) {
	opts := []genai.Option{}
	if cfg.OpenAIKey != "" {
		opts = append(opts, genai.WithAPIKey(cfg.OpenAIKey))
	}
	if model != "" {
		opts = append(opts, genai.WithModel(model))
	}
	if cfg.Temperature != "" {
		temperature, err := strconv.ParseFloat(cfg.Temperature, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OPENAI_TEMPERATURE %q: %w", cfg.Temperature, err)
		}
		opts = append(opts, genai.WithTemperature(temperature))
	}
	if cfg.MaxTokens != "" {
		maxTokens, err := strconv.ParseInt(cfg.MaxTokens, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OPENAI_MAX_TOKENS %q: %w", cfg.MaxTokens, err)
		}
		opts = append(opts, genai.WithMaxTokens(maxTokens))
	}
	return opts, nil
}

// initializeLogger sets up structured logging at the configured level.
func initializeLogger(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file.
func loadEnvironmentConfig() envConfig {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg := envConfig{
		ConfigDir:   os.Getenv("SALESTRAINER_CONFIG_DIR"),
		APIAddr:     os.Getenv("API_ADDR"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel: os.Getenv("OPENAI_MODEL"),
		Temperature: os.Getenv("OPENAI_TEMPERATURE"),
		MaxTokens:   os.Getenv("OPENAI_MAX_TOKENS"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = DefaultConfigDir
	}
	if cfg.APIAddr == "" {
		cfg.APIAddr = DefaultAPIAddr
	}
	return cfg
}
