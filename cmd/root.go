package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/skills-extractor/internal/server"
)

const (
	app = "skills-extractor"
)

type Config struct {
	Provider   string           `mapstructure:"provider"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Store      StoreConfig      `mapstructure:"store"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Timeouts   TimeoutsConfig   `mapstructure:"timeouts"`
	HTTP       HTTPConfig       `mapstructure:"http"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type OpenRouterConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
}

type StorageConfig struct {
	// Backend is supabase or filesystem.
	Backend        string `mapstructure:"backend"`
	Bucket         string `mapstructure:"bucket"`
	Root           string `mapstructure:"root"`
	SupabaseURL    string `mapstructure:"supabase-url"`
	ServiceRoleKey string `mapstructure:"service-role-key"`
	MaxBytes       int64  `mapstructure:"max-bytes"`
}

type StoreConfig struct {
	// Driver is postgres or sqlite.
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database-url"`
	SQLitePath  string `mapstructure:"sqlite-path"`
}

type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	LockTTL time.Duration `mapstructure:"lock-ttl"`
}

type ExtractionConfig struct {
	MaxChars          int           `mapstructure:"max-chars"`
	ClaimTTL          time.Duration `mapstructure:"claim-ttl"`
	StrictPersistence bool          `mapstructure:"strict-persistence"`
	MaxLogLength      int           `mapstructure:"max-log-length"`
}

type TimeoutsConfig struct {
	Fetch    time.Duration `mapstructure:"fetch"`
	Generate time.Duration `mapstructure:"generate"`
	Store    time.Duration `mapstructure:"store"`
}

type HTTPConfig struct {
	Port          string `mapstructure:"port"`
	server.Config `mapstructure:",squash"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skills-extractor pulls structured skills out of uploaded resumes with an LLM",
	}

	envBindings = map[string]string{
		"gemini.api-key":           "GEMINI_API_KEY",
		"gemini.api-key-file":      "GEMINI_API_KEY_FILE",
		"openrouter.api-key":       "OPENROUTER_API_KEY",
		"storage.supabase-url":     "SUPABASE_URL",
		"storage.service-role-key": "SUPABASE_SERVICE_ROLE_KEY",
		"store.database-url":       "DATABASE_URL",
		"redis.url":                "REDIS_URL",
		"http.port":                "PORT",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skills-extractor.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	if err := configure(viper.GetViper()); err != nil {
		log.Fatalf("configuring environment bindings: %v", err)
	}
}

// configure sets defaults and environment bindings on v.
func configure(v *viper.Viper) error {
	v.SetDefault("provider", "gemini")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("storage.backend", "supabase")
	v.SetDefault("storage.bucket", "resumes")
	v.SetDefault("storage.root", ".")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite-path", app+".db")
	v.SetDefault("redis.lock-ttl", "10m")
	v.SetDefault("extraction.max-chars", 8000)
	v.SetDefault("extraction.claim-ttl", "10m")
	v.SetDefault("extraction.strict-persistence", false)
	v.SetDefault("extraction.max-log-length", 200)
	v.SetDefault("timeouts.fetch", "30s")
	v.SetDefault("timeouts.generate", "90s")
	v.SetDefault("timeouts.store", "10s")
	v.SetDefault("http.port", "8080")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s environment variable: %w", env, err)
		}
	}
	return nil
}

func initConfig() {
	// .env is a convenience for local runs; real deployments set the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// A config file is optional unless one was named explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	config.Provider = strings.ToLower(strings.TrimSpace(config.Provider))
	if config.HTTP.Addr == "" {
		config.HTTP.Addr = ":" + strings.TrimPrefix(strings.TrimSpace(config.HTTP.Port), ":")
	}

	return config, nil
}
