package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-intake/internal/server"
)

const (
	app       = "resume-intake"
	envPrefix = "RESUME_INTAKE"
)

type Config struct {
	Batch   *BatchConfig   `mapstructure:"batch"`
	AI      *AIConfig      `mapstructure:"ai"`
	Storage *StorageConfig `mapstructure:"storage"`
	Server  *ServerConfig  `mapstructure:"server"`
}

type BatchConfig struct {
	GroupSize      int           `mapstructure:"group-size"`
	GroupDelay     time.Duration `mapstructure:"group-delay"`
	MinTextLength  int           `mapstructure:"min-text-length"`
	MaxFileBytes   int64         `mapstructure:"max-file-bytes"`
	ExtractTimeout time.Duration `mapstructure:"extract-timeout"`
}

type AIConfig struct {
	Provider      string        `mapstructure:"provider"`
	ContextBudget int           `mapstructure:"context-budget"`
	SafetyMargin  int           `mapstructure:"safety-margin"`
	Gemini        *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key" json:"-"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Documents *DocumentsConfig `mapstructure:"documents"`
	Blobs     *BlobsConfig     `mapstructure:"blobs"`
}

type DocumentsConfig struct {
	// Driver is one of sqlite, postgres or memory.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn" json:"-"`
}

type BlobsConfig struct {
	// Driver is none or s3.
	Driver        string        `mapstructure:"driver"`
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access-key" json:"-"`
	SecretKey     string        `mapstructure:"secret-key" json:"-"`
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	UseSSL        bool          `mapstructure:"use-ssl"`
	PublicBaseURL string        `mapstructure:"public-base-url"`
	URLTTL        time.Duration `mapstructure:"url-ttl"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	MaxBodyBytes int64  `mapstructure:"max-body-bytes"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-intake screens batches of PDF resumes against a job description with a language model",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults(viper.GetViper())

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("ai.gemini.api-key-file", envPrefix+"_AI_GEMINI_API_KEY_FILE", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-intake.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("batch.group-size", 5)
	v.SetDefault("batch.group-delay", 2*time.Second)
	v.SetDefault("batch.min-text-length", 50)
	v.SetDefault("batch.max-file-bytes", 10<<20)
	v.SetDefault("batch.extract-timeout", 30*time.Second)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.context-budget", 30000)
	v.SetDefault("ai.safety-margin", 1000)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
	v.SetDefault("ai.gemini.timeout", 60*time.Second)

	v.SetDefault("storage.documents.driver", "sqlite")
	v.SetDefault("storage.documents.dsn", app+".db")
	v.SetDefault("storage.blobs.driver", "none")
	v.SetDefault("storage.blobs.endpoint", "")
	v.SetDefault("storage.blobs.access-key", "")
	v.SetDefault("storage.blobs.secret-key", "")
	v.SetDefault("storage.blobs.bucket", "resumes")
	v.SetDefault("storage.blobs.region", "")
	v.SetDefault("storage.blobs.use-ssl", false)
	v.SetDefault("storage.blobs.public-base-url", "")
	v.SetDefault("storage.blobs.url-ttl", 168*time.Hour)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.max-body-bytes", server.DefaultMaxBodyBytes)
}

func initConfig() {
	// version does not need any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every setting has a default, so only an explicitly requested or broken
	// config file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
