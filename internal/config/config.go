package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`

	// Default summarizer backend; a request may override per job.
	LLMProvider string        `mapstructure:"LLM_PROVIDER"`
	LLMAPIKey   string        `mapstructure:"LLM_API_KEY"`
	LLMBaseURL  string        `mapstructure:"LLM_BASE_URL"`
	LLMModel    string        `mapstructure:"LLM_MODEL"`
	LLMTimeout  time.Duration `mapstructure:"LLM_TIMEOUT"`

	WorkerCount  int `mapstructure:"WORKER_COUNT"`
	JobQueueSize int `mapstructure:"JOB_QUEUE_SIZE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("LLM_PROVIDER", "mock")
	v.SetDefault("LLM_TIMEOUT", "45s")
	v.SetDefault("WORKER_COUNT", 2)
	v.SetDefault("JOB_QUEUE_SIZE", 64)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
