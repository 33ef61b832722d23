package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type ReconcileConfig struct {
	MatchThreshold        int `mapstructure:"match_threshold"`
	DuplicateJobThreshold int `mapstructure:"duplicate_job_threshold"`
	EmployeeThreshold     int `mapstructure:"employee_threshold"`
}

type AlertConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
}

type Config struct {
	DatabaseURL string          `mapstructure:"database_url"`
	ServerPort  string          `mapstructure:"server_port"`
	JWTSecret   string          `mapstructure:"jwt_secret"`
	Reconcile   ReconcileConfig `mapstructure:"reconcile"`
	Alert       AlertConfig     `mapstructure:"alert"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Reconcile.MatchThreshold == 0 {
		config.Reconcile.MatchThreshold = 80
	}
	if config.Reconcile.DuplicateJobThreshold == 0 {
		config.Reconcile.DuplicateJobThreshold = 85
	}
	if config.Reconcile.EmployeeThreshold == 0 {
		config.Reconcile.EmployeeThreshold = 70
	}
	if config.Alert.WebhookTimeout == 0 {
		config.Alert.WebhookTimeout = 10 * time.Second
	}

	return &config
}
