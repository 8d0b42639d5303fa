package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type FCMConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	ServerKey string `mapstructure:"server_key"`
}

type APNSConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	BundleID  string        `mapstructure:"bundle_id"`
	AuthToken string        `mapstructure:"auth_token"`
	Expiry    time.Duration `mapstructure:"expiry"`
}

type PushConfig struct {
	Recipient string     `mapstructure:"recipient"`
	FCM       FCMConfig  `mapstructure:"fcm"`
	APNS      APNSConfig `mapstructure:"apns"`
}

type Config struct {
	DatabaseURL  string     `mapstructure:"database_url"`
	ServerPort   string     `mapstructure:"server_port"`
	ButtonSecret string     `mapstructure:"button_secret"`
	JWTSecret    string     `mapstructure:"jwt_secret"`
	Push         PushConfig `mapstructure:"push"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "9010"
	}

	if config.ButtonSecret == "" {
		log.Fatal("Button secret must be set in the config file")
	}
	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.Push.Recipient == "" {
		config.Push.Recipient = "operator"
	}
	if config.Push.FCM.Endpoint == "" {
		config.Push.FCM.Endpoint = "https://fcm.googleapis.com/fcm/send"
	}
	if config.Push.APNS.Endpoint == "" {
		config.Push.APNS.Endpoint = "https://api.push.apple.com"
	}
	if config.Push.APNS.Expiry == 0 {
		config.Push.APNS.Expiry = time.Hour
	}

	return &config
}
