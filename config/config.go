package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	TollTrace TollTraceConfig `yaml:"tolltrace"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type KafkaConfig struct {
	Host                       string `yaml:"host"`
	Port                       int    `yaml:"port"`
	CrossingsObservedTopicName string `yaml:"crossings_observed_topic_name"`
}

type TollTraceConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	// Cooldown between two fresh provider calls for the same booking.
	TrackingCooldownSeconds int `yaml:"tracking_cooldown_seconds"`

	// Flat cost attributed to one genuine provider call, in account currency.
	ProviderCallCost float64 `yaml:"provider_call_cost"`

	// How far back the vehicle search looks in the store before going live.
	SearchLookbackDays int `yaml:"search_lookback_days"`

	JourneyCacheTTLSeconds int `yaml:"journey_cache_ttl_seconds"`

	ProviderBaseURL string `yaml:"provider_base_url"`
	ProviderAPIKey  string `yaml:"provider_api_key"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
