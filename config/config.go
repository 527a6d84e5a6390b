package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Backend     BackendConfig     `yaml:"backend"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	ServiceDesk ServiceDeskConfig `yaml:"servicedesk"`
}

type BackendConfig struct {
	// Пустой BaseURL включает dev-режим с fake-бэкендом.
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	TokenCookieName string `yaml:"token_cookie_name"`
	// Токен фоновых вызовов (рефрешер работает без пользовательской куки).
	ServiceToken string `yaml:"service_token"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type KafkaConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	RequestUpdatedTopicName string `yaml:"request_updated_topic_name"`
}

type ServiceDeskConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	SnapshotTTLSeconds     int `yaml:"snapshot_ttl_seconds"`
	RefreshIntervalSeconds int `yaml:"refresh_interval_seconds"`
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
