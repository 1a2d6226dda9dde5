package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	internal_config "github.com/sendgate/sendgate/internal/config"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/tracing"
)

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:         &internal_config.AppConfig{},
		Logger:            &logger.Config{},
		Tracing:           &tracing.JaegerConfig{},
		DatabaseConfig:    &internal_config.DatabaseConfig{},
		RedisConfig:       &internal_config.RedisConfig{},
		ContentGateConfig: &internal_config.ContentGateConfig{},
		ReputationConfig:  &internal_config.ReputationConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading sendgate config: %v", err)
	}

	return config, nil
}
