package config

import (
	internal_config "github.com/sendgate/sendgate/internal/config"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/tracing"
)

type Config struct {
	AppConfig         *internal_config.AppConfig
	Logger            *logger.Config
	Tracing           *tracing.JaegerConfig
	DatabaseConfig    *internal_config.DatabaseConfig
	RedisConfig       *internal_config.RedisConfig
	ContentGateConfig *internal_config.ContentGateConfig
	ReputationConfig  *internal_config.ReputationConfig
}
