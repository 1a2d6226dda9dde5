package config

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"12333"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"SENDGATE_POSTGRES_HOST,required"`
	Port            string `env:"SENDGATE_POSTGRES_PORT,required"`
	User            string `env:"SENDGATE_POSTGRES_USER,required"`
	DBName          string `env:"SENDGATE_POSTGRES_DB_NAME,required"`
	Password        string `env:"SENDGATE_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"SENDGATE_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"SENDGATE_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"SENDGATE_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"SENDGATE_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"SENDGATE_POSTGRES_SSL_MODE" envDefault:"require"`
}

type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

type ContentGateConfig struct {
	RejectionThreshold int `env:"CONTENT_GATE_REJECTION_THRESHOLD" envDefault:"50"`
}

type ReputationConfig struct {
	BounceRateThresholdPct    float64 `env:"REPUTATION_BOUNCE_RATE_THRESHOLD_PCT" envDefault:"5"`
	ComplaintRateThresholdPct float64 `env:"REPUTATION_COMPLAINT_RATE_THRESHOLD_PCT" envDefault:"0.1"`
	WindowDays                int     `env:"REPUTATION_WINDOW_DAYS" envDefault:"7"`
	TenantTimeoutSeconds      int     `env:"REPUTATION_TENANT_TIMEOUT_SECONDS" envDefault:"30"`
}
