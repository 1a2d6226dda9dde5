package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Reputation monitoring sweep, every hour
	CronScheduleReputationSweep string `env:"CRON_SCHEDULE_REPUTATION_SWEEP" envDefault:"0 0 * * * *"`
}
