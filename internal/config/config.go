// Package config loads the bot controller's configuration from environment
// variables (and an optional .env file), validating the result before the
// process starts doing anything with it.
package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// PostgresConfig describes the event store's backing database.
type PostgresConfig struct {
	Host               string `mapstructure:"HOST" validate:"required"`
	Port               int    `mapstructure:"PORT" validate:"required"`
	DBName             string `mapstructure:"DB_NAME" validate:"required"`
	User               string `mapstructure:"USER" validate:"required"`
	Password           string `mapstructure:"PASSWORD"`
	SSLMode            string `mapstructure:"SSL_MODE"`
	MaxOpenConnections int    `mapstructure:"MAX_OPEN_CONNECTION"`
	MaxIdleConnections int    `mapstructure:"MAX_IDLE_CONNECTION"`
}

// RedisConfig describes the per-bot command channel connection.
type RedisConfig struct {
	Host     string `mapstructure:"HOST" validate:"required"`
	Port     int    `mapstructure:"PORT" validate:"required"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// AutoLeaveConfig mirrors the defaults from the automatic-leave policy.
type AutoLeaveConfig struct {
	SilenceTimeoutSeconds                int  `mapstructure:"SILENCE_TIMEOUT_SECONDS"`
	SilenceActivateAfterSeconds          int  `mapstructure:"SILENCE_ACTIVATE_AFTER_SECONDS"`
	OnlyParticipantInMeetingTimeoutSecs  int  `mapstructure:"ONLY_PARTICIPANT_TIMEOUT_SECONDS"`
	WaitForHostToStartMeetingTimeoutSecs int  `mapstructure:"WAIT_FOR_HOST_TIMEOUT_SECONDS"`
	WaitingRoomTimeoutSeconds            int  `mapstructure:"WAITING_ROOM_TIMEOUT_SECONDS"`
	MaxUptimeSeconds                     *int `mapstructure:"MAX_UPTIME_SECONDS"`
}

// AppConfig is the fully validated configuration for a bot-controller
// process (cmd/botcontroller) or the scheduler (cmd/scheduler).
type AppConfig struct {
	Name     string `mapstructure:"SERVICE_NAME" validate:"required"`
	Version  string `mapstructure:"VERSION" validate:"required"`
	Host     string `mapstructure:"HOST" validate:"required"`
	Port     int    `mapstructure:"PORT" validate:"required"`
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"required"`
	LogFile  string `mapstructure:"LOG_FILE"`

	Postgres PostgresConfig `mapstructure:"POSTGRES" validate:"required"`
	Redis    RedisConfig    `mapstructure:"REDIS" validate:"required"`

	AutoLeave AutoLeaveConfig `mapstructure:"AUTO_LEAVE"`

	// CreditsBillingEnabled gates the §4.12 terminal-state charge.
	CreditsBillingEnabled bool `mapstructure:"CREDITS_BILLING_ENABLED"`
	// CentiCreditsPerMinute is the charge rate applied to a bot's recorded
	// uptime when it reaches a terminal state.
	CentiCreditsPerMinute int64 `mapstructure:"CENTICREDITS_PER_MINUTE"`

	// WebhookMaxAttempts is loaded from the environment but not read by
	// internal/webhook, whose Dispatcher always makes up to
	// maxDeliveryAttempts (3) delivery tries.
	WebhookMaxAttempts int `mapstructure:"WEBHOOK_MAX_ATTEMPTS"`

	// SchedulerPollInterval is how often cmd/scheduler looks for due bots.
	SchedulerPollInterval time.Duration `mapstructure:"SCHEDULER_POLL_INTERVAL"`

	// CleanupWatchdogTimeout is the hard-kill timeout after cleanup begins.
	CleanupWatchdogTimeout time.Duration `mapstructure:"CLEANUP_WATCHDOG_TIMEOUT"`
	// PipelineEOSTimeout is loaded from the environment but not read by
	// internal/pipeline, whose Cleanup always waits its fixed eosTimeout
	// (5 min) for ffmpeg to exit before killing it.
	PipelineEOSTimeout time.Duration `mapstructure:"PIPELINE_EOS_TIMEOUT"`
}

// Init reads configuration from the environment (and ENV_PATH, if set, as a
// dotenv-style file), applying defaults before validation.
func Init() (*viper.Viper, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		v.SetConfigFile(path)
	}
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: falling back to environment variables only: %v", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "meetbot-controller")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 9090)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("POSTGRES__HOST", "localhost")
	v.SetDefault("POSTGRES__PORT", 5432)
	v.SetDefault("POSTGRES__DB_NAME", "meetbot")
	v.SetDefault("POSTGRES__USER", "meetbot")
	v.SetDefault("POSTGRES__PASSWORD", "")
	v.SetDefault("POSTGRES__SSL_MODE", "disable")
	v.SetDefault("POSTGRES__MAX_OPEN_CONNECTION", 10)
	v.SetDefault("POSTGRES__MAX_IDLE_CONNECTION", 10)

	v.SetDefault("REDIS__HOST", "localhost")
	v.SetDefault("REDIS__PORT", 6379)
	v.SetDefault("REDIS__DB", 0)

	v.SetDefault("AUTO_LEAVE__SILENCE_TIMEOUT_SECONDS", 600)
	v.SetDefault("AUTO_LEAVE__SILENCE_ACTIVATE_AFTER_SECONDS", 1200)
	v.SetDefault("AUTO_LEAVE__ONLY_PARTICIPANT_TIMEOUT_SECONDS", 60)
	v.SetDefault("AUTO_LEAVE__WAIT_FOR_HOST_TIMEOUT_SECONDS", 600)
	v.SetDefault("AUTO_LEAVE__WAITING_ROOM_TIMEOUT_SECONDS", 900)

	v.SetDefault("CREDITS_BILLING_ENABLED", false)
	v.SetDefault("CENTICREDITS_PER_MINUTE", 100)
	v.SetDefault("WEBHOOK_MAX_ATTEMPTS", 3)
	v.SetDefault("SCHEDULER_POLL_INTERVAL", "5s")
	v.SetDefault("CLEANUP_WATCHDOG_TIMEOUT", "10m")
	v.SetDefault("PIPELINE_EOS_TIMEOUT", "5m")
}

// Load unmarshals and validates the AppConfig from an initialized viper
// instance.
func Load(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
