package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the service needs at startup. Values come from
// environment variables (MATCHING_HEARTBEAT_THRESHOLD, LIFECYCLE_SWEEP_INTERVAL, ...)
// with defaults suitable for production.
type Config struct {
	Server    Server
	Database  Database
	Redis     Redis
	AMQP      AMQP
	Matching  Matching
	Lifecycle Lifecycle
	RateLimit RateLimit
	Log       Log
	Admin     Admin
}

type Server struct {
	Port string
}

type Database struct {
	URL string
}

type Redis struct {
	URL string
}

type AMQP struct {
	URL      string
	Exchange string
}

// Matching governs candidate selection and notification timing.
type Matching struct {
	// HeartbeatThreshold is the maximum heartbeat age for a participant to
	// count as present. Deliberately generous relative to the client
	// heartbeat interval to tolerate background-tab throttling and mobile
	// suspension; a stale candidate simply fails to answer.
	HeartbeatThreshold time.Duration `mapstructure:"heartbeat_threshold"`
	// FavoriteHeadStart is how long favorites get before the request fans
	// out to the remaining candidates.
	FavoriteHeadStart time.Duration `mapstructure:"favorite_head_start"`
	// EscalationDelay is how long an unmatched request waits before the
	// single re-notification cycle.
	EscalationDelay time.Duration `mapstructure:"escalation_delay"`
}

// Lifecycle governs the periodic sweep over active sessions.
type Lifecycle struct {
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	NoMessageCutoff   time.Duration `mapstructure:"no_message_cutoff"`
	InactivityWarning time.Duration `mapstructure:"inactivity_warning"`
	AutoCloseGrace    time.Duration `mapstructure:"auto_close_grace"`
	StaleCutoff       time.Duration `mapstructure:"stale_cutoff"`
}

// RateLimit bounds how often a participant may enter the requesting state.
// Counters live in the shared cache so all API instances see the same window.
type RateLimit struct {
	Window time.Duration
	Max    int64
}

type Log struct {
	Level string
}

type Admin struct {
	Token string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "support.notifications")

	v.SetDefault("matching.heartbeat_threshold", time.Hour)
	v.SetDefault("matching.favorite_head_start", 45*time.Second)
	v.SetDefault("matching.escalation_delay", 2*time.Minute)

	v.SetDefault("lifecycle.sweep_interval", 30*time.Second)
	v.SetDefault("lifecycle.no_message_cutoff", 10*time.Minute)
	v.SetDefault("lifecycle.inactivity_warning", 15*time.Minute)
	v.SetDefault("lifecycle.auto_close_grace", 5*time.Minute)
	v.SetDefault("lifecycle.stale_cutoff", 30*time.Minute)

	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.max", int64(5))

	v.SetDefault("log.level", "info")
	v.SetDefault("admin.token", "")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
