package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Settings configures the process around the selection engine: where the
// ledger lives, which feed to read, and where selections are handed off.
type Settings struct {
	ConstraintsPath string `env:"STORYBOT_CONFIG" envDefault:"config.yaml"`

	// Ledger
	LedgerBackend   string `env:"LEDGER_BACKEND" envDefault:"file"`
	LedgerSource    string `env:"LEDGER_SOURCE" envDefault:"reddit"`
	LedgerDir       string `env:"LEDGER_DIR" envDefault:"data/ledger"`
	LedgerSQLite    string `env:"LEDGER_SQLITE_PATH" envDefault:"data/ledger.db"`
	LedgerKeyPrefix string `env:"LEDGER_KEY_PREFIX" envDefault:"storybot:ledger"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASS"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`

	// Feed
	FeedKind      string `env:"FEED_KIND" envDefault:"reddit"`
	RedditBaseURL string `env:"REDDIT_BASE_URL" envDefault:"https://www.reddit.com"`
	UserAgent     string `env:"REDDIT_USER_AGENT" envDefault:"storybot/1.0"`
	ExtractFull   bool   `env:"RSS_EXTRACT_CONTENT" envDefault:"false"`

	// Handoff
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	SelectionTopic  string   `env:"KAFKA_SELECTION_TOPIC" envDefault:"storybot.selections"`
	RunRequestTopic string   `env:"KAFKA_RUN_TOPIC" envDefault:"storybot.run-requests"`
	KafkaGroupID    string   `env:"KAFKA_GROUP_ID" envDefault:"storybot"`
	S3Bucket        string   `env:"S3_BUCKET"`
	S3Region        string   `env:"S3_REGION"`
	S3Profile       string   `env:"S3_PROFILE"`
	S3Prefix        string   `env:"S3_PREFIX"`
	S3UsePathStyle  bool     `env:"S3_USE_PATH_STYLE" envDefault:"false"`

	// API
	Port         string `env:"PORT" envDefault:"8080"`
	CronSchedule string `env:"CRON_SCHEDULE"`
	APIURL       string `env:"STORYBOT_URL" envDefault:"http://localhost:8080"`
}

// LoadSettings reads Settings from the environment
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	switch s.LedgerBackend {
	case "file", "sqlite", "redis":
	default:
		return Settings{}, &ConfigurationError{Problems: []string{fmt.Sprintf("unknown LEDGER_BACKEND %q", s.LedgerBackend)}}
	}
	switch s.FeedKind {
	case "reddit", "rss":
	default:
		return Settings{}, &ConfigurationError{Problems: []string{fmt.Sprintf("unknown FEED_KIND %q", s.FeedKind)}}
	}
	return s, nil
}

// GetEnvOrDefault returns the environment value for key or defaultVal when unset
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
