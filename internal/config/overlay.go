// config/overlay.go
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OverlayEnv applies environment overrides on top of the file config.
// getenv is usually os.Getenv.
func OverlayEnv(cfg *Config, getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&cfg.Queue.SourceURL, "SOURCE_QUEUE_URL")
	set(&cfg.Queue.Transport, "QUEUE_TRANSPORT")
	set(&cfg.Queue.Region, "AWS_REGION")
	set(&cfg.Queue.Endpoint, "SQS_ENDPOINT")
	set(&cfg.DeadLetter.URL, "DEAD_LETTER_QUEUE_URL")
	set(&cfg.DeadLetter.Kind, "DEAD_LETTER_KIND")
	set(&cfg.DeadLetter.Topic, "DEAD_LETTER_TOPIC")
	set(&cfg.Store.DSN, "DB_CONNECTION_STRING")
	set(&cfg.Store.Driver, "DB_DRIVER")
	set(&cfg.Store.KeyringAccount, "DB_KEYRING_ACCOUNT")
	set(&cfg.HTTP.Addr, "HTTP_ADDR")
	set(&cfg.Log.Level, "LOG_LEVEL")
	set(&cfg.ProcessedBy, "PROCESSED_BY")
	set(&cfg.Schedule.Cron, "DRAIN_CRON")

	if v := strings.TrimSpace(getenv("KAFKA_BROKERS")); v != "" {
		cfg.DeadLetter.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.DeadLetter.Brokers = append(cfg.DeadLetter.Brokers, b)
			}
		}
	}
	if v := strings.TrimSpace(getenv("DRAIN_BUDGET")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DRAIN_BUDGET: %w", err)
		}
		cfg.Consumer.Budget = d
	}
	if v := strings.TrimSpace(getenv("CONSUMER_INSTANCES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONSUMER_INSTANCES: %w", err)
		}
		cfg.Consumer.Instances = n
	}
	return nil
}
