package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// ProcessedBy is stamped into dead-letter envelopes.
	ProcessedBy string `yaml:"processed_by"`

	Queue struct {
		Transport         string `yaml:"transport"` // sqs | sql
		SourceURL         string `yaml:"source_url"`
		Region            string `yaml:"region"`
		Endpoint          string `yaml:"endpoint"`
		RoutingAttribute  string `yaml:"routing_attribute"`
		WaitSeconds       int    `yaml:"wait_seconds"`
		VisibilitySeconds int    `yaml:"visibility_seconds"`
		MaxBatch          int    `yaml:"max_batch"`
	} `yaml:"queue"`

	DeadLetter struct {
		Kind    string   `yaml:"kind"` // sqs | kafka | sql
		URL     string   `yaml:"url"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"dead_letter"`

	Store struct {
		Driver         string `yaml:"driver"` // sqlite | pgx
		DSN            string `yaml:"dsn"`
		KeyringAccount string `yaml:"keyring_account"`
	} `yaml:"store"`

	Consumer struct {
		Budget         time.Duration `yaml:"budget"`
		SafetyMargin   time.Duration `yaml:"safety_margin"`
		PollsPerSecond float64       `yaml:"polls_per_second"`
		Instances      int           `yaml:"instances"`
	} `yaml:"consumer"`

	Schedule struct {
		Cron     string        `yaml:"cron"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"schedule"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text | json
	} `yaml:"log"`
}

func Defaults() Config {
	var cfg Config
	cfg.ProcessedBy = "tender-writer"

	cfg.Queue.Transport = "sqs"
	cfg.Queue.Region = "af-south-1"
	cfg.Queue.RoutingAttribute = "MessageGroupId"
	cfg.Queue.WaitSeconds = 2
	cfg.Queue.VisibilitySeconds = 300
	cfg.Queue.MaxBatch = 10

	cfg.DeadLetter.Kind = "sqs"
	cfg.Store.Driver = "sqlite"

	cfg.Consumer.Budget = 14 * time.Minute
	cfg.Consumer.SafetyMargin = 30 * time.Second
	cfg.Consumer.PollsPerSecond = 5
	cfg.Consumer.Instances = 1

	cfg.Schedule.Interval = 5 * time.Minute

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
