package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds every error into one, nil when the config is usable.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

// NormalizeAndValidate returns a normalized copy and everything wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	lower := func(s *string) { *s = strings.ToLower(strings.TrimSpace(*s)) }
	lower(&out.Queue.Transport)
	lower(&out.DeadLetter.Kind)
	lower(&out.Store.Driver)
	lower(&out.Log.Level)
	lower(&out.Log.Format)
	out.Queue.SourceURL = strings.TrimSpace(out.Queue.SourceURL)
	out.DeadLetter.URL = strings.TrimSpace(out.DeadLetter.URL)
	out.Store.DSN = strings.TrimSpace(out.Store.DSN)

	// ---- required addresses ----

	if out.Queue.SourceURL == "" {
		res.addErr("queue.source_url is required (or SOURCE_QUEUE_URL)")
	}
	switch out.DeadLetter.Kind {
	case "sqs", "sql":
		if out.DeadLetter.URL == "" {
			res.addErr("dead_letter.url is required (or DEAD_LETTER_QUEUE_URL)")
		}
	case "kafka":
		if len(out.DeadLetter.Brokers) == 0 {
			res.addErr("dead_letter.brokers is required when dead_letter.kind=kafka")
		}
		if strings.TrimSpace(out.DeadLetter.Topic) == "" {
			res.addErr("dead_letter.topic is required when dead_letter.kind=kafka")
		}
	default:
		res.addErr("dead_letter.kind must be sqs, kafka or sql (got %q)", out.DeadLetter.Kind)
	}
	if out.Store.DSN == "" {
		res.addErr("store.dsn is required (or DB_CONNECTION_STRING)")
	}

	switch out.Queue.Transport {
	case "sqs", "sql":
	default:
		res.addErr("queue.transport must be sqs or sql (got %q)", out.Queue.Transport)
	}
	switch out.Store.Driver {
	case "sqlite", "pgx":
	default:
		res.addErr("store.driver must be sqlite or pgx (got %q)", out.Store.Driver)
	}
	if out.Queue.Transport == "sql" && out.DeadLetter.Kind == "sql" && out.Queue.SourceURL == out.DeadLetter.URL {
		res.addErr("dead_letter.url must differ from queue.source_url")
	}

	// ---- polling sanity ----

	if out.Queue.MaxBatch <= 0 || out.Queue.MaxBatch > 10 {
		res.addErr("queue.max_batch must be 1..10")
	}
	if out.Queue.WaitSeconds < 0 || out.Queue.WaitSeconds > 20 {
		res.addErr("queue.wait_seconds must be 0..20")
	}
	if out.Queue.VisibilitySeconds <= 0 {
		res.addErr("queue.visibility_seconds must be > 0")
	}
	if out.Consumer.Budget <= 0 {
		res.addErr("consumer.budget must be > 0")
	}
	if out.Consumer.SafetyMargin < 0 {
		res.addErr("consumer.safety_margin must be >= 0")
	}
	if out.Consumer.Budget > 0 && out.Consumer.SafetyMargin >= out.Consumer.Budget {
		res.addErr("consumer.safety_margin (%s) must be below consumer.budget (%s)", out.Consumer.SafetyMargin, out.Consumer.Budget)
	}
	wait := time.Duration(out.Queue.WaitSeconds) * time.Second
	if out.Consumer.SafetyMargin < wait {
		res.addWarn("consumer.safety_margin (%s) is shorter than queue.wait_seconds; a poll may overrun the budget.", out.Consumer.SafetyMargin)
	}
	if vis := time.Duration(out.Queue.VisibilitySeconds) * time.Second; vis < out.Consumer.SafetyMargin {
		res.addWarn("queue.visibility_seconds is below consumer.safety_margin; in-flight messages may be redelivered.")
	}
	if out.Consumer.Instances <= 0 {
		res.addErr("consumer.instances must be > 0")
	}
	if out.Consumer.PollsPerSecond < 0 {
		res.addErr("consumer.polls_per_second must be >= 0")
	}

	// ---- schedule ----

	if c := strings.TrimSpace(out.Schedule.Cron); c != "" {
		if !gronx.IsValid(c) {
			res.addErr("schedule.cron %q is not a valid cron expression", c)
		}
	} else if out.Schedule.Interval <= 0 {
		res.addErr("schedule.interval must be > 0 when schedule.cron is empty")
	}

	switch out.Log.Format {
	case "text", "json":
	default:
		res.addWarn("log.format %q is unknown; using text.", out.Log.Format)
		out.Log.Format = "text"
	}
	if strings.TrimSpace(out.ProcessedBy) == "" {
		res.addWarn("processed_by is empty; dead letters will not name their writer.")
	}

	return out, res
}
