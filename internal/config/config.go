// Package config resolves run settings from defaults, an optional TOML file,
// OUTREACH_* environment variables and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/multi-sender-outreach/internal/compose"
	"github.com/shpitdev/multi-sender-outreach/internal/outreach"
	"github.com/shpitdev/multi-sender-outreach/internal/pacing"
	"github.com/shpitdev/multi-sender-outreach/internal/recipients"
	"github.com/shpitdev/multi-sender-outreach/internal/transport"
)

// ErrInvalid marks a configuration that cannot start a run.
var ErrInvalid = errors.New("invalid configuration")

const (
	StrategyTemplate = "template"
	StrategyGemini   = "gemini"
)

// Config holds every setting of a run.
type Config struct {
	SendersPath    string
	RecipientsPath string
	LedgerPath     string

	MinDelay      time.Duration
	MaxDelay      time.Duration
	PerAccountCap int
	SendsPerHour  int

	SubjectLine   string
	Signature     string
	DedupeEnabled bool

	Mode            string
	TestAddress     string
	ValidationSends int

	Strategy  string
	Transport string

	SMTPHost      string
	SMTPPort      int
	SMTPTimeout   time.Duration
	ResendBaseURL string

	// Seed fixes sender selection and delay draws. 0 means time-seeded.
	Seed int64

	Columns recipients.Columns

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GeminiTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		SendersPath:    "senders.json",
		RecipientsPath: "recipients.csv",
		LedgerPath:     "sent_log.csv",
		MinDelay:       pacing.DefaultMin,
		MaxDelay:       pacing.DefaultMax,
		PerAccountCap:  outreach.DefaultPerAccountCap,
		SubjectLine:    compose.DefaultSubject,
		Signature:      compose.DefaultSignature,
		DedupeEnabled:  true,
		Mode:           string(outreach.ModeFull),
		Strategy:       StrategyTemplate,
		Transport:      string(transport.KindSMTP),
		SMTPHost:       transport.DefaultSMTPHost,
		SMTPPort:       transport.DefaultSMTPPort,
		SMTPTimeout:    30 * time.Second,
		Columns:        recipients.DefaultColumns(),
		GeminiTimeout:  60 * time.Second,
	}
}

// Validate checks the configuration and canonicalizes enumerated values in place.
func (c *Config) Validate() error {
	c.SendersPath = strings.TrimSpace(c.SendersPath)
	c.RecipientsPath = strings.TrimSpace(c.RecipientsPath)
	c.LedgerPath = strings.TrimSpace(c.LedgerPath)
	c.TestAddress = strings.TrimSpace(c.TestAddress)

	if c.SendersPath == "" {
		return invalid("senders path is required")
	}
	if c.RecipientsPath == "" {
		return invalid("recipients path is required")
	}
	if c.LedgerPath == "" {
		return invalid("ledger path is required")
	}
	if c.MinDelay < 0 || c.MaxDelay < 0 {
		return invalid("delays must be non-negative")
	}
	if c.MinDelay > c.MaxDelay {
		return invalid("min delay %s exceeds max delay %s", c.MinDelay, c.MaxDelay)
	}
	if c.PerAccountCap <= 0 {
		return invalid("per-account cap must be > 0 (got %d)", c.PerAccountCap)
	}
	if c.SendsPerHour < 0 {
		return invalid("sends per hour must be >= 0 (got %d)", c.SendsPerHour)
	}

	mode, err := outreach.ParseMode(c.Mode)
	if err != nil {
		return invalid("%s", err)
	}
	c.Mode = string(mode)
	if mode == outreach.ModeValidation && c.TestAddress == "" {
		return invalid("validation mode requires a test address")
	}
	if c.ValidationSends < 0 {
		return invalid("validation sends must be >= 0 (got %d)", c.ValidationSends)
	}

	switch s := strings.ToLower(strings.TrimSpace(c.Strategy)); s {
	case "", StrategyTemplate:
		c.Strategy = StrategyTemplate
	case StrategyGemini, "llm":
		c.Strategy = StrategyGemini
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return invalid("GEMINI_API_KEY is required for the gemini strategy")
		}
		if strings.TrimSpace(c.GeminiModel) == "" {
			return invalid("GEMINI_MODEL is required for the gemini strategy")
		}
	default:
		return invalid("unknown strategy %q (want template or gemini)", c.Strategy)
	}

	kind, err := transport.NormalizeKind(c.Transport)
	if err != nil {
		return invalid("%s", err)
	}
	c.Transport = string(kind)
	if kind == transport.KindSMTP && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		return invalid("smtp port out of range (got %d)", c.SMTPPort)
	}

	c.Columns = c.Columns.Merge(recipients.DefaultColumns())
	return nil
}

// Masked returns a copy that is safe to log.
func (c Config) Masked() Config {
	if c.GeminiAPIKey != "" {
		c.GeminiAPIKey = "*****"
	}
	return c
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// configSetter applies values from a lower-precedence source, skipping any setting
// whose flag was explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	value = strings.TrimSpace(value)
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt64(flag string, value int64, dst *int64) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	value = strings.TrimSpace(value)
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setList(value []string, dst *[]string) {
	var out []string
	for _, v := range value {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return
	}
	*dst = out
}

// setIntFromString parses an environment value. Zero is accepted so that a ceiling
// can be disabled from the environment.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	value = strings.TrimSpace(value)
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

func (s *configSetter) setInt64FromString(flag, value string, dst *int64) error {
	value = strings.TrimSpace(value)
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

func (s *configSetter) setBoolFromString(flag, value string, dst *bool) error {
	value = strings.TrimSpace(value)
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}
