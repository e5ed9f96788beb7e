package config

import (
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultConfigPath is read when no --config flag is given and the file exists.
const DefaultConfigPath = "outreach.toml"

// FileConfig mirrors Config with durations as strings for TOML.
type FileConfig struct {
	SendersPath     string      `toml:"senders_path"`
	RecipientsPath  string      `toml:"recipients_path"`
	LedgerPath      string      `toml:"ledger_path"`
	MinDelay        string      `toml:"min_delay"`
	MaxDelay        string      `toml:"max_delay"`
	PerAccountCap   int         `toml:"per_account_cap"`
	SendsPerHour    int         `toml:"sends_per_hour"`
	SubjectLine     string      `toml:"subject_line"`
	Signature       string      `toml:"signature"`
	DedupeEnabled   *bool       `toml:"dedupe_enabled"`
	Mode            string      `toml:"mode"`
	TestAddress     string      `toml:"test_address"`
	ValidationSends int         `toml:"validation_sends"`
	Strategy        string      `toml:"strategy"`
	Transport       string      `toml:"transport"`
	SMTPHost        string      `toml:"smtp_host"`
	SMTPPort        int         `toml:"smtp_port"`
	SMTPTimeout     string      `toml:"smtp_timeout"`
	ResendBaseURL   string      `toml:"resend_base_url"`
	Seed            int64       `toml:"seed"`
	GeminiModel     string      `toml:"gemini_model"`
	GeminiBaseURL   string      `toml:"gemini_base_url"`
	GeminiTimeout   string      `toml:"gemini_timeout"`
	Columns         FileColumns `toml:"columns"`
}

// FileColumns lists accepted header names per field under [columns].
type FileColumns struct {
	Email       []string `toml:"email"`
	School      []string `toml:"school"`
	ContactName []string `toml:"contact_name"`
	County      []string `toml:"county"`
	EntityType  []string `toml:"entity_type"`
	Website     []string `toml:"website"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// ApplyFileConfig applies configuration from a file, leaving explicitly set flags alone.
// The Gemini API key is never read from the file.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("senders", fc.SendersPath, &cfg.SendersPath)
	s.setString("recipients", fc.RecipientsPath, &cfg.RecipientsPath)
	s.setString("ledger", fc.LedgerPath, &cfg.LedgerPath)
	s.setString("subject", fc.SubjectLine, &cfg.SubjectLine)
	s.setString("signature", fc.Signature, &cfg.Signature)
	s.setString("mode", fc.Mode, &cfg.Mode)
	s.setString("test-address", fc.TestAddress, &cfg.TestAddress)
	s.setString("strategy", fc.Strategy, &cfg.Strategy)
	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("smtp-host", fc.SMTPHost, &cfg.SMTPHost)
	s.setString("resend-base-url", fc.ResendBaseURL, &cfg.ResendBaseURL)
	s.setString("gemini-model", fc.GeminiModel, &cfg.GeminiModel)
	s.setString("gemini-base-url", fc.GeminiBaseURL, &cfg.GeminiBaseURL)

	if err := s.setDuration("min-delay", fc.MinDelay, &cfg.MinDelay); err != nil {
		return err
	}
	if err := s.setDuration("max-delay", fc.MaxDelay, &cfg.MaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("smtp-timeout", fc.SMTPTimeout, &cfg.SMTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("gemini-timeout", fc.GeminiTimeout, &cfg.GeminiTimeout); err != nil {
		return err
	}

	s.setInt("per-account-cap", fc.PerAccountCap, &cfg.PerAccountCap)
	s.setInt("sends-per-hour", fc.SendsPerHour, &cfg.SendsPerHour)
	s.setInt("validation-sends", fc.ValidationSends, &cfg.ValidationSends)
	s.setInt("smtp-port", fc.SMTPPort, &cfg.SMTPPort)
	s.setInt64("seed", fc.Seed, &cfg.Seed)

	s.setBool("dedupe", fc.DedupeEnabled, &cfg.DedupeEnabled)

	s.setList(fc.Columns.Email, &cfg.Columns.Email)
	s.setList(fc.Columns.School, &cfg.Columns.School)
	s.setList(fc.Columns.ContactName, &cfg.Columns.ContactName)
	s.setList(fc.Columns.County, &cfg.Columns.County)
	s.setList(fc.Columns.EntityType, &cfg.Columns.EntityType)
	s.setList(fc.Columns.Website, &cfg.Columns.Website)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
