package config

import "os"

// ApplyEnvConfig applies OUTREACH_* variables plus the GEMINI_* variables, leaving
// explicitly set flags alone.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("senders", os.Getenv("OUTREACH_SENDERS_PATH"), &cfg.SendersPath)
	s.setString("recipients", os.Getenv("OUTREACH_RECIPIENTS_PATH"), &cfg.RecipientsPath)
	s.setString("ledger", os.Getenv("OUTREACH_LEDGER_PATH"), &cfg.LedgerPath)
	s.setString("subject", os.Getenv("OUTREACH_SUBJECT_LINE"), &cfg.SubjectLine)
	s.setString("signature", os.Getenv("OUTREACH_SIGNATURE"), &cfg.Signature)
	s.setString("mode", os.Getenv("OUTREACH_MODE"), &cfg.Mode)
	s.setString("test-address", os.Getenv("OUTREACH_TEST_ADDRESS"), &cfg.TestAddress)
	s.setString("strategy", os.Getenv("OUTREACH_STRATEGY"), &cfg.Strategy)
	s.setString("transport", os.Getenv("OUTREACH_TRANSPORT"), &cfg.Transport)
	s.setString("smtp-host", os.Getenv("OUTREACH_SMTP_HOST"), &cfg.SMTPHost)
	s.setString("resend-base-url", os.Getenv("OUTREACH_RESEND_BASE_URL"), &cfg.ResendBaseURL)

	s.setString("", os.Getenv("GEMINI_API_KEY"), &cfg.GeminiAPIKey)
	s.setString("gemini-model", os.Getenv("GEMINI_MODEL"), &cfg.GeminiModel)
	s.setString("gemini-base-url", os.Getenv("GEMINI_BASE_URL"), &cfg.GeminiBaseURL)

	if err := s.setDuration("min-delay", os.Getenv("OUTREACH_MIN_DELAY"), &cfg.MinDelay); err != nil {
		return err
	}
	if err := s.setDuration("max-delay", os.Getenv("OUTREACH_MAX_DELAY"), &cfg.MaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("smtp-timeout", os.Getenv("OUTREACH_SMTP_TIMEOUT"), &cfg.SMTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("gemini-timeout", os.Getenv("GEMINI_TIMEOUT"), &cfg.GeminiTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("per-account-cap", os.Getenv("OUTREACH_PER_ACCOUNT_CAP"), &cfg.PerAccountCap); err != nil {
		return err
	}
	if err := s.setIntFromString("sends-per-hour", os.Getenv("OUTREACH_SENDS_PER_HOUR"), &cfg.SendsPerHour); err != nil {
		return err
	}
	if err := s.setIntFromString("validation-sends", os.Getenv("OUTREACH_VALIDATION_SENDS"), &cfg.ValidationSends); err != nil {
		return err
	}
	if err := s.setIntFromString("smtp-port", os.Getenv("OUTREACH_SMTP_PORT"), &cfg.SMTPPort); err != nil {
		return err
	}
	if err := s.setInt64FromString("seed", os.Getenv("OUTREACH_SEED"), &cfg.Seed); err != nil {
		return err
	}

	return s.setBoolFromString("dedupe", os.Getenv("OUTREACH_DEDUPE_ENABLED"), &cfg.DedupeEnabled)
}
