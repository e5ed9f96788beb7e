package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/shpitdev/multi-sender-outreach/internal/app"
	"github.com/shpitdev/multi-sender-outreach/internal/config"
	"github.com/shpitdev/multi-sender-outreach/internal/util"
	"github.com/shpitdev/multi-sender-outreach/internal/version"
)

const longHelp = `Send personalized outreach email to a CSV of recipients, rotating across several
sender mailboxes with a per-mailbox cap and randomized pauses between sends. Every
attempt is logged to an append-only ledger so reruns skip recipients already contacted.

Settings come from defaults, ./outreach.toml (or --config), OUTREACH_* environment
variables and flags, each overriding the previous.`

var exampleUsage = strings.TrimSpace(`
  outreach preview --recipients schools.csv --limit 2
  outreach run --mode validation --test-address me@example.com
  outreach run --senders senders.json --recipients schools.csv --ledger sent_log.csv
  outreach ledger --ledger sent_log.csv
`)

// exitError carries the process exit code: 2 for configuration and startup problems,
// 1 for failures after a run started.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configErr(err error) error { return &exitError{code: 2, err: err} }
func runErr(err error) error    { return &exitError{code: 1, err: err} }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// execute runs the CLI with args and returns the exit status. Command output goes to out.
func execute(ctx context.Context, args []string, out io.Writer) int {
	log := app.Logger()

	cfg := config.DefaultConfig()
	var cfgPath string
	var previewLimit int

	resolve := func(cmd *cobra.Command) error {
		changed := map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		cfgFile := cfgPath
		if cfgFile == "" && config.FileExists(config.DefaultConfigPath) {
			cfgFile = config.DefaultConfigPath
		}
		if cfgFile != "" {
			fc, err := config.LoadFileConfig(cfgFile)
			if err != nil {
				return configErr(fmt.Errorf("load config %s: %w", cfgFile, err))
			}
			if err := config.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return configErr(err)
			}
		}
		if err := config.ApplyEnvConfig(&cfg, changed); err != nil {
			return configErr(err)
		}
		if err := cfg.Validate(); err != nil {
			return configErr(err)
		}
		return nil
	}

	root := &cobra.Command{
		Use:           "outreach",
		Short:         "Multi-sender outreach mailer with dedupe and pacing",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       version.Current,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return configErr(err) })

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Send to every eligible recipient (or to the test address in validation mode)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := resolve(cmd); err != nil {
				return err
			}
			s, err := app.NewSession(ctx, cfg, log)
			if err != nil {
				return configErr(err)
			}
			defer func() {
				if err := s.Close(); err != nil {
					log.Warn().Err(err).Msg("close session")
				}
			}()
			if _, err := s.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info().Msg("interrupted; ledger is consistent up to the last attempt")
				}
				return runErr(err)
			}
			return nil
		},
	}

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the messages the next run would send, without sending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := resolve(cmd); err != nil {
				return err
			}
			if _, err := app.Preview(ctx, cfg, cmd.OutOrStdout(), previewLimit); err != nil {
				return runErr(err)
			}
			return nil
		},
	}
	previewCmd.Flags().IntVar(&previewLimit, "limit", 3, "number of recipients to preview")

	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print totals for the contact ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := resolve(cmd); err != nil {
				return err
			}
			if _, err := app.LedgerReport(ctx, cfg, cmd.OutOrStdout()); err != nil {
				return runErr(err)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to TOML settings file (default: ./"+config.DefaultConfigPath+" when present)")
	pf.StringVar(&cfg.SendersPath, "senders", cfg.SendersPath, "sender accounts file (YAML or JSON)")
	pf.StringVar(&cfg.RecipientsPath, "recipients", cfg.RecipientsPath, "recipient CSV file")
	pf.StringVar(&cfg.LedgerPath, "ledger", cfg.LedgerPath, "contact ledger (.csv, or .db/.sqlite for SQLite)")
	pf.DurationVar(&cfg.MinDelay, "min-delay", cfg.MinDelay, "minimum pause after each attempt")
	pf.DurationVar(&cfg.MaxDelay, "max-delay", cfg.MaxDelay, "maximum pause after each attempt")
	pf.IntVar(&cfg.PerAccountCap, "per-account-cap", cfg.PerAccountCap, "successful sends allowed per sender per run")
	pf.IntVar(&cfg.SendsPerHour, "sends-per-hour", cfg.SendsPerHour, "ceiling on attempts per hour, 0 disables")
	pf.StringVar(&cfg.SubjectLine, "subject", cfg.SubjectLine, "subject line")
	pf.StringVar(&cfg.Signature, "signature", cfg.Signature, "closing signature line")
	pf.BoolVar(&cfg.DedupeEnabled, "dedupe", cfg.DedupeEnabled, "skip recipients already in the ledger")
	pf.StringVar(&cfg.Mode, "mode", cfg.Mode, "full or validation (aliases: test, validate)")
	pf.StringVar(&cfg.TestAddress, "test-address", cfg.TestAddress, "address that receives every message in validation mode")
	pf.IntVar(&cfg.ValidationSends, "validation-sends", cfg.ValidationSends, "attempts before a validation run stops (default: one per sender)")
	pf.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "message strategy: template or gemini")
	pf.StringVar(&cfg.Transport, "transport", cfg.Transport, "delivery transport: smtp or resend")
	pf.StringVar(&cfg.SMTPHost, "smtp-host", cfg.SMTPHost, "SMTP submission host")
	pf.IntVar(&cfg.SMTPPort, "smtp-port", cfg.SMTPPort, "SMTP submission port (STARTTLS)")
	pf.DurationVar(&cfg.SMTPTimeout, "smtp-timeout", cfg.SMTPTimeout, "SMTP dial and command timeout")
	pf.StringVar(&cfg.ResendBaseURL, "resend-base-url", cfg.ResendBaseURL, "Resend API base URL override")
	pf.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for sender selection and delays, 0 for time-based")
	pf.StringVar(&cfg.GeminiModel, "gemini-model", cfg.GeminiModel, "Gemini model name (env: GEMINI_MODEL)")
	pf.StringVar(&cfg.GeminiBaseURL, "gemini-base-url", cfg.GeminiBaseURL, "Gemini API base URL override (env: GEMINI_BASE_URL)")
	pf.DurationVar(&cfg.GeminiTimeout, "gemini-timeout", cfg.GeminiTimeout, "per-message Gemini timeout (env: GEMINI_TIMEOUT)")
	if err := pf.MarkHidden("resend-base-url"); err != nil {
		log.Info().Err(err).Msg("failed to hide resend-base-url flag")
	}

	root.AddCommand(runCmd, previewCmd, ledgerCmd)
	root.SetArgs(args)
	root.SetOut(out)

	err := root.Execute()
	code := exitCode(err)
	if err != nil {
		log.Error().Str("error", util.RedactSecrets(err.Error())).Int("exit", code).Msg("outreach")
	}
	return code
}
