package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kb100/post-receive-email/internal/config"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify hook configuration without sending mail",
	Long: `Verify hook configuration without sending mail.

Resolves every setting the way the hook would at push time and reports
the result, naming each missing required key. The SMTP password is
never printed.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// CheckResult is the output of the check command.
type CheckResult struct {
	Status      string   `json:"status"`
	SMTPHost    string   `json:"smtp_host,omitempty"`
	SMTPPort    int      `json:"smtp_port,omitempty"`
	Sender      string   `json:"sender,omitempty"`
	PasswordSet bool     `json:"password_set"`
	MailPrefix  string   `json:"mail_prefix,omitempty"`
	LogPath     string   `json:"log_path"`
	Debug       bool     `json:"debug"`
	Recipients  []string `json:"recipients"`
	Error       string   `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	cfg, err := config.Load(config.GitConfig, config.GitDir())

	result := CheckResult{
		Status:      "ok",
		SMTPHost:    cfg.SMTPHost,
		SMTPPort:    cfg.SMTPPort,
		Sender:      cfg.Sender,
		PasswordSet: cfg.SenderPassword != "",
		MailPrefix:  cfg.MailPrefix,
		LogPath:     cfg.LogPath,
		Debug:       cfg.Debug,
		Recipients:  cfg.Recipients,
	}
	if err != nil {
		result.Status = "invalid"
		result.Error = err.Error()
	}
	if len(cfg.Recipients) == 0 {
		result.Recipients = []string{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(result); encErr != nil {
		return encErr
	}

	if err != nil {
		if errors.Is(err, config.ErrMissing) {
			os.Exit(ExitConfigError)
		}
		return fmt.Errorf("resolving configuration: %w", err)
	}
	return nil
}
