package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kb100/post-receive-email/internal/config"
	"github.com/kb100/post-receive-email/internal/gitcmd"
	"github.com/kb100/post-receive-email/internal/hooklog"
	"github.com/kb100/post-receive-email/internal/mailer"
	"github.com/kb100/post-receive-email/internal/notify"
	"github.com/kb100/post-receive-email/internal/refs"
)

var rootCmd = &cobra.Command{
	Use:   "post-receive-email",
	Short: "Git post-receive hook that mails a summary of each ref update",
	Long: `post-receive-email is a git server-side post-receive hook.

It reads the pushed ref updates from standard input, classifies each one
(new or deleted branch, new commits, forced reset or rewrite, new or
deleted tag), and sends one notification mail per update over
authenticated SMTP.

Configuration lives in the repository's git config under hooks.*, with
optional overrides from <git-dir>/post-receive-email.yml and
POST_RECEIVE_EMAIL_* environment variables (a .env file next to the
hook is honored).`,
	Args:          cobra.NoArgs,
	RunE:          runHook,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = Version
}

func runHook(cmd *cobra.Command, args []string) error {
	// Read the update records before anything else can fail: the push event
	// arrives on stdin exactly once.
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	_ = godotenv.Load()
	cfg, cfgErr := config.Load(config.GitConfig, config.GitDir())

	log, err := hooklog.Open(cfg.LogPath)
	if err != nil {
		// The log is best-effort; losing it must not block anything.
		fmt.Fprintf(os.Stderr, "post-receive-email: %v\n", err)
		if log, err = hooklog.Open(os.DevNull); err != nil {
			return err
		}
	}
	defer log.Close()

	// Nothing may escape the hook boundary, panics included.
	defer func() {
		if r := recover(); r != nil {
			log.Failure(fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
		}
	}()

	if err := processPush(cmd.Context(), cfg, cfgErr, log, string(input)); err != nil {
		log.Failure(err.Error())
		return err
	}
	return nil
}

func processPush(ctx context.Context, cfg *config.Config, cfgErr error, log *hooklog.Log, input string) error {
	if cfgErr != nil {
		return cfgErr
	}
	if cfg.Debug {
		log.DumpInput(input)
	}

	records, err := parseInput(input)
	if err != nil {
		return err
	}

	smtp := mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.Sender, cfg.SenderPassword, cfg.Recipients)
	proc := notify.NewProcessor(gitcmd.CLI{}, smtp, cfg.MailPrefix)
	return proc.Process(ctx, records)
}

// parseInput splits the raw hook input into update records, preserving input
// order. Blank lines are tolerated; anything else malformed is an error.
func parseInput(input string) ([]refs.UpdateRecord, error) {
	var records []refs.UpdateRecord

	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := refs.ParseLine(line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning input: %w", err)
	}
	return records, nil
}
