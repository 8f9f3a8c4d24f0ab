// Package config resolves hook configuration from git config, an optional
// YAML file in the git directory, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Git config keys, in the conventional hooks.* namespace.
const (
	KeyEmailPrefix        = "hooks.emailprefix"
	KeyDebug              = "hooks.debug"
	KeyLogFile            = "hooks.post-receive-logfile"
	KeySMTPHost           = "hooks.smtp-host"
	KeySMTPPort           = "hooks.smtp-port"
	KeySMTPSender         = "hooks.smtp-sender"
	KeySMTPSenderPassword = "hooks.smtp-sender-password"
	KeyMailingList        = "hooks.mailinglist"
)

// Environment overrides for each key. A .env file next to the hook is loaded
// via godotenv before these are read, so the SMTP password can stay out of
// versioned repository config.
const (
	EnvEmailPrefix        = "POST_RECEIVE_EMAIL_PREFIX"
	EnvDebug              = "POST_RECEIVE_EMAIL_DEBUG"
	EnvLogFile            = "POST_RECEIVE_EMAIL_LOGFILE"
	EnvSMTPHost           = "POST_RECEIVE_EMAIL_SMTP_HOST"
	EnvSMTPPort           = "POST_RECEIVE_EMAIL_SMTP_PORT"
	EnvSMTPSender         = "POST_RECEIVE_EMAIL_SMTP_SENDER"
	EnvSMTPSenderPassword = "POST_RECEIVE_EMAIL_SMTP_SENDER_PASSWORD"
	EnvMailingList        = "POST_RECEIVE_EMAIL_MAILINGLIST"
)

// FileName is the optional YAML config file looked up in the git directory.
const FileName = "post-receive-email.yml"

// ErrMissing indicates one or more required settings are absent.
var ErrMissing = errors.New("missing required setting")

// Config holds the settings for one hook run. It is resolved once at startup
// and read-only afterwards.
type Config struct {
	MailPrefix     string
	Debug          bool
	LogPath        string
	SMTPHost       string
	SMTPPort       int
	Sender         string
	SenderPassword string
	Recipients     []string
}

// Lookup returns the raw string value for a git config key, empty when unset.
type Lookup func(key string) string

// GitConfig is the production Lookup, backed by `git config --get`.
func GitConfig(key string) string {
	out, err := exec.Command("git", "config", "--get", key).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(string(out), "\n")
}

// GitDir returns the repository's git directory, or "" when not in a
// repository. The optional YAML config file lives there.
func GitDir() string {
	out, err := exec.Command("git", "rev-parse", "--git-dir").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// fileConfig mirrors the optional YAML file. Field names match the short
// git config key names.
type fileConfig struct {
	EmailPrefix    string `yaml:"emailprefix"`
	Debug          string `yaml:"debug"`
	LogFile        string `yaml:"post-receive-logfile"`
	SMTPHost       string `yaml:"smtp-host"`
	SMTPPort       int    `yaml:"smtp-port"`
	Sender         string `yaml:"smtp-sender"`
	SenderPassword string `yaml:"smtp-sender-password"`
	MailingList    string `yaml:"mailinglist"`
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fc, nil
		}
		return fc, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

// Load resolves the configuration. Later sources override earlier ones:
// git config, then the YAML file, then the environment. The returned Config
// always carries everything that did resolve, so callers can report partial
// configuration even when the error is non-nil.
func Load(lookup Lookup, gitDir string) (*Config, error) {
	var fc fileConfig
	if gitDir != "" {
		var err error
		fc, err = readFile(filepath.Join(gitDir, FileName))
		if err != nil {
			return &Config{LogPath: os.DevNull}, err
		}
	}

	resolve := func(key, fileVal, envName string) string {
		v := lookup(key)
		if fileVal != "" {
			v = fileVal
		}
		if ev := os.Getenv(envName); ev != "" {
			v = ev
		}
		return v
	}

	portStr := ""
	if fc.SMTPPort != 0 {
		portStr = strconv.Itoa(fc.SMTPPort)
	}
	portStr = resolve(KeySMTPPort, portStr, EnvSMTPPort)

	logPath := resolve(KeyLogFile, fc.LogFile, EnvLogFile)
	if logPath == "" {
		logPath = os.DevNull
	}

	cfg := &Config{
		MailPrefix:     normalizePrefix(resolve(KeyEmailPrefix, fc.EmailPrefix, EnvEmailPrefix)),
		Debug:          truthy(resolve(KeyDebug, fc.Debug, EnvDebug)),
		LogPath:        logPath,
		SMTPHost:       resolve(KeySMTPHost, fc.SMTPHost, EnvSMTPHost),
		Sender:         resolve(KeySMTPSender, fc.Sender, EnvSMTPSender),
		SenderPassword: resolve(KeySMTPSenderPassword, fc.SenderPassword, EnvSMTPSenderPassword),
		Recipients:     splitRecipients(resolve(KeyMailingList, fc.MailingList, EnvMailingList)),
	}

	var missing []string
	if cfg.SMTPHost == "" {
		missing = append(missing, KeySMTPHost)
	}
	if portStr == "" {
		missing = append(missing, KeySMTPPort)
	} else {
		port, err := strconv.Atoi(strings.TrimSpace(portStr))
		if err != nil {
			return cfg, fmt.Errorf("invalid %s value %q: %w", KeySMTPPort, portStr, err)
		}
		cfg.SMTPPort = port
	}
	if cfg.Sender == "" {
		missing = append(missing, KeySMTPSender)
	}
	if cfg.SenderPassword == "" {
		missing = append(missing, KeySMTPSenderPassword)
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return cfg, nil
}

// normalizePrefix guarantees a non-empty prefix ends in exactly one space.
// A prefix already ending in a space is left alone, not doubled.
func normalizePrefix(p string) string {
	if p != "" && !strings.HasSuffix(p, " ") {
		p += " "
	}
	return p
}

// truthy interprets a config boolean: anything whose first character is not
// 'f', 'F', or '0' counts as true; empty is false.
func truthy(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case 'f', 'F', '0':
		return false
	}
	return true
}

// splitRecipients splits a mailing list on commas and/or whitespace,
// discarding empty tokens.
func splitRecipients(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
