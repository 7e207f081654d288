// Package config loads mailcore's on-disk configuration: one or more mail
// accounts, each naming a backend (imap, maildir, notmuch, smtp) and its
// sync/template/PGP settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fenilsonani/mailcore/internal/model"
)

// Config is the root of a mailcore configuration file.
type Config struct {
	Logging  LoggingConfig           `koanf:"logging"`
	Sync     SyncConfig              `koanf:"sync"`
	Accounts map[string]AccountEntry `koanf:"accounts"`
}

// LoggingConfig mirrors internal/logging.Config so it can be loaded from the
// same file as everything else.
type LoggingConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	Output    string `koanf:"output"`
	AddSource bool   `koanf:"add_source"`
}

// SyncConfig controls the sync engine's worker pool and cache location
//.
type SyncConfig struct {
	CacheDir     string `koanf:"cache_dir"`
	Workers      int    `koanf:"workers"`
	LockTimeout  string `koanf:"lock_timeout"`
}

// AccountEntry is the on-disk shape of one account entry; ToAccountConfig
// resolves it into the model.AccountConfig the rest of the module consumes.
type AccountEntry struct {
	DisplayName string            `koanf:"display_name"`
	Email       string            `koanf:"email"`
	// Aliases maps a user-facing folder alias to its canonical backend name,
	// e.g. "archive" -> "Archive/2026".
	Aliases map[string]string `koanf:"folder_aliases"`

	Backend BackendEntry `koanf:"backend"`

	EnvelopeQuery  string   `koanf:"envelope_query"`
	IgnoredFlags   []string `koanf:"ignored_flags"`
	MaxMessageSize int64    `koanf:"max_message_size"`

	FolderFilterMode    string   `koanf:"folder_filter_mode"` // all, include, exclude
	FolderFilterFolders []string `koanf:"folder_filter_folders"`

	Template TemplateEntry `koanf:"template"`
	PGP      PGPEntry      `koanf:"pgp"`
}

// BackendEntry names and configures one backend adapter for an account.
type BackendEntry struct {
	Kind string `koanf:"kind"` // imap, maildir, notmuch, smtp

	// IMAP / SMTP
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Insecure bool   `koanf:"insecure"` // skip TLS (testing only)

	// Maildir / Notmuch
	RootDir string `koanf:"root_dir"`
	DBPath  string `koanf:"db_path"` // notmuch database directory

	// DKIM (SMTP only): when DKIMKeyFile is set, every outbound message is
	// signed for DKIMDomain under DKIMSelector before delivery.
	DKIMDomain   string `koanf:"dkim_domain"`
	DKIMSelector string `koanf:"dkim_selector"`
	DKIMKeyFile  string `koanf:"dkim_key_file"` // PEM-encoded PKCS#8 private key
}

// TemplateEntry configures message composition.
type TemplateEntry struct {
	SignaturePlacement string `koanf:"signature_placement"` // append, attach, none
	Signature          string `koanf:"signature"`
	NoReplyPattern     string `koanf:"no_reply_pattern"`
}

// PGPEntry configures the PGP provider.
type PGPEntry struct {
	Provider    string   `koanf:"provider"` // disabled, command, native
	CommandPath string   `koanf:"command_path"`
	CommandArgs []string `koanf:"command_args"`

	SecretKeySource string `koanf:"secret_key_source"` // raw, file, keyring
	SecretKeyValue  string `koanf:"secret_key_value"`

	PublicKeySource string   `koanf:"public_key_source"` // raw, wkd, hkp
	HKPServers      []string `koanf:"hkp_servers"`
}

// DefaultConfig returns a configuration with sensible defaults and no
// accounts; the caller must add at least one.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Sync: SyncConfig{
			CacheDir:    "~/.cache/mailcore",
			Workers:     4,
			LockTimeout: "30s",
		},
		Accounts: map[string]AccountEntry{},
	}
}

// Load reads configuration from a YAML file. A missing file is not an
// error: the defaults are returned as-is, matching the CLI's "run with no
// accounts configured yet" bootstrap case.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Logging.Level != "" {
		valid := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !valid[c.Logging.Level] {
			return fmt.Errorf("logging.level must be one of: debug, info, warn, error (got: %s)", c.Logging.Level)
		}
	}
	if c.Logging.Format != "" {
		valid := map[string]bool{"json": true, "text": true}
		if !valid[c.Logging.Format] {
			return fmt.Errorf("logging.format must be one of: json, text (got: %s)", c.Logging.Format)
		}
	}

	if c.Sync.Workers < 0 {
		return fmt.Errorf("sync.workers cannot be negative")
	}
	if c.Sync.LockTimeout != "" {
		if _, err := time.ParseDuration(c.Sync.LockTimeout); err != nil {
			return fmt.Errorf("sync.lock_timeout is invalid: %w", err)
		}
	}

	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account must be configured")
	}

	for name, acc := range c.Accounts {
		if acc.Email == "" {
			return fmt.Errorf("accounts.%s.email is required", name)
		}
		if err := acc.Backend.validate(name); err != nil {
			return err
		}
		if acc.Template.SignaturePlacement != "" {
			valid := map[string]bool{"append": true, "attach": true, "none": true}
			if !valid[acc.Template.SignaturePlacement] {
				return fmt.Errorf("accounts.%s.template.signature_placement must be one of: append, attach, none", name)
			}
		}
		if acc.PGP.Provider != "" {
			valid := map[string]bool{"disabled": true, "command": true, "native": true}
			if !valid[acc.PGP.Provider] {
				return fmt.Errorf("accounts.%s.pgp.provider must be one of: disabled, command, native", name)
			}
		}
		if acc.FolderFilterMode != "" {
			valid := map[string]bool{"all": true, "include": true, "exclude": true}
			if !valid[acc.FolderFilterMode] {
				return fmt.Errorf("accounts.%s.folder_filter_mode must be one of: all, include, exclude", name)
			}
		}
	}

	return nil
}

func (b BackendEntry) validate(account string) error {
	switch b.Kind {
	case "imap", "smtp":
		if b.Host == "" {
			return fmt.Errorf("accounts.%s.backend.host is required for kind %q", account, b.Kind)
		}
		if b.Port < 1 || b.Port > 65535 {
			return fmt.Errorf("accounts.%s.backend.port must be between 1 and 65535 (got: %d)", account, b.Port)
		}
		if b.Kind == "smtp" && b.DKIMKeyFile != "" && (b.DKIMDomain == "" || b.DKIMSelector == "") {
			return fmt.Errorf("accounts.%s.backend.dkim_domain and dkim_selector are required when dkim_key_file is set", account)
		}
	case "maildir":
		if b.RootDir == "" {
			return fmt.Errorf("accounts.%s.backend.root_dir is required for maildir", account)
		}
	case "notmuch":
		if b.DBPath == "" {
			return fmt.Errorf("accounts.%s.backend.db_path is required for notmuch", account)
		}
	case "":
		return fmt.Errorf("accounts.%s.backend.kind is required", account)
	default:
		return fmt.Errorf("accounts.%s.backend.kind %q is not one of: imap, maildir, notmuch, smtp", account, b.Kind)
	}
	return nil
}

// ToAccountConfig resolves the on-disk entry into the runtime type consumed
// by the backend capability layer (internal/backend) and sync engine
// (internal/sync). OAuth2 and SecretProvider wiring, which require live
// collaborators, are left for the caller to attach afterward.
func ToAccountConfig(name string, e AccountEntry) model.AccountConfig {
	filter := model.FolderFilter{Mode: model.FolderFilterAll}
	switch e.FolderFilterMode {
	case "include":
		filter.Mode = model.FolderFilterInclude
	case "exclude":
		filter.Mode = model.FolderFilterExclude
	}
	if len(e.FolderFilterFolders) > 0 {
		filter.Folders = make(map[string]struct{}, len(e.FolderFilterFolders))
		for _, f := range e.FolderFilterFolders {
			filter.Folders[f] = struct{}{}
		}
	}

	cfg := model.AccountConfig{
		Name:        name,
		DisplayName: e.DisplayName,
		Email:       e.Email,
		Aliases:     model.NewFolderAliases(e.Aliases),

		FolderSync:   model.FolderSyncConfig{Filter: filter},
		EnvelopeSync: model.EnvelopeSyncConfig{Query: e.EnvelopeQuery},
		FlagSync:     model.FlagSyncConfig{Ignored: e.IgnoredFlags},
		MessageSync:  model.MessageSyncConfig{MaxSize: e.MaxMessageSize},

		Template: model.TemplateConfig{
			SignaturePlacement: signaturePlacementOf(e.Template.SignaturePlacement),
			Signature:          e.Template.Signature,
			NoReplyPattern:     e.Template.NoReplyPattern,
		},
		PGP: toPGPConfig(e.PGP),
	}

	return cfg
}

func signaturePlacementOf(s string) model.SignaturePlacement {
	switch s {
	case "attach":
		return model.SignatureAttach
	case "none":
		return model.SignatureNone
	default:
		return model.SignatureAppend
	}
}

func toPGPConfig(e PGPEntry) model.PGPConfig {
	cfg := model.PGPConfig{
		CommandPath: e.CommandPath,
		CommandArgs: e.CommandArgs,
	}
	switch e.Provider {
	case "command":
		cfg.Provider = model.PGPCommand
	case "native":
		cfg.Provider = model.PGPNative
	default:
		cfg.Provider = model.PGPDisabled
	}

	if e.SecretKeyValue != "" {
		switch e.SecretKeySource {
		case "file":
			cfg.SecretKey = model.SecretKeySource{Kind: model.SecretKeyFile, Value: e.SecretKeyValue}
		case "keyring":
			cfg.SecretKey = model.SecretKeySource{Kind: model.SecretKeyKeyring, Value: e.SecretKeyValue}
		default:
			cfg.SecretKey = model.SecretKeySource{Kind: model.SecretKeyRaw, Value: e.SecretKeyValue}
		}
	}

	switch e.PublicKeySource {
	case "wkd":
		cfg.PublicKeySources = []model.PublicKeySource{{Kind: model.PublicKeyWKD}}
	case "hkp":
		cfg.PublicKeySources = []model.PublicKeySource{{Kind: model.PublicKeyHKP, HKPServers: e.HKPServers}}
	}

	return cfg
}

// ResolveCacheDir expands a leading "~" in Sync.CacheDir against the user's
// home directory.
func (c *Config) ResolveCacheDir() (string, error) {
	dir := c.Sync.CacheDir
	if dir == "~" || strings.HasPrefix(dir, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving cache dir: %w", err)
		}
		if dir == "~" {
			return home, nil
		}
		return filepath.Join(home, dir[2:]), nil
	}
	return dir, nil
}

// EnsureCacheDir creates the sync cache directory if it does not exist.
func (c *Config) EnsureCacheDir() error {
	dir, err := c.ResolveCacheDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0750)
}
