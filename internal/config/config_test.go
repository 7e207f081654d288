package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fenilsonani/mailcore/internal/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected default logging config: %+v", cfg.Logging)
	}
	if cfg.Sync.Workers != 4 {
		t.Errorf("Sync.Workers = %d, want 4", cfg.Sync.Workers)
	}
	if len(cfg.Accounts) != 0 {
		t.Errorf("expected no default accounts, got %d", len(cfg.Accounts))
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() with missing file should not error, got: %v", err)
	}
	if len(cfg.Accounts) != 0 {
		t.Errorf("missing file should return defaults, got accounts: %v", cfg.Accounts)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mailcore.yaml")
	yamlContent := `
logging:
  level: debug
  format: text
sync:
  workers: 8
  cache_dir: /tmp/mailcore-cache
accounts:
  work:
    email: alice@example.com
    backend:
      kind: imap
      host: imap.example.com
      port: 993
      username: alice
`
	if err := os.WriteFile(path, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Sync.Workers != 8 {
		t.Errorf("Sync.Workers = %d, want 8", cfg.Sync.Workers)
	}
	acc, ok := cfg.Accounts["work"]
	if !ok {
		t.Fatal("expected account \"work\" to be present")
	}
	if acc.Email != "alice@example.com" || acc.Backend.Kind != "imap" || acc.Backend.Port != 993 {
		t.Errorf("unexpected account entry: %+v", acc)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "no accounts",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "valid imap account",
			mutate: func(c *Config) {
				c.Accounts["work"] = AccountEntry{
					Email:   "alice@example.com",
					Backend: BackendEntry{Kind: "imap", Host: "imap.example.com", Port: 993},
				}
			},
			wantErr: false,
		},
		{
			name: "missing email",
			mutate: func(c *Config) {
				c.Accounts["work"] = AccountEntry{
					Backend: BackendEntry{Kind: "maildir", RootDir: "/home/alice/Mail"},
				}
			},
			wantErr: true,
		},
		{
			name: "maildir without root_dir",
			mutate: func(c *Config) {
				c.Accounts["work"] = AccountEntry{
					Email:   "alice@example.com",
					Backend: BackendEntry{Kind: "maildir"},
				}
			},
			wantErr: true,
		},
		{
			name: "invalid backend kind",
			mutate: func(c *Config) {
				c.Accounts["work"] = AccountEntry{
					Email:   "alice@example.com",
					Backend: BackendEntry{Kind: "pop3"},
				}
			},
			wantErr: true,
		},
		{
			name: "invalid logging level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
				c.Accounts["work"] = AccountEntry{
					Email:   "alice@example.com",
					Backend: BackendEntry{Kind: "notmuch", DBPath: "/home/alice/.mail"},
				}
			},
			wantErr: true,
		},
		{
			name: "smtp dkim key without domain or selector",
			mutate: func(c *Config) {
				c.Accounts["work"] = AccountEntry{
					Email: "alice@example.com",
					Backend: BackendEntry{
						Kind: "smtp", Host: "smtp.example.com", Port: 587,
						DKIMKeyFile: "/etc/mailcore/dkim.key",
					},
				}
			},
			wantErr: true,
		},
		{
			name: "smtp dkim fully configured",
			mutate: func(c *Config) {
				c.Accounts["work"] = AccountEntry{
					Email: "alice@example.com",
					Backend: BackendEntry{
						Kind: "smtp", Host: "smtp.example.com", Port: 587,
						DKIMDomain: "example.com", DKIMSelector: "mail", DKIMKeyFile: "/etc/mailcore/dkim.key",
					},
				}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToAccountConfig(t *testing.T) {
	entry := AccountEntry{
		DisplayName: "Alice",
		Email:       "alice@example.com",
		Aliases:     map[string]string{"archive": "Archive/2026"},
		EnvelopeQuery: "is:unread",
		IgnoredFlags:  []string{"$MDNSent"},
		FolderFilterMode:    "include",
		FolderFilterFolders: []string{"INBOX", "Archive/2026"},
		Template: TemplateEntry{
			SignaturePlacement: "attach",
			Signature:          "-- \nAlice",
		},
		PGP: PGPEntry{
			Provider:        "native",
			SecretKeySource: "file",
			SecretKeyValue:  "/home/alice/.gnupg/secret.asc",
			PublicKeySource: "wkd",
		},
	}

	cfg := ToAccountConfig("work", entry)

	if cfg.Name != "work" || cfg.Email != "alice@example.com" {
		t.Errorf("unexpected identity fields: %+v", cfg)
	}
	if got := cfg.Aliases.Resolve("archive"); got != "Archive/2026" {
		t.Errorf("alias resolution = %q, want Archive/2026", got)
	}
	if cfg.FolderSync.Filter.Mode != model.FolderFilterInclude {
		t.Errorf("FolderFilter.Mode = %v, want Include", cfg.FolderSync.Filter.Mode)
	}
	if !cfg.FolderSync.Filter.Includes("INBOX") || cfg.FolderSync.Filter.Includes("Spam") {
		t.Error("FolderFilter did not apply the include list correctly")
	}
	if cfg.Template.SignaturePlacement != model.SignatureAttach {
		t.Errorf("SignaturePlacement = %v, want Attach", cfg.Template.SignaturePlacement)
	}
	if cfg.PGP.Provider != model.PGPNative {
		t.Errorf("PGP.Provider = %v, want Native", cfg.PGP.Provider)
	}
	if cfg.PGP.SecretKey.Kind != model.SecretKeyFile || cfg.PGP.SecretKey.Value != entry.PGP.SecretKeyValue {
		t.Errorf("unexpected secret key source: %+v", cfg.PGP.SecretKey)
	}
	if len(cfg.PGP.PublicKeySources) != 1 || cfg.PGP.PublicKeySources[0].Kind != model.PublicKeyWKD {
		t.Errorf("unexpected public key sources: %+v", cfg.PGP.PublicKeySources)
	}
}

func TestResolveCacheDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	cfg := DefaultConfig()
	cfg.Sync.CacheDir = "~/.cache/mailcore"
	dir, err := cfg.ResolveCacheDir()
	if err != nil {
		t.Fatalf("ResolveCacheDir() failed: %v", err)
	}
	want := filepath.Join(home, ".cache", "mailcore")
	if dir != want {
		t.Errorf("ResolveCacheDir() = %q, want %q", dir, want)
	}

	cfg.Sync.CacheDir = "/var/cache/mailcore"
	dir, err = cfg.ResolveCacheDir()
	if err != nil {
		t.Fatalf("ResolveCacheDir() failed: %v", err)
	}
	if dir != "/var/cache/mailcore" {
		t.Errorf("ResolveCacheDir() = %q, want unchanged absolute path", dir)
	}
}
