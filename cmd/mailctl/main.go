package main

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fenilsonani/mailcore/internal/backend"
	"github.com/fenilsonani/mailcore/internal/backend/imap"
	"github.com/fenilsonani/mailcore/internal/backend/maildir"
	"github.com/fenilsonani/mailcore/internal/backend/notmuch"
	"github.com/fenilsonani/mailcore/internal/backend/smtp"
	"github.com/fenilsonani/mailcore/internal/config"
	"github.com/fenilsonani/mailcore/internal/logging"
	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/resilience"
	"github.com/fenilsonani/mailcore/internal/search"
	"github.com/fenilsonani/mailcore/internal/sync"
	"github.com/fenilsonani/mailcore/internal/synccache"
	"github.com/fenilsonani/mailcore/internal/syncevents"
)

var (
	cfgFile string
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mailctl",
	Short: "Drive IMAP, Maildir, Notmuch, and SMTP accounts and sync them",
	Long: `mailctl drives remote IMAP/SMTP servers and a local Maildir/Notmuch
store on the user's behalf:
- folders/envelopes to inspect an account's mailboxes
- send to hand a compiled message to an SMTP relay
- sync to reconcile a local and a remote backend two-way
- doctor to check an account's configuration and connectivity`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "mailctl.yaml", "config file path")

	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(envelopesCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mailctl v0.1.0")
	},
}

// accountEntry looks up name's on-disk entry, erroring if it is missing.
func accountEntry(name string) (config.AccountEntry, error) {
	entry, ok := cfg.Accounts[name]
	if !ok {
		return config.AccountEntry{}, fmt.Errorf("no account named %q in %s", name, cfgFile)
	}
	return entry, nil
}

// accountPassword resolves the secret the backend needs to authenticate.
// Config files never carry plaintext passwords; the CLI instead reads
// MAILCTL_PASSWORD, or MAILCTL_<ACCOUNT>_PASSWORD for a specific account.
func accountPassword(name string) string {
	key := "MAILCTL_" + envKey(name) + "_PASSWORD"
	if v := os.Getenv(key); v != "" {
		return v
	}
	return os.Getenv("MAILCTL_PASSWORD")
}

func envKey(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-('a'-'A'))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// dkimConfigFor builds an smtp.DKIMConfig from a backend entry's DKIM
// fields, or returns nil if DKIMKeyFile is unset (signing stays off).
func dkimConfigFor(e config.BackendEntry) (*smtp.DKIMConfig, error) {
	if e.DKIMKeyFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(e.DKIMKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read dkim_key_file: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("dkim_key_file %q has no PEM block", e.DKIMKeyFile)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse dkim_key_file %q: %w", e.DKIMKeyFile, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("dkim_key_file %q does not hold a signing key", e.DKIMKeyFile)
	}
	return &smtp.DKIMConfig{
		Domain:   e.DKIMDomain,
		Selector: e.DKIMSelector,
		Signer:   signer,
	}, nil
}

// contextBuilder resolves one account's backend entry into a
// backend.ContextBuilder for the adapter its Kind names.
func contextBuilder(name string, e config.AccountEntry) (backend.ContextBuilder, error) {
	switch e.Backend.Kind {
	case "imap":
		return imap.NewBuilder(name, imap.Config{
			Host:     e.Backend.Host,
			Port:     e.Backend.Port,
			Username: e.Backend.Username,
			Password: accountPassword(name),
			Insecure: e.Backend.Insecure,
		}), nil
	case "maildir":
		return maildir.NewBuilder(e.Backend.RootDir), nil
	case "notmuch":
		return notmuch.NewBuilder(e.Backend.DBPath, e.Backend.RootDir), nil
	case "smtp":
		dkimCfg, err := dkimConfigFor(e.Backend)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", name, err)
		}
		return smtp.NewBuilder(smtp.Config{
			Host:     e.Backend.Host,
			Port:     e.Backend.Port,
			Username: e.Backend.Username,
			Password: accountPassword(name),
			StartTLS: e.Backend.Port != 465,
			DKIM:     dkimCfg,
		}), nil
	default:
		return nil, fmt.Errorf("account %q has unsupported backend kind %q", name, e.Backend.Kind)
	}
}

// buildBackend resolves account entry e into a single-instance backend
// handler, matching the Builder's BuildHandler shape used throughout
// this CLI (a pool is only worth it under concurrent feature calls,
// which mailctl's one-command-at-a-time model never makes).
func buildBackend(ctx context.Context, name string, e config.AccountEntry, account model.AccountConfig) (*backend.Handler, error) {
	cb, err := contextBuilder(name, e)
	if err != nil {
		return nil, err
	}
	h, err := backend.NewBuilder(account, cb).BuildHandler(ctx)
	if err != nil {
		return nil, fmt.Errorf("building %s backend: %w", e.Backend.Kind, err)
	}
	return h, nil
}

var foldersCmd = &cobra.Command{
	Use:   "folders <account>",
	Short: "List an account's folders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		entry, err := accountEntry(name)
		if err != nil {
			return err
		}
		account := config.ToAccountConfig(name, entry)

		ctx := context.Background()
		h, err := buildBackend(ctx, name, entry, account)
		if err != nil {
			return err
		}
		defer h.Close()

		var folders []model.Folder
		err = h.Call(backend.FeatureListFolders, func(impl any) error {
			f, ok := impl.(backend.ListFolders)
			if !ok {
				return fmt.Errorf("backend does not support listing folders")
			}
			folders, err = f.ListFolders(ctx)
			return err
		})
		if err != nil {
			return err
		}

		for _, f := range folders {
			fmt.Println(f.Name)
		}
		return nil
	},
}

var envelopeQuery string

var envelopesCmd = &cobra.Command{
	Use:   "envelopes <account> <folder>",
	Short: "List envelopes in a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, folder := args[0], args[1]
		entry, err := accountEntry(name)
		if err != nil {
			return err
		}
		account := config.ToAccountConfig(name, entry)

		var query *search.Query
		if envelopeQuery != "" {
			query, err = search.Parse(envelopeQuery)
			if err != nil {
				return fmt.Errorf("invalid query: %w", err)
			}
		}

		ctx := context.Background()
		h, err := buildBackend(ctx, name, entry, account)
		if err != nil {
			return err
		}
		defer h.Close()

		var envelopes []model.Envelope
		err = h.Call(backend.FeatureListEnvelopes, func(impl any) error {
			f, ok := impl.(backend.ListEnvelopes)
			if !ok {
				return fmt.Errorf("backend does not support listing envelopes")
			}
			envelopes, err = f.ListEnvelopes(ctx, folder, query)
			return err
		})
		if err != nil {
			return err
		}

		for _, e := range envelopes {
			fmt.Printf("%-10s %-30s %s\n", e.ID, e.From.String(), e.Subject)
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <account> <file>",
	Short: "Send a compiled RFC 5322 message through an account's SMTP backend",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, path := args[0], args[1]
		entry, err := accountEntry(name)
		if err != nil {
			return err
		}
		if entry.Backend.Kind != "smtp" {
			return fmt.Errorf("account %q is not an smtp backend", name)
		}
		account := config.ToAccountConfig(name, entry)

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading message: %w", err)
		}

		ctx := context.Background()
		h, err := buildBackend(ctx, name, entry, account)
		if err != nil {
			return err
		}
		defer h.Close()

		err = h.Call(backend.FeatureSendMessage, func(impl any) error {
			f, ok := impl.(backend.SendMessage)
			if !ok {
				return fmt.Errorf("backend does not support sending")
			}
			return f.SendMessage(ctx, raw)
		})
		if err != nil {
			return err
		}

		fmt.Println("message sent")
		return nil
	},
}

var (
	syncDryRun      bool
	syncMetricsAddr string
	syncLocalDir    string
	syncWatch       bool
)

// syncCmd reconciles an account's configured backend (the "remote" side,
// almost always imap or notmuch) against a local Maildir cache (the
// "local" side). A richer two-sided account schema is left for a future
// config revision; today's single-backend AccountEntry only names the
// remote side, so the local side is a plain Maildir directory picked by
// --local-dir.
var syncCmd = &cobra.Command{
	Use:   "sync <account>",
	Short: "Two-way synchronize an account's configured backend against a local Maildir cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		entry, err := accountEntry(name)
		if err != nil {
			return err
		}
		account := config.ToAccountConfig(name, entry)

		logger, err := logging.New(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		})
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		if syncMetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			go func() {
				if err := http.ListenAndServe(syncMetricsAddr, mux); err != nil {
					logger.Error("metrics server error", "error", err.Error())
				}
			}()
			logger.Info("metrics server started", "addr", syncMetricsAddr)
		}

		ctx := context.Background()
		remote, err := buildBackend(ctx, name, entry, account)
		if err != nil {
			return fmt.Errorf("building remote backend: %w", err)
		}
		defer remote.Close()

		// The remote side is the one actually crossing a network boundary
		// (IMAP/SMTP/notmuch-over-ssh); wrap it so a flapping server trips
		// a breaker per feature instead of every hunk retrying into the
		// same timeout.
		resilientRemote := backend.NewResilientHandler(remote, func(feature string) resilience.Config {
			breakerCfg := resilience.DefaultConfig(feature)
			breakerCfg.ExecutionTimeout = 2 * time.Minute
			return breakerCfg
		})

		localDir := syncLocalDir
		if localDir == "" {
			cacheDir, err := cfg.ResolveCacheDir()
			if err != nil {
				return err
			}
			localDir = cacheDir + "/" + name + "/maildir"
		}
		localHandler, err := backend.NewBuilder(account, maildir.NewBuilder(localDir)).BuildHandler(ctx)
		if err != nil {
			return fmt.Errorf("building local maildir backend: %w", err)
		}
		defer localHandler.Close()

		if err := cfg.EnsureCacheDir(); err != nil {
			return err
		}
		cacheDir, err := cfg.ResolveCacheDir()
		if err != nil {
			return err
		}
		cache, err := synccache.Open(ctx, cacheDir+"/"+name+".db")
		if err != nil {
			return fmt.Errorf("opening sync cache: %w", err)
		}
		defer cache.Close()

		events := syncevents.NewMultiSink()

		engine := sync.NewEngine(sync.Config{
			Account:           account,
			LocalPermissions:  model.DefaultSyncPermissions(),
			RemotePermissions: model.DefaultSyncPermissions(),
			PoolSize:          cfg.Sync.Workers,
			DryRun:            syncDryRun,
			LockDir:           cfg.Sync.CacheDir,
		}, localHandler, resilientRemote, cache, events)

		if err := runSyncOnce(ctx, logger, engine); err != nil {
			return err
		}

		if !syncWatch {
			return nil
		}
		return watchAndResync(ctx, logger, engine, localDir)
	},
}

// runSyncOnce runs engine once, tagging the run's logs with a fresh trace
// ID so a --watch loop's repeated runs can be told apart in structured
// output.
func runSyncOnce(ctx context.Context, logger *logging.Logger, engine *sync.Engine) error {
	runCtx := logging.WithTraceID(ctx, uuid.NewString())
	report, err := engine.Run(runCtx)
	if err != nil {
		logger.ErrorContext(runCtx, "sync failed", err)
		return fmt.Errorf("sync failed: %w", err)
	}
	logger.InfoContext(runCtx, "sync completed", "folders", len(report.Folders), "envelope_hunks", len(report.EnvelopeOutcomes))
	fmt.Printf("synced %d folders, %d envelope hunks\n", len(report.Folders), len(report.EnvelopeOutcomes))
	return nil
}

// watchAndResync watches localDir for filesystem changes and re-runs
// engine, debounced, until the process is interrupted.
func watchAndResync(ctx context.Context, logger *logging.Logger, engine *sync.Engine, localDir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting filesystem watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watching %s: %w", localDir, err)
	}

	logger.InfoContext(ctx, "watching local maildir for changes", "dir", localDir)

	const debounceWindow = 2 * time.Second
	timer := time.NewTimer(debounceWindow)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !pending {
				pending = true
				timer.Reset(debounceWindow)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.ErrorContext(ctx, "watcher error", werr)
		case <-timer.C:
			pending = false
			if err := runSyncOnce(ctx, logger, engine); err != nil {
				logger.ErrorContext(ctx, "resync failed", err)
			}
		}
	}
}

var doctorCmd = &cobra.Command{
	Use:   "doctor <account>",
	Short: "Validate an account's configuration and check backend connectivity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		entry, err := accountEntry(name)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("[!] configuration: %v\n", err)
		} else {
			fmt.Println("[x] configuration valid")
		}

		account := config.ToAccountConfig(name, entry)
		ctx := context.Background()
		h, err := buildBackend(ctx, name, entry, account)
		if err != nil {
			fmt.Printf("[!] backend: %v\n", err)
			return nil
		}
		defer h.Close()

		err = h.Call(backend.FeatureCheckUp, func(impl any) error {
			f, ok := impl.(backend.CheckUp)
			if !ok {
				return fmt.Errorf("backend does not support a connectivity check")
			}
			return f.CheckUp(ctx)
		})
		if err != nil {
			fmt.Printf("[!] connectivity: %v\n", err)
			return nil
		}
		fmt.Println("[x] connectivity ok")
		return nil
	},
}

func init() {
	envelopesCmd.Flags().StringVarP(&envelopeQuery, "query", "q", "", "search query")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "compute hunks without applying them")
	syncCmd.Flags().StringVar(&syncMetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address while syncing")
	syncCmd.Flags().StringVar(&syncLocalDir, "local-dir", "", "local Maildir cache directory (default: <cache_dir>/<account>/maildir)")
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "after syncing once, keep watching the local Maildir and re-sync on change")
}
