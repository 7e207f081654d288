// Package synccache persists the sync engine's view of each side's last
// observed state: one row per folder, one row per
// envelope, keyed by account/side. It is the `L_cache`/`R_cache` half of
// every sync hunk classification.
package synccache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Cache wraps the SQLite-backed sync cache database.
type Cache struct {
	db *sql.DB
}

// Open opens or creates a sync cache database at path and applies any
// pending migrations.
func Open(ctx context.Context, path string) (*Cache, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "open sync cache", err)
	}
	db.SetMaxOpenConns(1) // WAL serializes writers anyway; one conn avoids SQLITE_BUSY on migrate
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, mailerr.Wrap(mailerr.KindIO, "ping sync cache", err)
	}

	c := &Cache{db: db}
	if err := c.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

type migration struct {
	version int
	sql     string
}

func (c *Cache) migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return mailerr.Wrap(mailerr.KindIO, "create schema_migrations", err)
	}

	var current int
	err := c.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return mailerr.Wrap(mailerr.KindIO, "read schema version", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return mailerr.Wrap(mailerr.KindIO, "load migrations", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return mailerr.Wrap(mailerr.KindIO, "begin migration tx", err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return mailerr.Wrap(mailerr.KindIO, fmt.Sprintf("apply migration %d", m.version), err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return mailerr.Wrap(mailerr.KindIO, "record migration version", err)
		}
		if err := tx.Commit(); err != nil {
			return mailerr.Wrap(mailerr.KindIO, "commit migration tx", err)
		}
	}
	return nil
}

func loadMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		content, err := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, migration{version: version, sql: string(content)})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}

// UpsertFolder records folder as currently present for account/side.
func (c *Cache) UpsertFolder(ctx context.Context, f model.CachedFolder) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO sync_folders (account, side, name) VALUES (?, ?, ?)
		 ON CONFLICT (account, side, name) DO NOTHING`,
		f.Account, f.Side.String(), f.Name)
	return mailerr.Wrap(mailerr.KindIO, "upsert cached folder", err)
}

// DeleteFolder removes a cached folder row.
func (c *Cache) DeleteFolder(ctx context.Context, account string, side model.Side, name string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM sync_folders WHERE account = ? AND side = ? AND name = ?`,
		account, side.String(), name)
	return mailerr.Wrap(mailerr.KindIO, "delete cached folder", err)
}

// ListFolders returns every cached folder for account on side.
func (c *Cache) ListFolders(ctx context.Context, account string, side model.Side) ([]model.CachedFolder, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name FROM sync_folders WHERE account = ? AND side = ?`,
		account, side.String())
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "list cached folders", err)
	}
	defer rows.Close()

	var out []model.CachedFolder
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mailerr.Wrap(mailerr.KindIO, "scan cached folder", err)
		}
		out = append(out, model.CachedFolder{Account: account, Side: side, Name: name})
	}
	return out, rows.Err()
}

// UpsertEnvelope records e as the most recently observed state for its
// (account, side, folder, message-id) key, replacing any prior row.
func (c *Cache) UpsertEnvelope(ctx context.Context, e model.CachedEnvelope) error {
	flagsJSON, err := encodeFlags(e.Flags)
	if err != nil {
		return mailerr.Wrap(mailerr.KindIO, "encode cached flags", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO sync_envelopes (account, side, folder, message_id, flags, internal_id)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (account, side, folder, message_id)
		 DO UPDATE SET flags = excluded.flags, internal_id = excluded.internal_id`,
		e.Account, e.Side.String(), e.Folder, e.MessageID, flagsJSON, e.InternalID)
	return mailerr.Wrap(mailerr.KindIO, "upsert cached envelope", err)
}

// DeleteEnvelope removes a cached envelope row.
func (c *Cache) DeleteEnvelope(ctx context.Context, account string, side model.Side, folder, messageID string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM sync_envelopes WHERE account = ? AND side = ? AND folder = ? AND message_id = ?`,
		account, side.String(), folder, messageID)
	return mailerr.Wrap(mailerr.KindIO, "delete cached envelope", err)
}

// ListEnvelopes returns every cached envelope for account/side/folder.
func (c *Cache) ListEnvelopes(ctx context.Context, account string, side model.Side, folder string) ([]model.CachedEnvelope, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT message_id, flags, internal_id FROM sync_envelopes
		 WHERE account = ? AND side = ? AND folder = ?`,
		account, side.String(), folder)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "list cached envelopes", err)
	}
	defer rows.Close()

	var out []model.CachedEnvelope
	for rows.Next() {
		var messageID, flagsJSON, internalID string
		if err := rows.Scan(&messageID, &flagsJSON, &internalID); err != nil {
			return nil, mailerr.Wrap(mailerr.KindIO, "scan cached envelope", err)
		}
		flags, err := decodeFlags(flagsJSON)
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindIO, "decode cached flags", err)
		}
		out = append(out, model.CachedEnvelope{
			Account:    account,
			Side:       side,
			Folder:     folder,
			MessageID:  messageID,
			Flags:      flags,
			InternalID: internalID,
		})
	}
	return out, rows.Err()
}

func encodeFlags(flags model.FlagSet) (string, error) {
	keys := make([]string, 0, len(flags))
	for _, f := range flags.Slice() {
		keys = append(keys, f.Key())
	}
	sort.Strings(keys)
	b, err := json.Marshal(keys)
	return string(b), err
}

func decodeFlags(raw string) (model.FlagSet, error) {
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, err
	}
	flags := model.NewFlagSet()
	for _, key := range keys {
		flags.Add(keyToFlag(key))
	}
	return flags, nil
}

func keyToFlag(key string) model.Flag {
	switch key {
	case "\\Seen":
		return model.FlagSeen
	case "\\Answered":
		return model.FlagAnswered
	case "\\Flagged":
		return model.FlagFlagged
	case "\\Deleted":
		return model.FlagDeleted
	case "\\Draft":
		return model.FlagDraft
	default:
		return model.FlagCustom(key)
	}
}
