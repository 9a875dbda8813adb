package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// DB is the bot's durable state: answered mentions, the notification cursor
// and a log of replies sent for budget checks.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per-connection.
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS processed_mentions (
	  uri TEXT PRIMARY KEY,
	  processed_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS actions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_actions_ts ON actions(ts);
	`)
	return err
}

// IsProcessed reports whether uri was already answered.
func (d *DB) IsProcessed(ctx context.Context, uri string) (bool, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(1) FROM processed_mentions WHERE uri=?`, uri).Scan(&n)
	return n > 0, err
}

// MarkProcessed records uri as answered. Marking twice is a no-op.
func (d *DB) MarkProcessed(ctx context.Context, uri string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO processed_mentions(uri, processed_at) VALUES(?, ?) ON CONFLICT(uri) DO NOTHING`, uri, time.Now().UTC().Unix())
	return err
}

const lastSeenKey = "notifications:last_seen"

// LastSeen returns the stored notification seenAt cursor, "" when unset.
func (d *DB) LastSeen(ctx context.Context) (string, error) {
	v, err := d.LoadCursor(ctx, lastSeenKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// UpdateLastSeen stores the notification seenAt cursor.
func (d *DB) UpdateLastSeen(ctx context.Context, ts string) error {
	return d.SaveCursor(ctx, lastSeenKey, ts)
}

func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key).Scan(&v)
	return v, err
}

// PutAction logs an action of type typ at ts.
func (d *DB) PutAction(ctx context.Context, ts time.Time, typ string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO actions(ts, type) VALUES(?, ?)`, ts.Unix(), typ)
	return err
}

// CountActionsWithin counts actions of type typ in [start, end).
func (d *DB) CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(1) FROM actions WHERE ts>=? AND ts<? AND type=?`, start.Unix(), end.Unix(), typ).Scan(&n)
	return n, err
}
