package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/dialect/sql/sqlgraph"
	"entgo.io/ent/schema/field"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const (
	progressTableName = "topic_progress"

	colID        = "id"
	colUserID    = "user_id"
	colSubjectID = "subject_id"
	colTopicID   = "topic_id"
	colDocument  = "document"
	colVersion   = "version"
	colCreatedAt = "created_at"
	colUpdatedAt = "updated_at"
)

var (
	progressColumns = []*schema.Column{
		{Name: colID, Type: field.TypeInt, Increment: true},
		{Name: colUserID, Type: field.TypeString},
		{Name: colSubjectID, Type: field.TypeString},
		{Name: colTopicID, Type: field.TypeString},
		{Name: colDocument, Type: field.TypeJSON},
		{Name: colVersion, Type: field.TypeInt64, Default: 0},
		{Name: colCreatedAt, Type: field.TypeTime},
		{Name: colUpdatedAt, Type: field.TypeTime},
	}
	progressTable = &schema.Table{
		Name:       progressTableName,
		Columns:    progressColumns,
		PrimaryKey: []*schema.Column{progressColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "topicprogress_user_id_subject_id_topic_id",
				Unique:  true,
				Columns: []*schema.Column{progressColumns[1], progressColumns[2], progressColumns[3]},
			},
		},
	}
)

// SQLiteRepo is a Repo backed by a single SQLite table, one row per key.
type SQLiteRepo struct {
	db  *sql.DB
	drv *entsql.Driver
	now func() time.Time
}

// OpenSQLite connects to the SQLite database at dsn, applies pragmas and
// migrates the progress table.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	m, err := schema.NewMigrate(drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Create(ctx, progressTable); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &SQLiteRepo{db: db, drv: drv, now: time.Now}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (r *SQLiteRepo) DB() *sql.DB {
	return r.db
}

// Close closes the database connection.
func (r *SQLiteRepo) Close() error {
	return r.drv.Close()
}

// Ping checks the database connection.
func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Get returns the record for key or ErrNotFound.
func (r *SQLiteRepo) Get(ctx context.Context, key Key) (*Record, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return selectRecord(ctx, r.drv, key)
}

// Merge deep-merges patch into the record for key inside one transaction.
func (r *SQLiteRepo) Merge(ctx context.Context, key Key, patch map[string]any, opts MergeOptions) (*Record, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	rec, err := r.mergeTx(ctx, tx, key, patch, opts)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", key, err)
	}
	return rec, nil
}

func (r *SQLiteRepo) mergeTx(ctx context.Context, tx dialect.Tx, key Key, patch map[string]any, opts MergeOptions) (*Record, error) {
	prev, err := selectRecord(ctx, tx, key)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var prevDoc map[string]any
	var prevVersion int64
	var prevTime time.Time
	if exists {
		prevDoc, prevVersion, prevTime = prev.Document, prev.Version, prev.UpdatedAt
	}
	if err := checkVersion(opts, exists, prevVersion); err != nil {
		return nil, err
	}

	ts := serverTime(r.now(), prevTime)
	merged := DeepMerge(prevDoc, patch)
	merged[UpdatedAtField] = ts.Format(time.RFC3339Nano)
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	next := prevVersion + 1
	b := entsql.Dialect(dialect.SQLite)
	var query string
	var args []any
	if exists {
		query, args = b.Update(progressTableName).
			Set(colDocument, string(data)).
			Set(colVersion, next).
			Set(colUpdatedAt, ts).
			Where(entsql.And(keyPredicate(key), entsql.EQ(colVersion, prevVersion))).
			Query()
	} else {
		query, args = b.Insert(progressTableName).
			Columns(colUserID, colSubjectID, colTopicID, colDocument, colVersion, colCreatedAt, colUpdatedAt).
			Values(key.UserID, key.SubjectID, key.TopicID, string(data), next, ts, ts).
			Query()
	}

	var res sql.Result
	if err := tx.Exec(ctx, query, args, &res); err != nil {
		if sqlgraph.IsUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: %s created concurrently", ErrVersionConflict, key)
		}
		return nil, fmt.Errorf("write %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: %s changed during merge", ErrVersionConflict, key)
	}

	return &Record{Key: key, Document: merged, Version: next, UpdatedAt: ts}, nil
}

func keyPredicate(key Key) *entsql.Predicate {
	return entsql.And(
		entsql.EQ(colUserID, key.UserID),
		entsql.EQ(colSubjectID, key.SubjectID),
		entsql.EQ(colTopicID, key.TopicID),
	)
}

func selectRecord(ctx context.Context, q dialect.ExecQuerier, key Key) (*Record, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(colDocument, colVersion, colUpdatedAt).
		From(entsql.Table(progressTableName)).
		Where(keyPredicate(key)).
		Limit(1).
		Query()

	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query %s: %w", key, err)
		}
		return nil, ErrNotFound
	}

	var (
		data    []byte
		version int64
		updated sql.NullTime
	)
	if err := rows.Scan(&data, &version, &updated); err != nil {
		return nil, fmt.Errorf("scan %s: %w", key, err)
	}

	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &Record{Key: key, Document: doc, Version: version, UpdatedAt: updated.Time}, nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. NURTURE_DB environment variable
// 2. $XDG_DATA_HOME/nurture/nurture.db
// 3. ~/.local/share/nurture/nurture.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("NURTURE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "nurture", "nurture.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
