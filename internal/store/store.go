// Package store writes an extraction result into a new SQLite file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wham/gitlab-timereport/internal/model"
)

// ErrExists is returned when the target file is already present.
var ErrExists = errors.New("output file already exists")

// InsertError reports a row the database rejected.
type InsertError struct {
	Table  string
	Record any
	Err    error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("insert %s %v: %v", e.Table, e.Record, e.Err)
}

func (e *InsertError) Unwrap() error {
	return e.Err
}

// DB represents the database connection
type DB struct {
	db *sql.DB
}

// Create creates a new database file at path with the report schema.
// It fails with ErrExists if path is already present.
func Create(path string) (*DB, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrExists)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_locking_mode=EXCLUSIVE")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// SQLite works best with a single connection, and pragmas apply per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createAllTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create database tables: %w", err)
	}
	return &DB{db: db}, nil
}

// Close is a wrapper for sql.DB.Close
func (d *DB) Close() error {
	return d.db.Close()
}

// Save inserts res in foreign key order: users, projects, milestones, issues,
// merge requests, time logs. All rows go into one transaction; the first
// rejected row aborts it.
func (d *DB) Save(ctx context.Context, res *model.Result) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	w := &writer{ctx: ctx, tx: tx}
	for _, u := range res.Users {
		w.insert("User", u, "INSERT INTO User VALUES (?,?)", u.ID, u.Username)
	}
	for _, p := range res.Projects {
		w.insert("Project", p, "INSERT INTO Project VALUES (?,?)", p.ID, p.Name)
	}
	for _, m := range res.Milestones {
		w.insert("Milestone", m, "INSERT INTO Milestone VALUES (?,?)", m.ID, m.Name)
	}
	for _, i := range res.Issues {
		w.insert("Issue", i, "INSERT INTO Issue VALUES (?,?,?,?,?)", i.ID, i.IID, i.ProjectID, i.MilestoneID, i.Name)
	}
	for _, mr := range res.MergeRequests {
		w.insert("MergeRequest", mr, "INSERT INTO MergeRequest VALUES (?,?,?,?,?)", mr.ID, mr.IID, mr.ProjectID, mr.MilestoneID, mr.Name)
	}
	for _, tl := range res.TimeLogs {
		w.insert("TimeLog", tl, "INSERT INTO TimeLog VALUES (?,?,?,?,?)", tl.Time, tl.Date, tl.UserID, tl.IssueID, tl.MergeRequestID)
	}
	if w.err != nil {
		return w.err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	slog.Info("Database written",
		"users", len(res.Users), "projects", len(res.Projects), "milestones", len(res.Milestones),
		"issues", len(res.Issues), "merge_requests", len(res.MergeRequests), "time_logs", len(res.TimeLogs))
	return nil
}

// writer stops inserting after the first error.
type writer struct {
	ctx   context.Context
	tx    *sql.Tx
	stmts map[string]*sql.Stmt
	err   error
}

func (w *writer) insert(table string, record any, query string, args ...any) {
	if w.err != nil {
		return
	}
	if w.stmts == nil {
		w.stmts = make(map[string]*sql.Stmt)
	}
	stmt, ok := w.stmts[table]
	if !ok {
		var err error
		stmt, err = w.tx.PrepareContext(w.ctx, query)
		if err != nil {
			w.err = fmt.Errorf("failed to prepare insert into %s: %w", table, err)
			return
		}
		w.stmts[table] = stmt
	}
	if _, err := stmt.ExecContext(w.ctx, args...); err != nil {
		w.err = &InsertError{Table: table, Record: record, Err: err}
	}
}

// Write creates the database at path and saves res into it. On failure the
// partially written file is removed.
func Write(ctx context.Context, path string, res *model.Result) (err error) {
	db, err := Create(path)
	if err != nil {
		if errors.Is(err, ErrExists) {
			return err
		}
		removePartial(path)
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", cerr)
		}
		if err != nil {
			removePartial(path)
		}
	}()

	return db.Save(ctx, res)
}

func removePartial(path string) {
	for _, p := range []string{path, path + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove partial database", "path", p, "error", err)
		}
	}
}
