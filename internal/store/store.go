// # internal/store/store.go

// Package store persists analysis passes to sqlite: one row per pass plus
// the full dependents graph, so a restart can reload the last known state
// and pass history stays queryable.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"recompile/internal/deps"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Pass is the persisted record of one analysis pass.
type Pass struct {
	ID             string
	ProjectKey     string
	Timestamp      time.Time
	CommitHash     string
	CommitTime     time.Time
	FileCount      int
	ClassCount     int
	EdgeCount      int
	UnboundedCount int
	Duration       time.Duration
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SavePass records the pass and its full graph. The pass ID is generated
// when empty; the filled-in Pass is returned.
func (s *Store) SavePass(pass Pass, graph *deps.Graph) (Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pass.ID == "" {
		pass.ID = uuid.NewString()
	}
	if pass.ProjectKey == "" {
		pass.ProjectKey = "default"
	}
	if pass.Timestamp.IsZero() {
		pass.Timestamp = time.Now().UTC()
	}
	pass.ClassCount = graph.ClassCount()
	pass.EdgeCount = graph.EdgeCount()
	pass.UnboundedCount = graph.UnboundedCount()

	commitTS := ""
	if !pass.CommitTime.IsZero() {
		commitTS = pass.CommitTime.UTC().Format(time.RFC3339Nano)
	}

	err := s.withRetry("save pass", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
INSERT INTO passes (
  id, project_key, schema_version, ts_utc, commit_hash, commit_ts_utc,
  file_count, class_count, edge_count, unbounded_count, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pass.ID,
			pass.ProjectKey,
			SchemaVersion,
			pass.Timestamp.UTC().Format(time.RFC3339Nano),
			pass.CommitHash,
			commitTS,
			pass.FileCount,
			pass.ClassCount,
			pass.EdgeCount,
			pass.UnboundedCount,
			pass.Duration.Milliseconds(),
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}

		entryStmt, err := tx.Prepare(`INSERT INTO class_entries (pass_id, class, unbounded) VALUES (?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer entryStmt.Close()

		depStmt, err := tx.Prepare(`INSERT INTO class_dependents (pass_id, class, dependent) VALUES (?, ?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		defer depStmt.Close()

		for _, class := range graph.Classes() {
			entry := graph.DependentsOf(class)
			unbounded := 0
			if entry.UnboundedImpact() {
				unbounded = 1
			}
			if _, err := entryStmt.Exec(pass.ID, class, unbounded); err != nil {
				_ = tx.Rollback()
				return err
			}
			// Unbounded classes keep their recorded edges too; the reloaded
			// graph must answer transitive queries the same way.
			for _, dependent := range entry.DirectDependents() {
				if _, err := depStmt.Exec(pass.ID, class, dependent); err != nil {
					_ = tx.Rollback()
					return err
				}
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return Pass{}, err
	}
	return pass, nil
}

// LoadLatestPass returns the most recent pass for the project, or
// sql.ErrNoRows wrapped when none exists.
func (s *Store) LoadLatestPass(projectKey string) (Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLatestPassLocked(projectKey)
}

func (s *Store) loadLatestPassLocked(projectKey string) (Pass, error) {
	if projectKey == "" {
		projectKey = "default"
	}

	var (
		pass        Pass
		tsRaw       string
		commitTSRaw string
		durationMS  int64
	)
	err := s.withRetry("load latest pass", func() error {
		return s.db.QueryRow(`
SELECT id, project_key, ts_utc, commit_hash, commit_ts_utc,
       file_count, class_count, edge_count, unbounded_count, duration_ms
FROM passes WHERE project_key = ?
ORDER BY ts_utc DESC LIMIT 1`, projectKey).Scan(
			&pass.ID,
			&pass.ProjectKey,
			&tsRaw,
			&pass.CommitHash,
			&commitTSRaw,
			&pass.FileCount,
			&pass.ClassCount,
			&pass.EdgeCount,
			&pass.UnboundedCount,
			&durationMS,
		)
	})
	if err != nil {
		return Pass{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return Pass{}, fmt.Errorf("parse pass timestamp %q: %w", tsRaw, err)
	}
	pass.Timestamp = ts.UTC()

	if commitTSRaw != "" {
		commitTS, err := time.Parse(time.RFC3339Nano, commitTSRaw)
		if err != nil {
			return Pass{}, fmt.Errorf("parse commit timestamp %q: %w", commitTSRaw, err)
		}
		pass.CommitTime = commitTS.UTC()
	}
	pass.Duration = time.Duration(durationMS) * time.Millisecond

	return pass, nil
}

// LoadLatestGraph rebuilds the dependents graph of the most recent pass.
func (s *Store) LoadLatestGraph(projectKey string) (Pass, *deps.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pass, err := s.loadLatestPassLocked(projectKey)
	if err != nil {
		return Pass{}, nil, err
	}

	builder := deps.NewBuilder()

	err = s.withRetry("load class entries", func() error {
		rows, err := s.db.Query(`SELECT class, unbounded FROM class_entries WHERE pass_id = ?`, pass.ID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var class string
			var unbounded int
			if err := rows.Scan(&class, &unbounded); err != nil {
				return err
			}
			builder.Declare(class)
			if unbounded == 1 {
				builder.MarkUnbounded(class)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return Pass{}, nil, err
	}

	err = s.withRetry("load class dependents", func() error {
		rows, err := s.db.Query(`SELECT class, dependent FROM class_dependents WHERE pass_id = ?`, pass.ID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var class, dependent string
			if err := rows.Scan(&class, &dependent); err != nil {
				return err
			}
			builder.AddDependent(class, dependent)
		}
		return rows.Err()
	})
	if err != nil {
		return Pass{}, nil, err
	}

	return pass, builder.Build(), nil
}

// LoadPasses returns passes for the project since the given time, oldest
// first.
func (s *Store) LoadPasses(projectKey string, since time.Time) ([]Pass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if projectKey == "" {
		projectKey = "default"
	}

	query := `
SELECT id, project_key, ts_utc, commit_hash, commit_ts_utc,
       file_count, class_count, edge_count, unbounded_count, duration_ms
FROM passes WHERE project_key = ?`
	args := []any{projectKey}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc ASC"

	var rows *sql.Rows
	err := s.withRetry("load passes", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	passes := make([]Pass, 0)
	for rows.Next() {
		var (
			pass        Pass
			tsRaw       string
			commitTSRaw string
			durationMS  int64
		)
		if err := rows.Scan(
			&pass.ID,
			&pass.ProjectKey,
			&tsRaw,
			&pass.CommitHash,
			&commitTSRaw,
			&pass.FileCount,
			&pass.ClassCount,
			&pass.EdgeCount,
			&pass.UnboundedCount,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan pass row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse pass timestamp %q: %w", tsRaw, err)
		}
		pass.Timestamp = ts.UTC()

		if commitTSRaw != "" {
			commitTS, err := time.Parse(time.RFC3339Nano, commitTSRaw)
			if err != nil {
				return nil, fmt.Errorf("parse commit timestamp %q: %w", commitTSRaw, err)
			}
			pass.CommitTime = commitTS.UTC()
		}
		pass.Duration = time.Duration(durationMS) * time.Millisecond

		passes = append(passes, pass)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pass rows: %w", err)
	}

	return passes, nil
}

// Prune deletes all but the newest keep passes for the project. keep <= 0
// is a no-op.
func (s *Store) Prune(projectKey string, keep int) error {
	if keep <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if projectKey == "" {
		projectKey = "default"
	}

	return s.withRetry("prune passes", func() error {
		_, err := s.db.Exec(`
DELETE FROM passes WHERE project_key = ? AND id NOT IN (
  SELECT id FROM passes WHERE project_key = ? ORDER BY ts_utc DESC LIMIT ?
)`, projectKey, projectKey, keep)
		return err
	})
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
