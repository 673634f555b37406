package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"postscheduler/pkg/scheduler"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// SQLiteStore keeps post records in a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &SQLiteStore{db: db, logger: logger}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert assigns the ID and bookkeeping timestamps and writes the record.
func (s *SQLiteStore) Insert(ctx context.Context, post *scheduler.ScheduledPost) (*scheduler.ScheduledPost, error) {
	now := time.Now().UTC()
	saved := *post
	saved.ID = uuid.New().String()
	saved.CreatedAt = now
	saved.UpdatedAt = now
	// Second resolution, matching what the database stores, so the insert
	// receipt and a later read agree.
	saved.ScheduledAt = saved.ScheduledAt.UTC().Truncate(time.Second)
	if saved.Status == "" {
		saved.Status = scheduler.StatusPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts(id, platform, content, image_url, attachment_name, scheduled_at, status, response, error_message, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		saved.ID, string(saved.Platform), saved.Content, saved.ImageURL, saved.AttachmentName,
		saved.ScheduledAt.Format(time.RFC3339), string(saved.Status),
		saved.Response, saved.ErrorMessage,
		saved.CreatedAt.Format(time.RFC3339Nano), saved.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	s.logger.Info("Post record created",
		"id", saved.ID,
		"platform", saved.Platform,
		"scheduled_at", saved.ScheduledAt.Format(time.RFC3339))
	return &saved, nil
}

// List returns records matching the filter.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]*scheduler.ScheduledPost, error) {
	q := `SELECT id, platform, content, image_url, attachment_name, scheduled_at, status, response, error_message, created_at, updated_at FROM posts`
	var conds []string
	var args []any
	if f.Platform != nil {
		conds = append(conds, "platform = ?")
		args = append(args, string(*f.Platform))
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.ScheduledAtBefore != nil {
		// scheduled_at is stored at second resolution so the string
		// comparison below matches chronological order.
		conds = append(conds, "scheduled_at <= ?")
		args = append(args, f.ScheduledAtBefore.UTC().Truncate(time.Second).Format(time.RFC3339))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if f.OrderByScheduledAt {
		q += " ORDER BY scheduled_at ASC"
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("Failed to close rows", "error", closeErr)
		}
	}()

	var posts []*scheduler.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func scanPost(rows *sql.Rows) (*scheduler.ScheduledPost, error) {
	var post scheduler.ScheduledPost
	var platform, status, scheduledAt, createdAt, updatedAt string
	if err := rows.Scan(&post.ID, &platform, &post.Content, &post.ImageURL, &post.AttachmentName,
		&scheduledAt, &status, &post.Response, &post.ErrorMessage, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	post.Platform = scheduler.Platform(platform)
	post.Status = scheduler.Status(status)

	var err error
	if post.ScheduledAt, err = time.Parse(time.RFC3339Nano, scheduledAt); err != nil {
		return nil, fmt.Errorf("parse scheduled_at: %w", err)
	}
	if post.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if post.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &post, nil
}

// Update applies a partial patch to one record.
func (s *SQLiteStore) Update(ctx context.Context, id string, p Patch) error {
	var sets []string
	var args []any
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.Response != nil {
		sets = append(sets, "response = ?", "error_message = ''")
		args = append(args, *p.Response)
	}
	if p.ErrorMessage != nil {
		sets = append(sets, "error_message = ?", "response = ''")
		args = append(args, *p.ErrorMessage)
	}
	if !p.UpdatedAt.IsZero() {
		sets = append(sets, "updated_at = ?")
		args = append(args, p.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE posts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if n == 0 {
		return errors.New("store: record doesn't exist")
	}

	s.logger.Info("Post record updated", "id", id)
	return nil
}
