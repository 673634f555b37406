package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"postscheduler/pkg/scheduler"
)

// ObjectStore keeps one JSON object per post record, in a Cloud Storage
// bucket or, when localPath is set, in a local directory for development.
type ObjectStore struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
}

// NewObjectStore creates an object-backed post store.
func NewObjectStore(client *storage.Client, bucket, localPath string, logger *slog.Logger) *ObjectStore {
	return &ObjectStore{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// postKey generates a stable object name from a record ID.
// Validates that the ID is a safe lowercase UUID-ish string to prevent path
// traversal through crafted IDs.
func postKey(id string) string {
	if id == "" || len(id) > 64 {
		return ""
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || c == '-') {
			return ""
		}
	}
	return fmt.Sprintf("post-%s.json", id)
}

// Insert assigns the ID and bookkeeping timestamps and writes the record.
func (s *ObjectStore) Insert(ctx context.Context, post *scheduler.ScheduledPost) (*scheduler.ScheduledPost, error) {
	now := time.Now().UTC()
	saved := *post
	saved.ID = uuid.New().String()
	saved.CreatedAt = now
	saved.UpdatedAt = now
	if saved.Status == "" {
		saved.Status = scheduler.StatusPending
	}

	if err := s.save(ctx, &saved); err != nil {
		return nil, err
	}
	s.logger.Info("Post record created",
		"id", saved.ID,
		"platform", saved.Platform,
		"scheduled_at", saved.ScheduledAt.Format(time.RFC3339))
	return &saved, nil
}

func (s *ObjectStore) save(ctx context.Context, post *scheduler.ScheduledPost) error {
	key := postKey(post.ID)
	if key == "" {
		return errors.New("invalid record ID format")
	}

	data, err := json.MarshalIndent(post, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	// Local filesystem storage
	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, key)
		if err := os.WriteFile(filePath, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying save operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}
	return nil
}

func (s *ObjectStore) load(ctx context.Context, key string) (*scheduler.ScheduledPost, error) {
	if key == "" {
		return nil, errors.New("invalid key format")
	}

	var data []byte

	// Local filesystem storage
	if s.localPath != "" {
		var err error
		filePath := filepath.Join(s.localPath, key)
		data, err = os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.New("store: record doesn't exist")
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		// Cloud Storage with retry logic for reliability
		var readData []byte
		err := retry.Do(
			func() error {
				r, openErr := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
				if openErr != nil {
					// Don't retry on "not found" errors
					if errors.Is(openErr, storage.ErrObjectNotExist) {
						return retry.Unrecoverable(errors.New("store: record doesn't exist"))
					}
					return fmt.Errorf("open storage reader: %w", openErr)
				}
				defer func() {
					if closeErr := r.Close(); closeErr != nil {
						s.logger.Warn("Failed to close storage reader", "error", closeErr)
					}
				}()

				var readErr error
				readData, readErr = io.ReadAll(r)
				if readErr != nil {
					return fmt.Errorf("read from storage: %w", readErr)
				}
				return nil
			},
			retry.Attempts(3),
			retry.Delay(time.Second),
			retry.MaxDelay(2*time.Minute),
			retry.MaxJitter(10*time.Second),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, retryErr error) {
				s.logger.Info("Retrying load operation after error", "attempt", n, "key", key, "error", retryErr)
			}),
		)
		if err != nil {
			if strings.Contains(err.Error(), "store: record doesn't exist") {
				return nil, errors.New("store: record doesn't exist")
			}
			return nil, fmt.Errorf("load after retries: %w", err)
		}
		data = readData
	}

	var post scheduler.ScheduledPost
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("unmarshal post: %w", err)
	}
	return &post, nil
}

// List returns records matching the filter.
func (s *ObjectStore) List(ctx context.Context, f Filter) ([]*scheduler.ScheduledPost, error) {
	var posts []*scheduler.ScheduledPost

	// Local filesystem storage
	if s.localPath != "" {
		entries, err := os.ReadDir(s.localPath)
		if err != nil {
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), "post-") || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			post, err := s.load(ctx, entry.Name())
			if err != nil {
				s.logger.Warn("Failed to load post record", "file", entry.Name(), "error", err)
				continue
			}
			if f.Match(post) {
				posts = append(posts, post)
			}
		}
	} else {
		// Cloud Storage
		it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
			Prefix: "post-",
		})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("iterate storage: %w", err)
			}
			post, err := s.load(ctx, attrs.Name)
			if err != nil {
				s.logger.Warn("Failed to load post record", "key", attrs.Name, "error", err)
				continue
			}
			if f.Match(post) {
				posts = append(posts, post)
			}
		}
	}

	if f.OrderByScheduledAt {
		sortByScheduledAt(posts)
	}
	return posts, nil
}

// Update applies a partial patch to one record.
func (s *ObjectStore) Update(ctx context.Context, id string, p Patch) error {
	post, err := s.load(ctx, postKey(id))
	if err != nil {
		return err
	}
	p.Apply(post)
	if err := s.save(ctx, post); err != nil {
		return err
	}
	s.logger.Info("Post record updated", "id", id, "status", post.Status)
	return nil
}
