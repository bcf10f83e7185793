package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joeblew999/plat-gallery/internal/db"
)

// MaxCoverBytes bounds the size of an uploaded cover.
const MaxCoverBytes = 8 << 20

// CoverPath is the URL prefix covers are served under.
const CoverPath = "/api/v1/covers/"

var coverKeyRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidCoverKey reports whether key can name a stored cover.
func ValidCoverKey(key string) bool {
	return len(key) <= 200 && coverKeyRe.MatchString(key) && key != "." && key != ".."
}

// CoverBlob is a stored cover image.
type CoverBlob struct {
	Key         string
	ContentType string
	Data        []byte
	UpdatedAt   time.Time
}

// CoverStore stores cover images by key.
type CoverStore interface {
	Put(ctx context.Context, blob CoverBlob) error
	Get(ctx context.Context, key string) (CoverBlob, error)
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

const coversSchema = `CREATE TABLE IF NOT EXISTS covers (
	key          VARCHAR PRIMARY KEY,
	content_type VARCHAR NOT NULL,
	data         BLOB NOT NULL,
	updated_at   TIMESTAMP NOT NULL
)`

// DuckDBCovers is a CoverStore backed by a DuckDB table.
type DuckDBCovers struct {
	conn *sql.DB
	bus  *EventBus
	now  func() time.Time
}

// NewDuckDBCovers creates the covers table if needed.
func NewDuckDBCovers(ctx context.Context, conn *sql.DB, bus *EventBus) (*DuckDBCovers, error) {
	if err := db.Migrate(ctx, conn, coversSchema); err != nil {
		return nil, err
	}
	return &DuckDBCovers{
		conn: conn,
		bus:  bus,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *DuckDBCovers) Put(ctx context.Context, blob CoverBlob) error {
	if !ValidCoverKey(blob.Key) {
		return fmt.Errorf("%q: %w", blob.Key, ErrInvalidKey)
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO covers (key, content_type, data, updated_at) VALUES (?, ?, ?, ?)`,
		blob.Key, blob.ContentType, blob.Data, s.now())
	if err != nil {
		return fmt.Errorf("put cover %q: %w", blob.Key, err)
	}
	s.bus.Publish(Event{Resource: ResourceCovers, Action: ActionUpdated, ID: blob.Key})
	return nil
}

func (s *DuckDBCovers) Get(ctx context.Context, key string) (CoverBlob, error) {
	blob := CoverBlob{Key: key}
	err := s.conn.QueryRowContext(ctx,
		`SELECT content_type, data, updated_at FROM covers WHERE key = ?`, key).
		Scan(&blob.ContentType, &blob.Data, &blob.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CoverBlob{}, fmt.Errorf("cover %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return CoverBlob{}, fmt.Errorf("get cover %q: %w", key, err)
	}
	return blob, nil
}

func (s *DuckDBCovers) Has(ctx context.Context, key string) (bool, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM covers WHERE key = ?`, key).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *DuckDBCovers) Delete(ctx context.Context, key string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM covers WHERE key = ?`, key)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("cover %q: %w", key, ErrNotFound)
	}
	s.bus.Publish(Event{Resource: ResourceCovers, Action: ActionDeleted, ID: key})
	return nil
}

func (s *DuckDBCovers) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT key FROM covers ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// MemoryCovers is an in-process CoverStore.
type MemoryCovers struct {
	mu    sync.RWMutex
	blobs map[string]CoverBlob
	bus   *EventBus
}

// NewMemoryCovers returns an empty store.
func NewMemoryCovers(bus *EventBus) *MemoryCovers {
	return &MemoryCovers{blobs: map[string]CoverBlob{}, bus: bus}
}

func (s *MemoryCovers) Put(_ context.Context, blob CoverBlob) error {
	if !ValidCoverKey(blob.Key) {
		return fmt.Errorf("%q: %w", blob.Key, ErrInvalidKey)
	}
	blob.Data = append([]byte(nil), blob.Data...)
	blob.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.blobs[blob.Key] = blob
	s.mu.Unlock()

	s.bus.Publish(Event{Resource: ResourceCovers, Action: ActionUpdated, ID: blob.Key})
	return nil
}

func (s *MemoryCovers) Get(_ context.Context, key string) (CoverBlob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return CoverBlob{}, fmt.Errorf("cover %q: %w", key, ErrNotFound)
	}
	return blob, nil
}

func (s *MemoryCovers) Has(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *MemoryCovers) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	_, ok := s.blobs[key]
	delete(s.blobs, key)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("cover %q: %w", key, ErrNotFound)
	}
	s.bus.Publish(Event{Resource: ResourceCovers, Action: ActionDeleted, ID: key})
	return nil
}

func (s *MemoryCovers) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// CoverResolver maps cover references to image sources. Absolute image URLs
// and data URLs pass through; anything else must be a key in the store.
type CoverResolver struct {
	Store   CoverStore
	Timeout time.Duration
}

// Resolve implements marker.Resolver.
func (r CoverResolver) Resolve(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	if strings.HasPrefix(key, "data:image/") {
		return key, true
	}
	if u, err := url.Parse(key); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return key, true
	}
	if r.Store == nil || !ValidCoverKey(key) {
		return "", false
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ok, err := r.Store.Has(ctx, key)
	if err != nil || !ok {
		return "", false
	}
	return CoverPath + url.PathEscape(key), true
}
