package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-gallery/internal/atlas"
)

// AlbumService manages albums, persisted as JSON in the data directory.
type AlbumService struct {
	dataDir string
	albums  map[string]Album
	bus     *EventBus
	now     func() time.Time
	loadErr error
	mu      sync.RWMutex
}

// NewAlbumService creates an album service and loads any saved albums.
// Mutations are published on bus when it is not nil. An albums file that
// cannot be parsed is logged and left untouched; the service serves nothing
// and rejects writes until it is repaired.
func NewAlbumService(dataDir string, bus *EventBus) *AlbumService {
	s := &AlbumService{
		dataDir: dataDir,
		albums:  make(map[string]Album),
		bus:     bus,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if err := s.loadFromDisk(); err != nil {
		s.loadErr = fmt.Errorf("%w: %v", ErrUnreadable, err)
		slog.Default().Error("load albums", "component", "albums", "file", s.configFile(), "error", err)
	}
	return s
}

// Err reports why the albums file could not be loaded, or nil.
func (s *AlbumService) Err() error {
	return s.loadErr
}

// List returns all albums, oldest first.
func (s *AlbumService) List() []Album {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Album, 0, len(s.albums))
	for _, a := range s.albums {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Entities returns the map entities for all albums, oldest first.
func (s *AlbumService) Entities() []atlas.Entity {
	albums := s.List()
	out := make([]atlas.Entity, len(albums))
	for i, a := range albums {
		out[i] = a.Entity()
	}
	return out
}

// Get returns an album by ID.
func (s *AlbumService) Get(id string) (Album, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.albums[id]
	return a, ok
}

// Create stores a new album under a freshly generated ID.
func (s *AlbumService) Create(a Album) (Album, error) {
	if a.ID == atlas.DraftID {
		return Album{}, ErrDraftID
	}
	if a.Position().IsZero() {
		return Album{}, ErrInvalidLocation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = NewAlbumID()
	}
	if _, exists := s.albums[a.ID]; exists {
		return Album{}, fmt.Errorf("album %q: %w", a.ID, ErrExists)
	}

	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	stampCover(&a, now)

	s.albums[a.ID] = a
	if err := s.saveToDisk(); err != nil {
		delete(s.albums, a.ID)
		return Album{}, err
	}

	s.bus.Publish(Event{Resource: ResourceAlbums, Action: ActionCreated, ID: a.ID})
	return a, nil
}

// Update replaces an album's editable fields.
func (s *AlbumService) Update(id string, a Album) (Album, error) {
	return s.mutate(id, func(cur Album) Album {
		a.ID = cur.ID
		a.CreatedAt = cur.CreatedAt
		if a.Images == nil {
			a.Images = cur.Images
		}
		return a
	})
}

// Move sets an album's location.
func (s *AlbumService) Move(id string, p atlas.LatLng) (Album, error) {
	return s.mutate(id, func(cur Album) Album {
		cur.Lat, cur.Lng = p.Lat, p.Lng
		return cur
	})
}

func (s *AlbumService) mutate(id string, fn func(Album) Album) (Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.albums[id]
	if !exists {
		return Album{}, fmt.Errorf("album %q: %w", id, ErrNotFound)
	}

	next := fn(cur)
	next.UpdatedAt = s.now()
	stampCover(&next, next.UpdatedAt)

	s.albums[id] = next
	if err := s.saveToDisk(); err != nil {
		s.albums[id] = cur
		return Album{}, err
	}

	s.bus.Publish(Event{Resource: ResourceAlbums, Action: ActionUpdated, ID: id})
	return next, nil
}

// Delete removes an album by ID.
func (s *AlbumService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.albums[id]
	if !exists {
		return fmt.Errorf("album %q: %w", id, ErrNotFound)
	}

	delete(s.albums, id)
	if err := s.saveToDisk(); err != nil {
		s.albums[id] = cur
		return err
	}

	s.bus.Publish(Event{Resource: ResourceAlbums, Action: ActionDeleted, ID: id})
	return nil
}

// NewAlbumID returns a permanent album ID.
func NewAlbumID() string {
	return "album_" + uuid.NewString()
}

func stampCover(a *Album, now time.Time) {
	if a.Cover == nil {
		return
	}
	if a.Cover.ID == "" {
		a.Cover.ID = uuid.NewString()
	}
	if a.Cover.AddedAt.IsZero() {
		a.Cover.AddedAt = now
	}
}

// configFile returns the path to the albums file.
func (s *AlbumService) configFile() string {
	return filepath.Join(s.dataDir, "albums.json")
}

// loadFromDisk loads albums from disk. A missing file is an empty store.
func (s *AlbumService) loadFromDisk() error {
	if s.dataDir == "" {
		return nil
	}
	data, err := os.ReadFile(s.configFile())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var albums map[string]Album
	if err := json.Unmarshal(data, &albums); err != nil {
		return err
	}
	delete(albums, atlas.DraftID)

	for id, a := range albums {
		s.albums[id] = a
	}
	return nil
}

// saveToDisk persists albums to disk.
func (s *AlbumService) saveToDisk() error {
	if s.dataDir == "" {
		return nil
	}
	if s.loadErr != nil {
		return s.loadErr
	}
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s.albums, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.configFile() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.configFile())
}
