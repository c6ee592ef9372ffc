package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/sma-notes-api/internal/models"
	appErrors "github.com/noah-isme/sma-notes-api/pkg/errors"
	"github.com/noah-isme/sma-notes-api/pkg/storage"
)

// memCatalog is an in-memory stand-in for the note, rating and download
// repositories sharing one set of tables.
type memCatalog struct {
	notes     map[string]*models.Note
	usernames map[string]string
	ratings   map[string]*models.Rating
	events    []models.DownloadEvent
	createErr error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		notes:     make(map[string]*models.Note),
		usernames: make(map[string]string),
		ratings:   make(map[string]*models.Rating),
	}
}

func ratingKey(noteID, userID string) string { return noteID + "/" + userID }

func (m *memCatalog) add(note models.Note) {
	n := note
	m.notes[n.ID] = &n
}

func (m *memCatalog) Create(ctx context.Context, note *models.Note) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.add(*note)
	return nil
}

func (m *memCatalog) FindByID(ctx context.Context, id string) (*models.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *n
	return &cp, nil
}

func (m *memCatalog) view(n *models.Note) models.NoteView {
	return models.NoteView{Note: *n, UploaderName: m.usernames[n.UploaderID]}
}

func (m *memCatalog) FindView(ctx context.Context, id string) (*models.NoteView, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	v := m.view(n)
	return &v, nil
}

func (m *memCatalog) Categories(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, n := range m.notes {
		if _, ok := seen[n.Category]; !ok {
			seen[n.Category] = struct{}{}
			out = append(out, n.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memCatalog) Delete(ctx context.Context, id string) error {
	if _, ok := m.notes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.notes, id)
	for key, r := range m.ratings {
		if r.NoteID == id {
			delete(m.ratings, key)
		}
	}
	kept := m.events[:0]
	for _, e := range m.events {
		if e.NoteID != id {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

func (m *memCatalog) Search(ctx context.Context, q models.SearchQuery) ([]models.NoteView, error) {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	var out []models.NoteView
	for _, n := range m.notes {
		if q.FiltersCategory() && n.Category != q.Category {
			continue
		}
		if text != "" {
			tags, _ := n.Tags.Value()
			haystack := strings.ToLower(strings.Join([]string{n.Title, n.Description, n.Subject, fmt.Sprint(tags)}, "\x00"))
			if !strings.Contains(haystack, text) {
				continue
			}
		}
		out = append(out, m.view(n))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case models.SortPopular:
			if a.Downloads != b.Downloads {
				return a.Downloads > b.Downloads
			}
		case models.SortRating:
			if a.AverageRating() != b.AverageRating() {
				return a.AverageRating() > b.AverageRating()
			}
		}
		if !a.UploadDate.Equal(b.UploadDate) {
			return a.UploadDate.After(b.UploadDate)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *memCatalog) ListByUploader(ctx context.Context, uploaderID string) ([]models.NoteView, error) {
	all, _ := m.Search(ctx, models.SearchQuery{Sort: models.SortRecent})
	var out []models.NoteView
	for _, v := range all {
		if v.UploaderID == uploaderID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memCatalog) Upsert(ctx context.Context, rating *models.Rating) (*models.RatingSummary, error) {
	note, ok := m.notes[rating.NoteID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	r := *rating
	m.ratings[ratingKey(r.NoteID, r.UserID)] = &r

	var sum, count int64
	for _, existing := range m.ratings {
		if existing.NoteID == note.ID {
			sum += int64(existing.Rating)
			count++
		}
	}
	note.RatingSum, note.RatingCount = sum, count
	return &models.RatingSummary{NoteID: note.ID, RatingSum: sum, RatingCount: count, AvgRating: models.RoundedAverage(sum, count)}, nil
}

func (m *memCatalog) ListForNote(ctx context.Context, noteID string) ([]models.RatingView, error) {
	var out []models.RatingView
	for _, r := range m.ratings {
		if r.NoteID == noteID {
			out = append(out, models.RatingView{Rating: *r, Username: m.usernames[r.UserID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memCatalog) Record(ctx context.Context, event *models.DownloadEvent) (*models.Note, error) {
	note, ok := m.notes[event.NoteID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	note.Downloads++
	m.events = append(m.events, *event)
	cp := *note
	return &cp, nil
}

func (m *memCatalog) eventsFor(noteID, userID string) int {
	count := 0
	for _, e := range m.events {
		if e.NoteID == noteID && e.UserID == userID {
			count++
		}
	}
	return count
}

type memBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	deleteErr error
	deleted   []string
	seq       int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Put(ctx context.Context, r io.Reader, suggestedName string) (storage.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return storage.Object{}, b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Object{}, err
	}
	b.seq++
	locator := fmt.Sprintf("%03d_%s", b.seq, storage.SanitizeName(suggestedName))
	b.objects[locator] = data
	return storage.Object{Locator: locator, Size: int64(len(data))}, nil
}

func (b *memBlobs) Get(ctx context.Context, locator string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[locator]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(ctx context.Context, locator string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, locator)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.objects, locator)
	return nil
}

// memCache is a CacheRepository backed by a map of JSON payloads.
type memCache struct {
	entries     map[string][]byte
	counters    map[string]int64
	gets        int
	invalidated []string
	getErr      error
	counterErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte), counters: make(map[string]int64)}
}

func (c *memCache) Counter(ctx context.Context, key string) (int64, error) {
	if c.counterErr != nil {
		return 0, c.counterErr
	}
	return c.counters[key], nil
}

func (c *memCache) Incr(ctx context.Context, key string) (int64, error) {
	if c.counterErr != nil {
		return 0, c.counterErr
	}
	c.counters[key]++
	return c.counters[key], nil
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.gets++
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func studentSession(id string) *models.Session {
	return &models.Session{SessionID: "s-" + id, UserID: id, Username: id, Role: models.RoleStudent}
}

func adminSession(id string) *models.Session {
	return &models.Session{SessionID: "s-" + id, UserID: id, Username: id, Role: models.RoleAdmin}
}
