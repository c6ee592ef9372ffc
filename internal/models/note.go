package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// CategoryAll is the wildcard category that disables category filtering.
const CategoryAll = "All"

// Note is a catalog entry describing one uploaded file.
type Note struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Category    string    `db:"category" json:"category"`
	Subject     string    `db:"subject" json:"subject"`
	Description string    `db:"description" json:"description"`
	UploaderID  string    `db:"uploader_id" json:"uploader_id"`
	UploadDate  time.Time `db:"upload_date" json:"upload_date"`
	Downloads   int64     `db:"downloads" json:"downloads"`
	Tags        Tags      `db:"tags" json:"tags"`
	BlobLocator string    `db:"blob_locator" json:"-"`
	FileName    string    `db:"file_name" json:"file_name"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	RatingSum   int64     `db:"rating_sum" json:"rating_sum"`
	RatingCount int64     `db:"rating_count" json:"rating_count"`
}

// AverageRating returns rating_sum / rating_count rounded to one decimal, or
// zero for an unrated note.
func (n *Note) AverageRating() float64 {
	return RoundedAverage(n.RatingSum, n.RatingCount)
}

// RoundedAverage divides sum by count and rounds to one decimal place.
func RoundedAverage(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*10) / 10
}

// NoteView is the read projection returned by catalog queries.
type NoteView struct {
	Note
	UploaderName    string  `db:"uploader_name" json:"uploader_name"`
	AvgRating       float64 `db:"-" json:"avg_rating"`
	DescriptionHTML string  `db:"-" json:"description_html"`
	FileSizeHuman   string  `db:"-" json:"file_size_human"`
}

// SortKey selects the ordering of search results.
type SortKey string

const (
	SortRecent  SortKey = "recent"
	SortPopular SortKey = "popular"
	SortRating  SortKey = "rating"
)

// ErrUnknownSort is returned by ParseSortKey for unsupported keys.
var ErrUnknownSort = errors.New("unknown sort key")

// ParseSortKey accepts recent, popular or rating. An empty value means recent.
func ParseSortKey(raw string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case "":
		return SortRecent, nil
	case SortRecent, SortPopular, SortRating:
		return key, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSort, raw)
	}
}

// SearchQuery captures the browse filters.
type SearchQuery struct {
	Text     string  `json:"q"`
	Category string  `json:"category"`
	Sort     SortKey `json:"sort"`
}

// FiltersCategory reports whether the query restricts results to one category.
func (q SearchQuery) FiltersCategory() bool {
	c := strings.TrimSpace(q.Category)
	return c != "" && c != CategoryAll
}

// Tags is an ordered tag list persisted as a JSON array string.
type Tags []string

// ParseTags splits a comma separated list, trimming entries and dropping
// empty ones while keeping their order.
func ParseTags(raw string) Tags {
	tags := Tags{}
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]string(t)); err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan tags: unsupported type %T", src)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}
