// Package domain defines the documents persisted by the LevelUp backend and
// the value types shared by the repository, service and HTTP layers.
//
// Every persisted record embeds BaseEntity and implements Entity. Each entity
// derives its partition key from its own immutable fields (its id, its owning
// user, a fixed date, or a fixed leaderboard type); the pair (ID, PartitionKey)
// addresses exactly one document within a collection.
package domain

import "time"

// DateLayout is the wire and partition-key format for date-only fields.
const DateLayout = "2006-01-02"

// BaseEntity carries the fields common to every stored document.
//
// Fields:
//   - ID: globally unique identifier, generated on create when empty.
//   - CreatedAt: set once by the repository on create.
//   - UpdatedAt: refreshed by the repository on every update/upsert.
//   - ETag: opaque concurrency token assigned by the store on each write.
type BaseEntity struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	ETag      string     `json:"_etag,omitempty"`
}

// Meta gives repositories access to the embedded base fields.
func (b *BaseEntity) Meta() *BaseEntity { return b }

// Entity is implemented by every persisted document type (through a pointer,
// since Meta mutates the embedded BaseEntity).
type Entity interface {
	Meta() *BaseEntity
	PartitionKey() string
}

// FormatDate renders t as a yyyy-MM-dd string in UTC.
func FormatDate(t time.Time) string { return t.UTC().Format(DateLayout) }

// ParseDate parses a yyyy-MM-dd string.
func ParseDate(s string) (time.Time, error) { return time.Parse(DateLayout, s) }

// WeekStart returns the Monday (UTC) of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
