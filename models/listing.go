package models

import (
	"database/sql"
	"time"
)

// PhotoRef points at the bytes of one photo held by the channel source.
// Key is opaque to everything except the source that produced it.
type PhotoRef struct {
	Key string
}

// RawMessage is one item yielded by the channel source. Zero values mean
// "absent": no text, no timestamp, no photo, not part of an album.
type RawMessage struct {
	ID               int64
	Text             string
	Date             time.Time
	Photo            *PhotoRef
	LinkPreviewPhoto *PhotoRef
	GroupID          string
}

// HasText reports whether the message carries a non-empty body.
func (m *RawMessage) HasText() bool {
	return m.Text != ""
}

// Fields is the result of running the text extractor over one post.
// An invalid sql.NullString means the pattern did not match.
type Fields struct {
	Team      sql.NullString
	Brand     sql.NullString
	Season    sql.NullString
	KitType   sql.NullString
	Condition sql.NullString
	Price     sql.NullString
	Size      sql.NullString
	Color     sql.NullString
	Features  sql.NullString
	Contacts  sql.NullString
	Hashtags  sql.NullString
}

// DedupKey is the (team, season, kit type) triple that identifies a listing.
type DedupKey struct {
	Team    string
	Season  string
	KitType string
}

// Key returns the dedup triple, with absent fields as empty strings.
func (f Fields) Key() DedupKey {
	return DedupKey{
		Team:    f.Team.String,
		Season:  f.Season.String,
		KitType: f.KitType.String,
	}
}

// ListingRecord is one extracted post with its derived fields attached.
// It is built once and never mutated afterwards.
type ListingRecord struct {
	Fields

	UUID      string
	PhotoIDs  []string
	PostURL   string
	Published string

	MessageID int64
}

// PhotoAsset is one photo written to disk for a listing.
type PhotoAsset struct {
	ID              string
	ListingUUID     string
	SourceMessageID int64
	Path            string
}

// InsightReport holds the run summary computed over the exported listings.
type InsightReport struct {
	MessagesSeen      int
	RawRecords        int
	TotalListings     int
	DuplicatesDropped int
	PhotosSaved       int

	PricedListings int
	AveragePrice   float64
	MinPrice       int
	MaxPrice       int
	MostExpensive  *ListingRecord

	ListingsByTeam  map[string]int
	ListingsByBrand map[string]int
}
