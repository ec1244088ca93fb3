package storage

import "rooneyform-scraper/models"

// ListingWriter is the interface any export backend must satisfy.
// Write reports how many listings it persisted.
type ListingWriter interface {
	Write(listings []*models.ListingRecord) (int, error)
	Close() error
}
