package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"rooneyform-scraper/models"
	"rooneyform-scraper/scraper/telegram"
	"rooneyform-scraper/utils"
)

// PublishedLayout is the export format of a post's publication time.
const PublishedLayout = "2006-01-02 15:04:05"

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	Channel     string
	BaseURL     string
	MaxMessages int
	Location    *time.Location
	// PruneDuplicatePhotos removes the photo files of listings dropped by dedup.
	PruneDuplicatePhotos bool
	Logger               *utils.Logger
}

// Pipeline drives one scrape of a channel from first message to deduplicated records.
type Pipeline struct {
	source    telegram.Source
	extractor *Extractor
	collector *Collector
	opts      PipelineOptions
	logger    *utils.Logger
}

// Result is the outcome of one run.
type Result struct {
	// Records holds the deduplicated listings in first-seen order.
	Records []*models.ListingRecord
	// Dropped holds listings discarded as duplicates.
	Dropped []*models.ListingRecord

	MessagesSeen int
	RawRecords   int
	PhotosSaved  int
}

// NewPipeline wires the extractor and collector over source.
func NewPipeline(source telegram.Source, extractor *Extractor, collector *Collector, opts PipelineOptions) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.Discard()
	}
	return &Pipeline{
		source:    source,
		extractor: extractor,
		collector: collector,
		opts:      opts,
		logger:    logger,
	}
}

// Run reads up to MaxMessages messages in the order the source yields them
// (newest first), builds one record per message with text, and deduplicates.
// Any source or download error ends the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.logger.Info("[pipeline] Reading up to %d messages from %s", p.opts.MaxMessages, p.opts.Channel)

	res := &Result{}
	var records []*models.ListingRecord

	it := p.source.Messages(ctx)
	for res.MessagesSeen < p.opts.MaxMessages {
		msg, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline: read message: %w", err)
		}
		res.MessagesSeen++

		if !msg.HasText() {
			continue
		}

		rec, saved, err := p.process(ctx, msg)
		if err != nil {
			return nil, err
		}
		res.PhotosSaved += saved
		records = append(records, rec)

		if len(records)%50 == 0 {
			p.logger.Info("[pipeline] %d messages read, %d listings so far", res.MessagesSeen, len(records))
		}
	}

	res.RawRecords = len(records)
	res.Records, res.Dropped = Deduplicate(records)

	p.logger.Info("[pipeline] Deduplicated %d → %d listings (dropped %d)",
		res.RawRecords, len(res.Records), len(res.Dropped))

	if p.opts.PruneDuplicatePhotos {
		p.pruneDropped(res.Dropped)
	}
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, msg *models.RawMessage) (*models.ListingRecord, int, error) {
	fields := p.extractor.Extract(msg.Text)
	id := DeriveID(fields)

	assets, err := p.collector.Collect(ctx, msg, id)
	if err != nil {
		return nil, 0, fmt.Errorf("pipeline: message %d: %w", msg.ID, err)
	}

	photoIDs := make([]string, 0, len(assets))
	for _, a := range assets {
		photoIDs = append(photoIDs, a.ID)
	}

	return &models.ListingRecord{
		Fields:    fields,
		UUID:      id,
		PhotoIDs:  photoIDs,
		PostURL:   PostURL(p.opts.BaseURL, p.opts.Channel, msg.ID),
		Published: FormatPublished(msg.Date, p.opts.Location),
		MessageID: msg.ID,
	}, len(assets), nil
}

func (p *Pipeline) pruneDropped(dropped []*models.ListingRecord) {
	removed := 0
	for _, rec := range dropped {
		for _, photoID := range rec.PhotoIDs {
			err := os.Remove(p.collector.PhotoPath(rec.UUID, photoID))
			if err != nil && !os.IsNotExist(err) {
				p.logger.Warn("[pipeline] Could not remove duplicate photo %s: %v", photoID, err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		p.logger.Info("[pipeline] Removed %d photo(s) of duplicate listings", removed)
	}
}

// Deduplicate keeps the first record per (team, season, kit type) and
// returns the survivors in input order along with the dropped records.
func Deduplicate(records []*models.ListingRecord) (kept, dropped []*models.ListingRecord) {
	seen := make(map[models.DedupKey]struct{}, len(records))
	kept = make([]*models.ListingRecord, 0, len(records))

	for _, r := range records {
		key := r.Key()
		if _, dup := seen[key]; dup {
			dropped = append(dropped, r)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dropped
}

// PostURL builds the public link of a message, or "" when it cannot be built.
func PostURL(baseURL, channel string, messageID int64) string {
	if baseURL == "" || channel == "" {
		return ""
	}
	link, err := url.JoinPath(baseURL, channel, strconv.FormatInt(messageID, 10))
	if err != nil {
		return ""
	}
	return link
}

// FormatPublished renders t in loc, or "" for a missing timestamp.
func FormatPublished(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(PublishedLayout)
}
