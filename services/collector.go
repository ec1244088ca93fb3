package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"rooneyform-scraper/models"
	"rooneyform-scraper/utils"
)

// DefaultAlbumWindow is how many message ids past the triggering message an
// album scan looks at. Albums spanning more ids are truncated.
const DefaultAlbumWindow = 20

// MediaSource is the part of a channel source the collector needs.
type MediaSource interface {
	Window(ctx context.Context, lo, hi int64) ([]models.RawMessage, error)
	Download(ctx context.Context, ref models.PhotoRef, w io.Writer) error
}

// CollectorOptions configures a Collector.
type CollectorOptions struct {
	PhotosDir   string
	AlbumWindow int
	// DedupLinkPreview makes link-preview photos respect the processed-id set.
	DedupLinkPreview bool
	Logger           *utils.Logger
}

// Collector resolves and saves every photo belonging to one post.
type Collector struct {
	source           MediaSource
	photosDir        string
	window           int64
	dedupLinkPreview bool
	logger           *utils.Logger
	newID            func() string
}

// NewCollector creates a Collector reading photos from source.
func NewCollector(source MediaSource, opts CollectorOptions) *Collector {
	logger := opts.Logger
	if logger == nil {
		logger = utils.Discard()
	}
	return &Collector{
		source:           source,
		photosDir:        opts.PhotosDir,
		window:           int64(opts.AlbumWindow),
		dedupLinkPreview: opts.DedupLinkPreview,
		logger:           logger,
		newID:            func() string { return uuid.New().String() },
	}
}

// PhotoPath is where a photo of a listing is stored.
func (c *Collector) PhotoPath(listingUUID, photoID string) string {
	return filepath.Join(c.photosDir, listingUUID, photoID+".jpg")
}

// Collect downloads the photos of msg's post into the listing's directory and
// returns them in download order. Album siblings come first, ascending by id,
// then the message's own photo, then its link-preview photo. The first failed
// download aborts the call.
func (c *Collector) Collect(ctx context.Context, msg *models.RawMessage, listingUUID string) ([]models.PhotoAsset, error) {
	var assets []models.PhotoAsset
	processed := utils.NewIDSet()

	save := func(ref *models.PhotoRef, sourceID int64) error {
		asset, err := c.save(ctx, ref, listingUUID, sourceID)
		if err != nil {
			return err
		}
		assets = append(assets, asset)
		return nil
	}

	if msg.GroupID != "" {
		hi := msg.ID + c.window
		siblings, err := c.source.Window(ctx, msg.ID, hi)
		if err != nil {
			return nil, fmt.Errorf("collector: scan album of message %d: %w", msg.ID, err)
		}
		for i := range siblings {
			sib := &siblings[i]
			if sib.ID > hi {
				break
			}
			if sib.GroupID != msg.GroupID || sib.Photo == nil {
				continue
			}
			if !processed.Add(sib.ID) {
				continue
			}
			if err := save(sib.Photo, sib.ID); err != nil {
				return nil, err
			}
		}
	}

	if msg.Photo != nil && processed.Add(msg.ID) {
		if err := save(msg.Photo, msg.ID); err != nil {
			return nil, err
		}
	}

	if msg.LinkPreviewPhoto != nil {
		if !c.dedupLinkPreview || processed.Add(msg.ID) {
			if err := save(msg.LinkPreviewPhoto, msg.ID); err != nil {
				return nil, err
			}
		}
	}

	if len(assets) > 0 {
		c.logger.Debug("[collector] Message %d: saved %d photo(s) under %s", msg.ID, len(assets), listingUUID)
	}
	return assets, nil
}

func (c *Collector) save(ctx context.Context, ref *models.PhotoRef, listingUUID string, sourceID int64) (models.PhotoAsset, error) {
	dir := filepath.Join(c.photosDir, listingUUID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.PhotoAsset{}, fmt.Errorf("collector: create photo dir: %w", err)
	}

	id := c.newID()
	path := c.PhotoPath(listingUUID, id)
	f, err := os.Create(path)
	if err != nil {
		return models.PhotoAsset{}, fmt.Errorf("collector: create %q: %w", path, err)
	}

	if err := c.source.Download(ctx, *ref, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return models.PhotoAsset{}, fmt.Errorf("collector: download photo of message %d: %w", sourceID, err)
	}
	if err := f.Close(); err != nil {
		return models.PhotoAsset{}, fmt.Errorf("collector: close %q: %w", path, err)
	}

	return models.PhotoAsset{
		ID:              id,
		ListingUUID:     listingUUID,
		SourceMessageID: sourceID,
		Path:            path,
	}, nil
}
