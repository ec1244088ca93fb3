package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"rooneyform-scraper/models"
)

// MemorySource serves a fixed set of messages. It backs offline replays
// (LoadDump) and tests.
type MemorySource struct {
	messages []models.RawMessage
	load     func(key string) ([]byte, error)

	// Downloaded records every photo key served, in order.
	Downloaded []string
}

// NewMemorySource builds a source over msgs with photo bytes keyed by PhotoRef.Key.
func NewMemorySource(msgs []models.RawMessage, photos map[string][]byte) *MemorySource {
	return newMemorySource(msgs, func(key string) ([]byte, error) {
		b, ok := photos[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoPhoto, key)
		}
		return b, nil
	})
}

func newMemorySource(msgs []models.RawMessage, load func(string) ([]byte, error)) *MemorySource {
	sorted := make([]models.RawMessage, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })
	return &MemorySource{messages: sorted, load: load}
}

func (s *MemorySource) Messages(ctx context.Context) Iterator {
	return &sliceIterator{msgs: s.messages}
}

func (s *MemorySource) Window(ctx context.Context, lo, hi int64) ([]models.RawMessage, error) {
	var out []models.RawMessage
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.ID >= lo && m.ID <= hi {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemorySource) Download(ctx context.Context, ref models.PhotoRef, w io.Writer) error {
	b, err := s.load(ref.Key)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("telegram: write photo %s: %w", ref.Key, err)
	}
	s.Downloaded = append(s.Downloaded, ref.Key)
	return nil
}

type dumpFile struct {
	Messages []dumpMessage `json:"messages"`
}

type dumpMessage struct {
	ID               int64     `json:"id"`
	Text             string    `json:"text"`
	Date             time.Time `json:"date"`
	Photo            string    `json:"photo"`
	LinkPreviewPhoto string    `json:"link_preview_photo"`
	GroupID          string    `json:"group_id"`
}

// LoadDump reads a JSON replay file. Photo paths are resolved relative to
// the dump's directory.
func LoadDump(path string) (*MemorySource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("telegram: read dump: %w", err)
	}

	var dump dumpFile
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, fmt.Errorf("telegram: decode dump %q: %w", path, err)
	}

	msgs := make([]models.RawMessage, 0, len(dump.Messages))
	for _, d := range dump.Messages {
		m := models.RawMessage{
			ID:      d.ID,
			Text:    d.Text,
			Date:    d.Date,
			GroupID: d.GroupID,
		}
		if d.Photo != "" {
			m.Photo = &models.PhotoRef{Key: d.Photo}
		}
		if d.LinkPreviewPhoto != "" {
			m.LinkPreviewPhoto = &models.PhotoRef{Key: d.LinkPreviewPhoto}
		}
		msgs = append(msgs, m)
	}

	dir := filepath.Dir(path)
	return newMemorySource(msgs, func(key string) ([]byte, error) {
		b, err := os.ReadFile(filepath.Join(dir, key))
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoPhoto, key)
		}
		return b, err
	}), nil
}
