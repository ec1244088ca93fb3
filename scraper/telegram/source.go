// Package telegram reads messages and photos from a public Telegram channel.
//
// Every Source yields messages newest-first (descending message id). Callers
// that keep "first seen" semantics, such as listing deduplication, therefore
// keep the most recent post.
package telegram

import (
	"context"
	"errors"
	"io"

	"rooneyform-scraper/models"
)

var (
	// ErrChannelNotFound is returned when the channel does not exist or is not public.
	ErrChannelNotFound = errors.New("telegram: channel not found")
	// ErrNoPhoto is returned when a photo reference cannot be resolved.
	ErrNoPhoto = errors.New("telegram: photo not found")
)

// Iterator walks a channel's history. Next returns io.EOF once exhausted.
type Iterator interface {
	Next(ctx context.Context) (*models.RawMessage, error)
}

// Source is a read-only view of one channel.
type Source interface {
	// Messages iterates the history newest-first.
	Messages(ctx context.Context) Iterator
	// Window returns the messages with lo <= id <= hi, ascending by id.
	Window(ctx context.Context, lo, hi int64) ([]models.RawMessage, error)
	// Download streams the bytes of ref into w.
	Download(ctx context.Context, ref models.PhotoRef, w io.Writer) error
}

// sliceIterator yields a fixed, already ordered slice.
type sliceIterator struct {
	msgs []models.RawMessage
	pos  int
}

func (it *sliceIterator) Next(ctx context.Context) (*models.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.msgs) {
		return nil, io.EOF
	}
	m := it.msgs[it.pos]
	it.pos++
	return &m, nil
}
