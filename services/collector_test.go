package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rooneyform-scraper/models"
	"rooneyform-scraper/scraper/telegram"
)

func photo(key string) *models.PhotoRef {
	return &models.PhotoRef{Key: key}
}

func sequentialIDs(c *Collector) {
	n := 0
	c.newID = func() string {
		n++
		return fmt.Sprintf("photo-%d", n)
	}
}

func newTestCollector(t *testing.T, src MediaSource, mutate func(*CollectorOptions)) (*Collector, string) {
	t.Helper()
	dir := t.TempDir()
	opts := CollectorOptions{PhotosDir: dir, AlbumWindow: DefaultAlbumWindow}
	if mutate != nil {
		mutate(&opts)
	}
	c := NewCollector(src, opts)
	sequentialIDs(c)
	return c, dir
}

func TestCollectAlbum(t *testing.T) {
	msgs := []models.RawMessage{
		{ID: 100, Text: "caption", GroupID: "g1", Photo: photo("a")},
		{ID: 101, GroupID: "g1", Photo: photo("b")},
		{ID: 102, GroupID: "g1", Photo: photo("c")},
		{ID: 103, GroupID: "g2", Photo: photo("other")},
		{ID: 104, Text: "no photo", GroupID: "g1"},
	}
	src := telegram.NewMemorySource(msgs, map[string][]byte{
		"a": []byte("A"), "b": []byte("B"), "c": []byte("C"), "other": []byte("X"),
	})
	c, dir := newTestCollector(t, src, nil)

	assets, err := c.Collect(context.Background(), &msgs[0], "listing-1")
	require.NoError(t, err)
	require.Len(t, assets, 3)

	// the triggering message is downloaded once, by the album scan
	require.Equal(t, []string{"a", "b", "c"}, src.Downloaded)

	for i, a := range assets {
		require.Equal(t, fmt.Sprintf("photo-%d", i+1), a.ID)
		require.Equal(t, "listing-1", a.ListingUUID)
		require.Equal(t, filepath.Join(dir, "listing-1", a.ID+".jpg"), a.Path)
	}
	require.Equal(t, []int64{100, 101, 102}, []int64{assets[0].SourceMessageID, assets[1].SourceMessageID, assets[2].SourceMessageID})

	b, err := os.ReadFile(assets[1].Path)
	require.NoError(t, err)
	require.Equal(t, "B", string(b))
}

func TestCollectAlbumWindowIsBounded(t *testing.T) {
	msgs := []models.RawMessage{
		{ID: 10, Text: "caption", GroupID: "g"},
		{ID: 12, GroupID: "g", Photo: photo("in")},
		{ID: 13, GroupID: "g", Photo: photo("edge")},
		{ID: 14, GroupID: "g", Photo: photo("out")},
	}
	src := telegram.NewMemorySource(msgs, map[string][]byte{
		"in": []byte("1"), "edge": []byte("2"), "out": []byte("3"),
	})
	c, _ := newTestCollector(t, src, func(o *CollectorOptions) { o.AlbumWindow = 3 })

	assets, err := c.Collect(context.Background(), &msgs[0], "L")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, []string{"in", "edge"}, src.Downloaded)
}

func TestCollectSinglePhoto(t *testing.T) {
	msg := models.RawMessage{ID: 5, Text: "t", Photo: photo("p")}
	src := telegram.NewMemorySource([]models.RawMessage{msg}, map[string][]byte{"p": []byte("P")})
	c, _ := newTestCollector(t, src, nil)

	assets, err := c.Collect(context.Background(), &msg, "L")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Equal(t, int64(5), assets[0].SourceMessageID)
}

func TestCollectLinkPreviewNotDeduplicatedByDefault(t *testing.T) {
	msg := models.RawMessage{ID: 5, Text: "t", Photo: photo("p"), LinkPreviewPhoto: photo("lp")}
	src := telegram.NewMemorySource([]models.RawMessage{msg}, map[string][]byte{
		"p": []byte("P"), "lp": []byte("LP"),
	})
	c, _ := newTestCollector(t, src, nil)

	assets, err := c.Collect(context.Background(), &msg, "L")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, []string{"p", "lp"}, src.Downloaded)
}

func TestCollectLinkPreviewDeduplicated(t *testing.T) {
	msg := models.RawMessage{ID: 5, Text: "t", Photo: photo("p"), LinkPreviewPhoto: photo("lp")}
	src := telegram.NewMemorySource([]models.RawMessage{msg}, map[string][]byte{
		"p": []byte("P"), "lp": []byte("LP"),
	})
	c, _ := newTestCollector(t, src, func(o *CollectorOptions) { o.DedupLinkPreview = true })

	assets, err := c.Collect(context.Background(), &msg, "L")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	require.Equal(t, []string{"p"}, src.Downloaded)
}

func TestCollectNoPhotosCreatesNoDirectory(t *testing.T) {
	msg := models.RawMessage{ID: 1, Text: "text only"}
	src := telegram.NewMemorySource([]models.RawMessage{msg}, nil)
	c, dir := newTestCollector(t, src, nil)

	assets, err := c.Collect(context.Background(), &msg, "L")
	require.NoError(t, err)
	require.Empty(t, assets)

	_, err = os.Stat(filepath.Join(dir, "L"))
	require.True(t, os.IsNotExist(err))
}

func TestCollectDownloadErrorAborts(t *testing.T) {
	msg := models.RawMessage{ID: 1, Text: "t", Photo: photo("missing")}
	src := telegram.NewMemorySource([]models.RawMessage{msg}, nil)
	c, dir := newTestCollector(t, src, nil)

	_, err := c.Collect(context.Background(), &msg, "L")
	require.ErrorIs(t, err, telegram.ErrNoPhoto)

	entries, err := os.ReadDir(filepath.Join(dir, "L"))
	require.NoError(t, err)
	require.Empty(t, entries, "partial file should be removed")
}
