package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"rooneyform-scraper/models"
	"rooneyform-scraper/utils"
)

var backgroundURLRegexp = regexp.MustCompile(`background-image:\s*url\(['"]?([^'")]+)['"]?\)`)

// PreviewSource reads a channel through its public web preview (<base>/s/<channel>).
type PreviewSource struct {
	fetcher PageFetcher
	client  *resty.Client
	baseURL string
	channel string
	limiter *rate.Limiter
	logger  *utils.Logger

	// pages caches parsed pages by their "before" cursor; 0 is the newest page.
	pages map[int64]*Page
}

// PreviewOptions configures a PreviewSource.
type PreviewOptions struct {
	BaseURL string
	Channel string
	// MinPageInterval spaces out page fetches; zero disables pacing.
	MinPageInterval time.Duration
	Logger          *utils.Logger
}

// NewPreviewSource wires a page fetcher for HTML and a resty client for photo bytes.
func NewPreviewSource(fetcher PageFetcher, client *resty.Client, opts PreviewOptions) *PreviewSource {
	limit := rate.Inf
	if opts.MinPageInterval > 0 {
		limit = rate.Every(opts.MinPageInterval)
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.Discard()
	}
	return &PreviewSource{
		fetcher: fetcher,
		client:  client,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		channel: opts.Channel,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		pages:   make(map[int64]*Page),
	}
}

// Page is one parsed preview page.
type Page struct {
	Messages []models.RawMessage // descending by id
	Oldest   int64
}

func (s *PreviewSource) pageURL(before int64) string {
	u := s.baseURL + "/s/" + url.PathEscape(s.channel)
	if before > 0 {
		u += "?before=" + strconv.FormatInt(before, 10)
	}
	return u
}

func (s *PreviewSource) page(ctx context.Context, before int64) (*Page, error) {
	if p, ok := s.pages[before]; ok {
		return p, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	link := s.pageURL(before)
	s.logger.Debug("[telegram] Fetching %s", link)

	body, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("telegram: fetch %s: %w", link, err)
	}

	p, err := ParsePreview(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: parse %s: %w", link, err)
	}
	s.pages[before] = p
	return p, nil
}

func (s *PreviewSource) Messages(ctx context.Context) Iterator {
	return &previewIterator{src: s}
}

type previewIterator struct {
	src    *PreviewSource
	cursor int64
	buf    []models.RawMessage
	done   bool
}

func (it *previewIterator) Next(ctx context.Context) (*models.RawMessage, error) {
	for len(it.buf) == 0 {
		if it.done {
			return nil, io.EOF
		}
		p, err := it.src.page(ctx, it.cursor)
		if err != nil {
			return nil, err
		}
		// An empty page, or one that does not move past the cursor, ends the history.
		if len(p.Messages) == 0 || (it.cursor > 0 && p.Oldest >= it.cursor) {
			it.done = true
			continue
		}
		for _, m := range p.Messages {
			if it.cursor == 0 || m.ID < it.cursor {
				it.buf = append(it.buf, m)
			}
		}
		it.cursor = p.Oldest
		if it.cursor <= 1 {
			it.done = true
		}
	}

	m := it.buf[0]
	it.buf = it.buf[1:]
	return &m, nil
}

func (s *PreviewSource) Window(ctx context.Context, lo, hi int64) ([]models.RawMessage, error) {
	if hi < lo {
		return nil, nil
	}

	byID := make(map[int64]models.RawMessage)
	cursor := hi + 1
	for {
		p, err := s.page(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if len(p.Messages) == 0 {
			break
		}
		for _, m := range p.Messages {
			if m.ID >= lo && m.ID <= hi {
				if _, seen := byID[m.ID]; !seen {
					byID[m.ID] = m
				}
			}
		}
		if p.Oldest <= lo || p.Oldest >= cursor {
			break
		}
		cursor = p.Oldest
	}

	out := make([]models.RawMessage, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *PreviewSource) Download(ctx context.Context, ref models.PhotoRef, w io.Writer) error {
	link := ref.Key
	if strings.HasPrefix(link, "//") {
		link = "https:" + link
	}
	if link == "" {
		return ErrNoPhoto
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(link)
	if err != nil {
		return fmt.Errorf("telegram: download %s: %w", link, err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() == 404 {
		return fmt.Errorf("%w: %s", ErrNoPhoto, link)
	}
	if res.IsError() {
		return fmt.Errorf("telegram: download %s: status %d", link, res.StatusCode())
	}

	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("telegram: download %s: %w", link, err)
	}
	return nil
}

// ParsePreview turns one web preview page into messages, newest first.
// An album widget becomes one message per photo sharing a group id; the
// caption stays on the widget's own message id.
func ParsePreview(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	widgets := doc.Find(".tgme_widget_message[data-post]")
	if widgets.Length() == 0 && doc.Find(".tgme_channel_info").Length() == 0 {
		return nil, ErrChannelNotFound
	}

	var msgs []models.RawMessage
	widgets.Each(func(_ int, sel *goquery.Selection) {
		msgs = append(msgs, parseWidget(sel)...)
	})

	seen := make(map[int64]struct{}, len(msgs))
	page := &Page{}
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		page.Messages = append(page.Messages, m)
		if page.Oldest == 0 || m.ID < page.Oldest {
			page.Oldest = m.ID
		}
	}
	sort.SliceStable(page.Messages, func(i, j int) bool {
		return page.Messages[i].ID > page.Messages[j].ID
	})
	return page, nil
}

func parseWidget(sel *goquery.Selection) []models.RawMessage {
	id, ok := postID(sel.AttrOr("data-post", ""))
	if !ok {
		return nil
	}

	var date time.Time
	if dt, exists := sel.Find(".tgme_widget_message_date time").Attr("datetime"); exists {
		if t, err := time.Parse(time.RFC3339, dt); err == nil {
			date = t
		}
	}

	owner := models.RawMessage{
		ID:   id,
		Text: widgetText(sel),
		Date: date,
	}
	if img := backgroundURL(sel.Find(".tgme_widget_message_link_preview .link_preview_image, " +
		".tgme_widget_message_link_preview .link_preview_right_image").First()); img != "" {
		owner.LinkPreviewPhoto = &models.PhotoRef{Key: img}
	}

	photos := sel.Find("a.tgme_widget_message_photo_wrap")
	if sel.Find(".tgme_widget_message_grouped_wrap").Length() == 0 || photos.Length() == 0 {
		if img := backgroundURL(photos.First()); img != "" {
			owner.Photo = &models.PhotoRef{Key: img}
		}
		return []models.RawMessage{owner}
	}

	owner.GroupID = "album:" + strconv.FormatInt(id, 10)
	var out []models.RawMessage
	photos.Each(func(_ int, a *goquery.Selection) {
		img := backgroundURL(a)
		if img == "" {
			return
		}
		photoID, ok := postID(a.AttrOr("href", ""))
		if !ok {
			photoID = id
		}
		if photoID == id {
			owner.Photo = &models.PhotoRef{Key: img}
			return
		}
		out = append(out, models.RawMessage{
			ID:      photoID,
			Date:    date,
			Photo:   &models.PhotoRef{Key: img},
			GroupID: owner.GroupID,
		})
	})
	return append([]models.RawMessage{owner}, out...)
}

func widgetText(sel *goquery.Selection) string {
	text := sel.Find(".tgme_widget_message_text").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest(".tgme_widget_message_reply").Length() == 0
	}).First()
	if text.Length() == 0 {
		return ""
	}
	text.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(text.Text())
}

func backgroundURL(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	m := backgroundURLRegexp.FindStringSubmatch(sel.AttrOr("style", ""))
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// postID extracts the numeric id from "channel/123" or "https://t.me/channel/123?single".
func postID(ref string) (int64, bool) {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimRight(ref, "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		ref = ref[i+1:]
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
