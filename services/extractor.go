package services

import (
	"database/sql"
	"regexp"
	"strings"

	"rooneyform-scraper/models"
)

// DefaultContact is written to every listing's contacts field.
const DefaultContact = "@rooneyform_admin"

const featuresMarker = "Отдельно стоит отметить"

var (
	teamRegexp      = regexp.MustCompile(`футболка «(.*?)»`)
	brandRegexp     = regexp.MustCompile(`(?i)(Kappa|Puma|Adidas|Nike|Umbro|New Balance)`)
	seasonRegexp    = regexp.MustCompile(`(\d{4}/\d{2})`)
	kitTypeRegexp   = regexp.MustCompile(`(?i)(третья|гостевая|домашняя|вратарская)`)
	conditionRegexp = regexp.MustCompile(`Состояние (.*?)\.`)
	priceRegexp     = regexp.MustCompile(`(\d+) р\.`)
	// sizeRegexp only accepts a size standing on its own, never one inside a word.
	sizeRegexp    = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(XXXL|XXL|XL|S|M|L)(?:[^\p{L}\p{N}_]|$)`)
	colorRegexp   = regexp.MustCompile(`(?i)(серый|синий|чёрный|черный|красный|белый|жёлтый|зелёный)`)
	hashtagRegexp = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
)

// Extractor turns a post body into listing fields. Every field is matched
// independently; a miss leaves that field invalid and never affects the others.
type Extractor struct {
	contact string
}

// NewExtractor returns an Extractor that stamps contact on every listing.
// An empty contact falls back to DefaultContact.
func NewExtractor(contact string) *Extractor {
	if contact == "" {
		contact = DefaultContact
	}
	return &Extractor{contact: contact}
}

// Extract parses text into listing fields.
func (e *Extractor) Extract(text string) models.Fields {
	return models.Fields{
		Team:      firstGroup(teamRegexp, text),
		Brand:     firstGroup(brandRegexp, text),
		Season:    firstGroup(seasonRegexp, text),
		KitType:   firstGroup(kitTypeRegexp, text),
		Condition: firstGroup(conditionRegexp, text),
		Price:     firstGroup(priceRegexp, text),
		Size:      firstGroup(sizeRegexp, text),
		Color:     firstGroup(colorRegexp, text),
		Features:  extractFeatures(text),
		Contacts:  valid(e.contact),
		Hashtags:  extractHashtags(text),
	}
}

func firstGroup(re *regexp.Regexp, text string) sql.NullString {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return sql.NullString{}
	}
	return valid(m[1])
}

// extractHashtags joins every tag in order of appearance; no tags means absent.
func extractHashtags(text string) sql.NullString {
	matches := hashtagRegexp.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return sql.NullString{}
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return valid(strings.Join(tags, ", "))
}

// extractFeatures keeps the first two sentences after the features marker.
func extractFeatures(text string) sql.NullString {
	parts := strings.Split(text, featuresMarker)
	if len(parts) < 2 {
		return sql.NullString{}
	}
	sentences := strings.Split(parts[1], ". ")
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	return valid(strings.TrimSpace(strings.Join(sentences, ". ")))
}

func valid(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}
