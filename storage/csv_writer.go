package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rooneyform-scraper/models"
)

// utf8BOM lets spreadsheet applications detect the encoding.
const utf8BOM = "\ufeff"

// Header is the fixed column order of the export: the eleven extracted
// fields followed by the four derived ones.
var Header = []string{
	"Команда",
	"Бренд",
	"Сезон",
	"Тип формы",
	"Состояние",
	"Цена",
	"Размер",
	"Цвет",
	"Особенности",
	"Контакты",
	"Хештеги",
	"UUID",
	"UUID_фотографий",
	"Ссылка на пост",
	"Дата публикации",
}

// CSVWriter writes listings to a UTF-8 (with BOM) CSV file.
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the BOM and header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	if _, err := f.WriteString(utf8BOM); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write BOM: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{path: path, file: f, writer: w}, nil
}

// Write appends one row per listing and returns the number of rows written.
func (c *CSVWriter) Write(listings []*models.ListingRecord) (int, error) {
	n := 0
	for _, l := range listings {
		if err := c.writer.Write(Row(l)); err != nil {
			return n, fmt.Errorf("csv: write row: %w", err)
		}
		n++
	}

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return n, fmt.Errorf("csv: flush %q: %w", c.path, err)
	}
	return n, nil
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}

// Row renders a listing in Header order. Absent fields become empty cells.
func Row(l *models.ListingRecord) []string {
	return []string{
		l.Team.String,
		l.Brand.String,
		l.Season.String,
		l.KitType.String,
		l.Condition.String,
		l.Price.String,
		l.Size.String,
		l.Color.String,
		l.Features.String,
		l.Contacts.String,
		l.Hashtags.String,
		l.UUID,
		strings.Join(l.PhotoIDs, ","),
		l.PostURL,
		l.Published,
	}
}
