package storage

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rooneyform-scraper/models"
)

func ns(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func sampleRecords() []*models.ListingRecord {
	return []*models.ListingRecord{
		{
			Fields: models.Fields{
				Team:      ns("Ливерпуль"),
				Brand:     ns("Nike"),
				Season:    ns("2023/24"),
				KitType:   ns("домашняя"),
				Condition: ns("новое"),
				Price:     ns("8499"),
				Size:      ns("L"),
				Color:     ns("красный"),
				Features:  ns("Вышивка, \"оригинал\". Бирки"),
				Contacts:  ns("@rooneyform_admin"),
				Hashtags:  ns("ливерпуль, nike"),
			},
			UUID:      "1b4e28ba-2fa1-5d2b-a3a5-1234567890ab",
			PhotoIDs:  []string{"p1", "p2"},
			PostURL:   "https://t.me/shop/10",
			Published: "2024-01-02 03:04:05",
		},
		{
			Fields: models.Fields{Contacts: ns("@rooneyform_admin")},
			UUID:   "2b4e28ba-2fa1-5d2b-a3a5-1234567890ab",
		},
	}
}

func readBack(t *testing.T, path string) [][]string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte(utf8BOM)), "file must start with a BOM")

	rows, err := csv.NewReader(bytes.NewReader(raw[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "listings.csv")
	records := sampleRecords()

	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	n, err := w.Write(records)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, 2, n)

	rows := readBack(t, path)
	require.Len(t, rows, len(records)+1)
	require.Equal(t, Header, rows[0])

	for i, rec := range records {
		require.Equal(t, Row(rec), rows[i+1])
	}
	require.Equal(t, "p1,p2", rows[1][12])
	require.Equal(t, "", rows[2][0], "absent team is an empty cell")
	require.Equal(t, "", rows[2][12], "no photos is an empty cell")
}

func TestCSVWriterOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte("old,content\n1,2\n3,4\n5,6\n"), 0o644))

	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	_, err = w.Write(sampleRecords()[:1])
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rows := readBack(t, path)
	require.Len(t, rows, 2)
	require.Equal(t, Header, rows[0])
}

func TestCSVWriterEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")

	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	n, err := w.Write(nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Zero(t, n)
	require.Equal(t, [][]string{Header}, readBack(t, path))
}

func TestHeaderColumnCount(t *testing.T) {
	require.Len(t, Header, 15)
	require.Len(t, Row(&models.ListingRecord{}), len(Header))
}
