package services

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"rooneyform-scraper/models"
)

const samplePost = `Продаётся футболка «Ливерпуль» от Nike, сезон 2023/24, домашняя форма.
Состояние новое. Цена 8499 р. Размер L, цвет красный.
Отдельно стоит отметить вышитый логотип. Ткань дышащая. Бирки на месте.
#ливерпуль #nike`

func TestExtractSamplePost(t *testing.T) {
	got := NewExtractor("").Extract(samplePost)

	want := models.Fields{
		Team:      valid("Ливерпуль"),
		Brand:     valid("Nike"),
		Season:    valid("2023/24"),
		KitType:   valid("домашняя"),
		Condition: valid("новое"),
		Price:     valid("8499"),
		Size:      valid("L"),
		Color:     valid("красный"),
		Features:  valid("вышитый логотип. Ткань дышащая"),
		Contacts:  valid("@rooneyform_admin"),
		Hashtags:  valid("ливерпуль, nike"),
	}
	require.Equal(t, want, got)
}

func TestExtractMissesAreIndependent(t *testing.T) {
	got := NewExtractor("@someone").Extract("Просто текст без данных 2019/20")

	require.False(t, got.Team.Valid)
	require.False(t, got.Brand.Valid)
	require.False(t, got.KitType.Valid)
	require.False(t, got.Condition.Valid)
	require.False(t, got.Price.Valid)
	require.False(t, got.Size.Valid)
	require.False(t, got.Color.Valid)
	require.False(t, got.Features.Valid)
	require.False(t, got.Hashtags.Valid)

	require.Equal(t, valid("2019/20"), got.Season)
	require.Equal(t, valid("@someone"), got.Contacts)
}

func TestExtractFieldRules(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field func(models.Fields) sql.NullString
		want  sql.NullString
	}{
		{"team first match", "футболка «Арсенал» и футболка «Челси»", func(f models.Fields) sql.NullString { return f.Team }, valid("Арсенал")},
		{"brand case-insensitive", "фирма ADIDAS оригинал", func(f models.Fields) sql.NullString { return f.Brand }, valid("ADIDAS")},
		{"brand two words", "new balance, не nike", func(f models.Fields) sql.NullString { return f.Brand }, valid("new balance")},
		{"kit type case-insensitive", "Вратарская форма", func(f models.Fields) sql.NullString { return f.KitType }, valid("Вратарская")},
		{"condition up to period", "Состояние отличное, без дефектов. Остальное", func(f models.Fields) sql.NullString { return f.Condition }, valid("отличное, без дефектов")},
		{"price before currency", "цена 1200 р. торг", func(f models.Fields) sql.NullString { return f.Price }, valid("1200")},
		{"price needs currency", "цена 1200 рублей", func(f models.Fields) sql.NullString { return f.Price }, sql.NullString{}},
		{"size longest token", "размер XXL", func(f models.Fields) sql.NullString { return f.Size }, valid("XXL")},
		{"size ignores words", "Milan SALE", func(f models.Fields) sql.NullString { return f.Size }, sql.NullString{}},
		{"size next to cyrillic", "размер:M/", func(f models.Fields) sql.NullString { return f.Size }, valid("M")},
		{"color yo variant", "цвет чёрный", func(f models.Fields) sql.NullString { return f.Color }, valid("чёрный")},
		{"color e variant", "цвет черный", func(f models.Fields) sql.NullString { return f.Color }, valid("черный")},
		{"hashtags in order", "#апл #size_L text #2023", func(f models.Fields) sql.NullString { return f.Hashtags }, valid("апл, size_L, 2023")},
		{"features single sentence", "Отдельно стоит отметить заплатку", func(f models.Fields) sql.NullString { return f.Features }, valid("заплатку")},
		{"features marker only", "Отдельно стоит отметить", func(f models.Fields) sql.NullString { return f.Features }, valid("")},
	}

	e := NewExtractor("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.field(e.Extract(tt.text)))
		})
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	e := NewExtractor("")
	for _, text := range []string{samplePost, "", "футболка «X»", "#a #b #c"} {
		require.Equal(t, e.Extract(text), e.Extract(text))
	}
}
