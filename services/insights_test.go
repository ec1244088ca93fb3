package services

import (
	"bytes"
	"strings"
	"testing"

	"rooneyform-scraper/models"
	"rooneyform-scraper/utils"
)

func sampleListings() []*models.ListingRecord {
	mk := func(team, brand, price string) *models.ListingRecord {
		r := &models.ListingRecord{}
		if team != "" {
			r.Team = valid(team)
		}
		if brand != "" {
			r.Brand = valid(brand)
		}
		if price != "" {
			r.Price = valid(price)
		}
		return r
	}
	return []*models.ListingRecord{
		mk("Ливерпуль", "Nike", "8499"),
		mk("Ливерпуль", "nike", "5000"),
		mk("Арсенал", "Adidas", "12000"),
		mk("Челси", "new balance", "abc"),
		mk("", "", ""),
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	res := &Result{MessagesSeen: 20, RawRecords: 7, PhotosSaved: 11, Dropped: make([]*models.ListingRecord, 2)}
	r := svc.Generate(res, sampleListings())

	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.MessagesSeen != 20 || r.RawRecords != 7 || r.PhotosSaved != 11 {
		t.Errorf("run counters not copied: %+v", r)
	}
	if r.DuplicatesDropped != 2 {
		t.Errorf("DuplicatesDropped: got %d, want 2", r.DuplicatesDropped)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	r := svc.Generate(nil, sampleListings())

	if r.PricedListings != 3 {
		t.Errorf("PricedListings: got %d, want 3", r.PricedListings)
	}
	wantAvg := 8499.67
	if r.AveragePrice != wantAvg {
		t.Errorf("AveragePrice: got %.2f, want %.2f", r.AveragePrice, wantAvg)
	}
	if r.MinPrice != 5000 {
		t.Errorf("MinPrice: got %d, want 5000", r.MinPrice)
	}
	if r.MaxPrice != 12000 {
		t.Errorf("MaxPrice: got %d, want 12000", r.MaxPrice)
	}
	if r.MostExpensive == nil || r.MostExpensive.Team.String != "Арсенал" {
		t.Errorf("MostExpensive: got %+v, want Арсенал", r.MostExpensive)
	}
}

func TestInsightGrouping(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	r := svc.Generate(nil, sampleListings())

	if r.ListingsByTeam["Ливерпуль"] != 2 {
		t.Errorf("Ливерпуль count: got %d, want 2", r.ListingsByTeam["Ливерпуль"])
	}
	if r.ListingsByBrand["Nike"] != 2 {
		t.Errorf("Nike count: got %d, want 2", r.ListingsByBrand["Nike"])
	}
	if r.ListingsByBrand["New Balance"] != 1 {
		t.Errorf("New Balance count: got %d, want 1", r.ListingsByBrand["New Balance"])
	}
	if _, ok := r.ListingsByTeam[""]; ok {
		t.Error("empty team should not be counted")
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	r := svc.Generate(nil, nil)
	if r.TotalListings != 0 || r.PricedListings != 0 || r.MostExpensive != nil {
		t.Errorf("expected empty report, got %+v", r)
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(utils.Discard())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(nil, sampleListings()))

	out := buf.String()
	for _, want := range []string{"Listings by Team", "Ливерпуль", "12000", "New Balance"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}
