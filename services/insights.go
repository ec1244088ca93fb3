package services

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"rooneyform-scraper/models"
	"rooneyform-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises a run. listings is the exported set; res may be nil
// when only stored listings are available.
func (s *InsightService) Generate(res *Result, listings []*models.ListingRecord) *models.InsightReport {
	report := &models.InsightReport{
		TotalListings:   len(listings),
		ListingsByTeam:  make(map[string]int),
		ListingsByBrand: make(map[string]int),
	}
	if res != nil {
		report.MessagesSeen = res.MessagesSeen
		report.RawRecords = res.RawRecords
		report.DuplicatesDropped = len(res.Dropped)
		report.PhotosSaved = res.PhotosSaved
	}

	var total int
	for _, l := range listings {
		if l.Team.Valid && l.Team.String != "" {
			report.ListingsByTeam[l.Team.String]++
		}
		if l.Brand.Valid && l.Brand.String != "" {
			report.ListingsByBrand[normaliseBrand(l.Brand.String)]++
		}

		if !l.Price.Valid {
			continue
		}
		price, err := strconv.Atoi(l.Price.String)
		if err != nil || price <= 0 {
			s.logger.Debug("[insights] Skipping unparseable price %q", l.Price.String)
			continue
		}
		if report.PricedListings == 0 || price < report.MinPrice {
			report.MinPrice = price
		}
		if report.PricedListings == 0 || price > report.MaxPrice {
			report.MaxPrice = price
			report.MostExpensive = l
		}
		report.PricedListings++
		total += price
	}

	if report.PricedListings > 0 {
		report.AveragePrice = round2(float64(total) / float64(report.PricedListings))
	}
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  CHANNEL SCRAPE SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Messages read      : \033[1m%d\033[0m\n", r.MessagesSeen)
	fmt.Fprintf(w, "  Listings extracted : \033[1m%d\033[0m\n", r.RawRecords)
	fmt.Fprintf(w, "  Duplicates dropped : \033[1m%d\033[0m\n", r.DuplicatesDropped)
	fmt.Fprintf(w, "  Listings exported  : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Photos saved       : \033[1m%d\033[0m\n", r.PhotosSaved)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Prices (р.)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average : \033[1;32m%.2f\033[0m\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum : \033[1;32m%d\033[0m\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum : \033[1;32m%d\033[0m\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s %s %s\n", r.MostExpensive.Team.String, r.MostExpensive.Season.String, r.MostExpensive.KitType.String)
		fmt.Fprintf(w, "  Price : \033[1;31m%s р.\033[0m\n", r.MostExpensive.Price.String)
		fmt.Fprintf(w, "  Post  : %s\n", r.MostExpensive.PostURL)
		fmt.Fprintln(w)
	}

	printCounts(w, "Listings by Team", r.ListingsByTeam, thin)
	printCounts(w, "Listings by Brand", r.ListingsByBrand, thin)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

type labelCount struct {
	label string
	count int
}

// sortedCounts orders by count descending, then label ascending.
func sortedCounts(m map[string]int) []labelCount {
	out := make([]labelCount, 0, len(m))
	for label, cnt := range m {
		out = append(out, labelCount{label, cnt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].label < out[j].label
	})
	return out
}

func printCounts(w io.Writer, title string, m map[string]int, thin string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(m) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}
	for _, lc := range sortedCounts(m) {
		bar := strings.Repeat("█", lc.count)
		fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(lc.label, 28), bar, lc.count)
	}
	fmt.Fprintln(w)
}

// normaliseBrand folds case so "nike" and "Nike" count together.
func normaliseBrand(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	words := strings.Fields(lower)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[:1])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
