package search

import "testing"

func TestScoreTiers(t *testing.T) {
	tests := []struct {
		name       string
		showTitle  string
		search     string
		showYear   string
		searchYear string
		want       int
	}{
		{name: "exact with exact year", showTitle: "The Office", search: "The Office", showYear: "2005", searchYear: "2005", want: 130},
		{name: "exact without year", showTitle: "The Office", search: "the office", want: 100},
		{name: "prefix", showTitle: "The Office (US)", search: "The Office", want: 80},
		{name: "contains", showTitle: "The Office (US)", search: "Office", want: 60},
		{name: "no match", showTitle: "Parks and Recreation", search: "Office", want: 0},
		{name: "contains with exact year", showTitle: "The Office (US)", search: "Office", showYear: "2005", searchYear: "2005", want: 90},
		{name: "whitespace normalized", showTitle: "  The   Office ", search: "the office", want: 100},
		{name: "unicode composed vs decomposed", showTitle: "ÉLITE", search: "e\u0301lite", want: 100},
		{name: "empty search", showTitle: "The Office", search: "", want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.showTitle, tc.search, tc.showYear, tc.searchYear); got != tc.want {
				t.Fatalf("Score(%q, %q, %q, %q) = %d, want %d", tc.showTitle, tc.search, tc.showYear, tc.searchYear, got, tc.want)
			}
		})
	}
}

func TestTitleScoreWordTiersAreShadowedByContains(t *testing.T) {
	tests := []struct {
		show   string
		search string
	}{
		{show: "the office", search: "offi"},
		{show: "the office", search: "office"},
		{show: "parks and recreation", search: "rec"},
		{show: "parks and recreation", search: "creat"},
	}
	for _, tc := range tests {
		if got := titleScore(tc.show, tc.search); got != scoreContains {
			t.Fatalf("titleScore(%q, %q) = %d, want %d", tc.show, tc.search, got, scoreContains)
		}
	}
	if got := titleScore("", "office"); got != 0 {
		t.Fatalf("expected empty show title to score 0, got %d", got)
	}
}

func TestScoreMonotonicAcrossTiers(t *testing.T) {
	tiers := []int{
		Score("Lost", "Lost", "2004", "2004"),
		Score("Lost Girl", "Lost", "2010", "2004"),
		Score("The Lost Room", "Lost", "", "2004"),
		Score("Gilmore Girls", "Lost", "2004", "2004"),
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i-1] < tiers[i] {
			t.Fatalf("tier %d scored %d above tier %d (%d)", i, tiers[i], i-1, tiers[i-1])
		}
	}
	if Score("The Office", "The Office", "", "") <= Score("The Office (US)", "Office", "2005", "2005") {
		t.Fatalf("exact title without year must outrank contains with exact year")
	}
}

func TestYearBonusBoundaries(t *testing.T) {
	tests := []struct {
		showYear   string
		searchYear string
		want       int
	}{
		{"2005", "2005", 30},
		{"2007", "2005", 10},
		{"2003", "2005", 10},
		{"2008", "2005", 0},
		{"2002", "2005", 0},
		{"", "2005", 0},
		{"2005", "", 0},
		{"20x5", "2005", 0},
	}
	for _, tc := range tests {
		if got := yearBonus(tc.showYear, tc.searchYear); got != tc.want {
			t.Fatalf("yearBonus(%q, %q) = %d, want %d", tc.showYear, tc.searchYear, got, tc.want)
		}
	}
}
