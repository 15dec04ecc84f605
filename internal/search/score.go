package search

import (
	"strconv"
	"strings"
)

const (
	scoreExact          = 100
	scorePrefix         = 80
	scoreContains       = 60
	scoreWordPrefix     = 40
	scoreWordContains   = 20
	yearExactBonus      = 30
	yearNearBonus       = 10
	yearNearMaxDistance = 2
)

// Score rates how well showTitle answers searchTitle. The title tier always
// dominates; the year bonus only applies when both years are known.
func Score(showTitle, searchTitle, showYear, searchYear string) int {
	return titleScore(normalizeTitle(showTitle), normalizeTitle(searchTitle)) + yearBonus(showYear, searchYear)
}

func titleScore(show, search string) int {
	if search == "" || show == "" {
		return 0
	}
	switch {
	case show == search:
		return scoreExact
	case strings.HasPrefix(show, search):
		return scorePrefix
	case strings.Contains(show, search):
		return scoreContains
	}

	// Every word hit is also a substring hit, so with a non-empty search the
	// word tiers never fire once Contains has been checked.
	words := strings.Fields(show)
	for _, word := range words {
		if strings.HasPrefix(word, search) {
			return scoreWordPrefix
		}
	}
	for _, word := range words {
		if strings.Contains(word, search) {
			return scoreWordContains
		}
	}
	return 0
}

func yearBonus(showYear, searchYear string) int {
	showYear = strings.TrimSpace(showYear)
	searchYear = strings.TrimSpace(searchYear)
	if showYear == "" || searchYear == "" {
		return 0
	}
	if showYear == searchYear {
		return yearExactBonus
	}
	show, err := strconv.Atoi(showYear)
	if err != nil {
		return 0
	}
	search, err := strconv.Atoi(searchYear)
	if err != nil {
		return 0
	}
	distance := show - search
	if distance < 0 {
		distance = -distance
	}
	if distance <= yearNearMaxDistance {
		return yearNearBonus
	}
	return 0
}
