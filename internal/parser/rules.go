// Package parser extracts structured offer facts from raw screen text.
//
// Extraction is driven by a declarative rule table (pattern, role, platform)
// evaluated by a small generic engine, so each rule stays independently
// testable instead of being buried in branching.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
)

// Role says what a matched number means.
type Role int

const (
	RolePrice Role = iota
	RoleDistance
	RoleTime
	RoleRating
)

// Rule binds a pattern to a role for one platform (PlatformUnknown = all).
// Group is the capture group carrying the numeric value; Scale converts the
// matched magnitude to canonical units (km, minutes).
type Rule struct {
	Name     string
	Role     Role
	Platform models.Platform
	Pattern  *regexp.Regexp
	Group    int
	Scale    float64
}

// match is one rule hit positioned in the original text.
type match struct {
	rule  *Rule
	value float64
	start int
	end   int
}

var rules = []Rule{
	// Fares are rendered as "R$ 18,50"; comma decimals dominate but dot
	// variants show up on some devices.
	{Name: "price_brl", Role: RolePrice, Pattern: regexp.MustCompile(`R\$\s*(\d{1,3}(?:\.\d{3})*,\d{2}|\d+(?:[.,]\d{1,2})?)`), Group: 1, Scale: 1},

	{Name: "distance_km", Role: RoleDistance, Pattern: regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*km\b`), Group: 1, Scale: 1},
	{Name: "distance_m", Role: RoleDistance, Pattern: regexp.MustCompile(`(?i)\b(\d+)\s*m\b`), Group: 1, Scale: 0.001},

	{Name: "time_min", Role: RoleTime, Pattern: regexp.MustCompile(`(?i)(\d+)\s*min(?:utos?|s)?\b`), Group: 1, Scale: 1},

	// Uber shows the rider rating next to a star or an "Avaliação" label;
	// 99 puts the star after the number.
	{Name: "rating_uber_star", Role: RoleRating, Platform: models.PlatformUber, Pattern: regexp.MustCompile(`[★⭐]\s*(\d[.,]\d{1,2})`), Group: 1, Scale: 1},
	{Name: "rating_uber_label", Role: RoleRating, Platform: models.PlatformUber, Pattern: regexp.MustCompile(`(?i)avalia[çc][ãa]o\s*:?\s*(\d[.,]\d{1,2})`), Group: 1, Scale: 1},
	// Number-first forms need a left boundary so the tail of a fare
	// ("R$ 20,00 ★") cannot pose as a rating.
	{Name: "rating_99_star", Role: RoleRating, Platform: models.Platform99, Pattern: regexp.MustCompile(`(?:^|[^\d.,])(\d[.,]\d{1,2})\s*[★⭐]`), Group: 1, Scale: 1},
	// With no classified platform, only a star-anchored form is trusted.
	{Name: "rating_any_star", Role: RoleRating, Platform: models.PlatformUnknown, Pattern: regexp.MustCompile(`[★⭐]\s*(\d[.,]\d{1,2})|(?:^|[^\d.,])(\d[.,]\d{1,2})\s*[★⭐]`), Group: 0, Scale: 1},
}

// matchAll evaluates every rule of the given role against text, honoring the
// platform filter, and returns hits ordered by position. Overlapping hits of
// the same role are deduplicated, first wins.
func matchAll(text string, platform models.Platform, role Role) []match {
	var out []match
	for i := range rules {
		r := &rules[i]
		if r.Role != role {
			continue
		}
		if r.Platform != models.PlatformUnknown && r.Platform != platform {
			continue
		}
		for _, loc := range r.Pattern.FindAllStringSubmatchIndex(text, -1) {
			gs, ge := groupSpan(loc, r.Group)
			if gs < 0 {
				continue
			}
			v, ok := parseNumber(text[gs:ge])
			if !ok {
				continue
			}
			out = append(out, match{rule: r, value: v * r.Scale, start: loc[0], end: loc[1]})
		}
	}
	sortMatches(out)
	return dedupOverlaps(out)
}

// groupSpan returns the span of the requested capture group, or of the first
// non-empty group when Group is 0 (used by alternation patterns).
func groupSpan(loc []int, group int) (int, int) {
	if group > 0 {
		if 2*group+1 < len(loc) && loc[2*group] >= 0 {
			return loc[2*group], loc[2*group+1]
		}
		return -1, -1
	}
	for g := 1; 2*g+1 < len(loc); g++ {
		if loc[2*g] >= 0 {
			return loc[2*g], loc[2*g+1]
		}
	}
	return -1, -1
}

// parseNumber handles Brazilian "1.234,56" as well as plain dot decimals.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func sortMatches(ms []match) {
	// insertion sort; match lists are tiny
	for i := 1; i < len(ms); i++ {
		for j := i; j > 0 && ms[j].start < ms[j-1].start; j-- {
			ms[j], ms[j-1] = ms[j-1], ms[j]
		}
	}
}

func dedupOverlaps(ms []match) []match {
	if len(ms) < 2 {
		return ms
	}
	out := ms[:1]
	for _, m := range ms[1:] {
		last := out[len(out)-1]
		if m.start < last.end {
			continue
		}
		out = append(out, m)
	}
	return out
}
