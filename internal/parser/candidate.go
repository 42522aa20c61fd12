package parser

import (
	"regexp"
	"strings"
)

// Offer cards routinely contain several currency-looking tokens (promos,
// surge add-ons, per-km rates). Each candidate is scored by its surrounding
// context; a contextually-supported match beats "largest number" or "first
// number" every time. Weights are fixed; ties break on first occurrence.
const (
	weightNearDistance = 3
	weightNearTime     = 3
	weightActionWord   = 2
	weightContextWord  = 2
	weightBonusMarker  = 2
	weightRating       = 1
	weightPickupDist   = 1
)

var (
	actionWords  = []string{"aceitar", "aceite", "confirmar", "accept"}
	contextWords = []string{"corrida", "viagem", "passageiro", "trip", "ride"}

	// surge/bonus add-on rendered as "+R$ 4,00" near the fare
	bonusMarker = regexp.MustCompile(`\+\s*R\$`)
)

// selectCandidate picks the best price candidate. With a single candidate it
// returns it with score 0; otherwise the highest-scoring one, earliest
// occurrence winning ties. Deterministic for a given text and match set.
func selectCandidate(text string, cands, dists, times, ratings []match, window int) (match, int) {
	if len(cands) == 1 {
		return cands[0], 0
	}
	best := cands[0]
	bestScore := scoreCandidate(text, cands[0], dists, times, ratings, window)
	for _, c := range cands[1:] {
		if s := scoreCandidate(text, c, dists, times, ratings, window); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}

func scoreCandidate(text string, c match, dists, times, ratings []match, window int) int {
	score := 0
	if anyWithin(dists, c, window) {
		score += weightNearDistance
	}
	if anyWithin(times, c, window) {
		score += weightNearTime
	}

	ctx := strings.ToLower(sliceAround(text, c.start-window, c.end+window))
	if containsAny(ctx, actionWords) {
		score += weightActionWord
	}
	if containsAny(ctx, contextWords) {
		score += weightContextWord
	}
	if bonusMarker.MatchString(sliceAround(text, c.start-window, c.end+window)) {
		score += weightBonusMarker
	}
	if anyWithin(ratings, c, window) {
		score += weightRating
	}
	if hasDistinctPickup(dists, c) {
		score += weightPickupDist
	}
	return score
}

// anyWithin reports whether any match overlaps the window around c.
func anyWithin(ms []match, c match, window int) bool {
	lo, hi := c.start-window, c.end+window
	for _, m := range ms {
		if m.start < hi && m.end > lo {
			return true
		}
	}
	return false
}

// hasDistinctPickup reports whether a distance before the candidate differs
// from the one after it, i.e. a distinguishable pickup leg exists.
func hasDistinctPickup(dists []match, c match) bool {
	var after float64
	seenAfter := false
	for _, m := range dists {
		if m.start >= c.end {
			after = m.value
			seenAfter = true
			break
		}
	}
	if !seenAfter {
		return false
	}
	for i := len(dists) - 1; i >= 0; i-- {
		if dists[i].end <= c.start {
			return dists[i].value != after
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
