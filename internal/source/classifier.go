// Package source decides which platform produced a captured text blob.
package source

import (
	"strings"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
)

// Known Android package identifiers per platform. Prefix matching covers
// regional build variants (e.g. com.ubercab.driver vs com.ubercab).
var packagePrefixes = map[models.Platform][]string{
	models.PlatformUber: {"com.ubercab"},
	models.Platform99:   {"com.taxis99", "com.app99"},
}

// UI vocabulary unique enough to one platform to classify text without a
// package id. Checked lowercase.
var textMarkers = map[models.Platform][]string{
	models.PlatformUber: {"uberx", "uber comfort", "uber black", "uber flash", "uber moto"},
	models.Platform99:   {"99pop", "99 pop", "99taxi", "99moto", "99 comfort"},
}

// Classify resolves the platform from a package identifier and/or text.
// It is pure and total: any input, including empty, yields a platform,
// defaulting to PlatformUnknown.
func Classify(packageID, text string) models.Platform {
	if p, ok := byPackage(packageID); ok {
		return p
	}
	if p, ok := byMarkers(text); ok {
		return p
	}
	return models.PlatformUnknown
}

func byPackage(packageID string) (models.Platform, bool) {
	id := strings.ToLower(strings.TrimSpace(packageID))
	if id == "" {
		return models.PlatformUnknown, false
	}
	for _, p := range []models.Platform{models.PlatformUber, models.Platform99} {
		for _, prefix := range packagePrefixes[p] {
			if id == prefix || strings.HasPrefix(id, prefix+".") {
				return p, true
			}
		}
	}
	return models.PlatformUnknown, false
}

func byMarkers(text string) (models.Platform, bool) {
	if text == "" {
		return models.PlatformUnknown, false
	}
	lower := strings.ToLower(text)
	for _, p := range []models.Platform{models.PlatformUber, models.Platform99} {
		for _, marker := range textMarkers[p] {
			if strings.Contains(lower, marker) {
				return p, true
			}
		}
	}
	return models.PlatformUnknown, false
}
