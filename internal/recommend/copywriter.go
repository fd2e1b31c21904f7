// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package recommend

import (
	"fmt"
	"strings"

	"github.com/mledesma/hestia/internal/models"
)

// Copywriter produces the headline and body text attached to each
// recommendation. The default is a deterministic template; a generative
// implementation can be swapped in without touching the ranking path.
type Copywriter interface {
	Compose(property models.PropertyRecord, score float64, highlights []models.Highlight) (headline, body string)
}

// TemplateCopywriter renders fixed-form copy from the highlight records.
type TemplateCopywriter struct{}

// categoryLabels maps internal category names to display wording.
var categoryLabels = map[string]string{
	"safety":    "Safety",
	"health":    "Healthcare",
	"education": "Schools",
	"lifestyle": "Lifestyle",
}

func label(category string) string {
	if l, ok := categoryLabels[category]; ok {
		return l
	}
	if category == "" {
		return category
	}
	return strings.ToUpper(category[:1]) + category[1:]
}

// Compose builds copy from the nearest-amenity highlights. With no
// highlights the copy degrades to a neutral statement rather than
// inventing virtues.
func (TemplateCopywriter) Compose(property models.PropertyRecord, score float64, highlights []models.Highlight) (string, string) {
	if len(highlights) == 0 {
		return property.Name, "No mapped amenities within walking or short driving distance yet."
	}

	lead := highlights[0]
	headline := fmt.Sprintf("%s: %.1f km to %s", property.Name, lead.DistanceKM, lead.AmenityName)

	labels := make([]string, 0, len(highlights))
	for _, h := range highlights {
		labels = append(labels, label(h.Category))
	}
	body := fmt.Sprintf("Recommended for strong access to: %s. Closest match is %s (%s) at %.1f km.",
		strings.Join(labels, ", "), lead.AmenityName, lead.AmenityType, lead.DistanceKM)
	return headline, body
}
