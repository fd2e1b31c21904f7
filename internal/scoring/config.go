// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

package scoring

// CategoryConfig maps one lifestyle category to the keyword list that
// classifies amenities into it. Declaration order matters: an amenity joins
// the first category whose keywords match its descriptive text.
type CategoryConfig struct {
	Name     string   `json:"name" koanf:"name"`
	Keywords []string `json:"keywords" koanf:"keywords"`
}

// PersonaConfig maps a requester persona to the keyword list that marks an
// amenity as a priority match for that persona.
type PersonaConfig struct {
	Name          string   `json:"name" koanf:"name"`
	BoostKeywords []string `json:"boost_keywords" koanf:"boost_keywords"`
}

// Config holds the scoring configuration. Category and persona keyword
// lists are business configuration, loaded once and immutable at runtime.
type Config struct {
	// SearchRadiusKm bounds the amenity query around each property.
	// Default: 3.0
	SearchRadiusKm float64 `koanf:"search_radius_km"`

	// BoostFactor multiplies the impact of persona-matched amenities.
	// Default: 3.0
	BoostFactor float64 `koanf:"boost_factor"`

	Categories []CategoryConfig `koanf:"categories"`
	Personas   []PersonaConfig  `koanf:"personas"`
}

// DefaultConfig returns the production category and persona lists.
func DefaultConfig() Config {
	return Config{
		SearchRadiusKm: 3.0,
		BoostFactor:    3.0,
		Categories: []CategoryConfig{
			{Name: "safety", Keywords: []string{"police", "fire", "barangay"}},
			{Name: "health", Keywords: []string{"hospital", "clinic", "pharmacy", "vet"}},
			{Name: "education", Keywords: []string{"school", "college", "university", "k-12"}},
			{Name: "lifestyle", Keywords: []string{"gym", "mall", "market", "park", "cafe"}},
		},
		Personas: []PersonaConfig{
			{Name: "family", BoostKeywords: []string{"school", "k-12", "park", "playground", "pediatric"}},
			{Name: "fitness", BoostKeywords: []string{"gym", "fitness", "sports", "pool"}},
			{Name: "faith", BoostKeywords: []string{"church", "chapel", "monastery", "mosque"}},
			{Name: "commuter", BoostKeywords: []string{"terminal", "station", "transit", "bus"}},
		},
	}
}

// CategoryNames returns the configured category names in declaration order.
func (c Config) CategoryNames() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}
