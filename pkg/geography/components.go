package geography

import (
	"strings"

	"googlemaps.github.io/maps"
)

// Place is the administrative breakdown of a geocoder result.
type Place struct {
	Country      string `json:"country,omitempty"`
	Region       string `json:"region,omitempty"`
	City         string `json:"city,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
}

// component types in order from broad to specific
var componentRank = map[string]int{
	"country":                     0,
	"administrative_area_level_1": 1, // governorate / state
	"locality":                    2,
	"postal_town":                 2,
	"sublocality":                 3,
	"sublocality_level_1":         3,
	"neighborhood":                3,
}

// FromComponents extracts a Place from Google geocoder address components.
// The first component of each rank wins.
func FromComponents(components []maps.AddressComponent) Place {
	found := make(map[int]string, 4)
	for _, component := range components {
		for _, t := range component.Types {
			rank, ok := componentRank[t]
			if !ok {
				continue
			}
			if _, seen := found[rank]; !seen {
				found[rank] = component.LongName
			}
		}
	}

	p := Place{
		Country:      found[0],
		Region:       found[1],
		City:         found[2],
		Neighborhood: found[3],
	}
	// Some Tunisian results carry no locality, only the governorate.
	if p.City == "" {
		p.City = p.Region
	}
	return p
}

// Path renders "country|region|city|neighborhood", skipping empty parts.
func (p Place) Path() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Country, p.Region, p.City, p.Neighborhood} {
		if s != "" {
			parts = append(parts, NormalizeName(s))
		}
	}
	return strings.Join(parts, "|")
}

// NormalizeName converts a string to lowercase with spaces replaced by underscores.
func NormalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(normalized), "_")
}
