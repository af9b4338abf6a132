package geography

import (
	"os"
	"path/filepath"
	"testing"

	"googlemaps.github.io/maps"

	errs "pickup-address-matcher/pkg/errors"
)

func TestDefaultGazetteer(t *testing.T) {
	g := Default()

	if g.DefaultCountry != "tunisia" {
		t.Errorf("DefaultCountry = %q, want %q", g.DefaultCountry, "tunisia")
	}
	if len(g.Cities) == 0 || g.Cities[len(g.Cities)-1] != "tunis" {
		t.Errorf("last city = %v, want tunis to be scanned last", g.Cities)
	}

	index := make(map[string]int, len(g.Cities))
	for i, c := range g.Cities {
		index[c] = i
	}
	for _, pair := range [][2]string{{"ariana", "tunis"}, {"hammam sousse", "sousse"}, {"marsa", "tunis"}} {
		if index[pair[0]] > index[pair[1]] {
			t.Errorf("%q must precede %q in the city list", pair[0], pair[1])
		}
	}
}

func TestDefaultReturnsCopy(t *testing.T) {
	g := Default()
	g.Cities[0] = "mutated"
	if Default().Cities[0] == "mutated" {
		t.Fatal("Default() shares state with the embedded gazetteer")
	}
}

func TestWithDefaultCountry(t *testing.T) {
	g := Default().WithDefaultCountry("  Algeria ")
	if g.DefaultCountry != "algeria" {
		t.Errorf("DefaultCountry = %q, want algeria", g.DefaultCountry)
	}
	if got := Default().WithDefaultCountry("").DefaultCountry; got != "tunisia" {
		t.Errorf("empty override changed default to %q", got)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Gazetteer {
		return &Gazetteer{
			DefaultCountry: "tunisia",
			Cities:         []string{"sousse", "tunis"},
			Aliases:        []Alias{{From: "susa", To: "sousse"}},
			Stopwords:      []string{"de", "la"},
			Countries:      []Country{{Name: "tunisia"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(g *Gazetteer)
		wantErr bool
	}{
		{"valid", func(g *Gazetteer) {}, false},
		{"missing default country", func(g *Gazetteer) { g.DefaultCountry = "" }, true},
		{"uppercase city", func(g *Gazetteer) { g.Cities = append(g.Cities, "Sfax") }, true},
		{"accented city", func(g *Gazetteer) { g.Cities = append(g.Cities, "gabès") }, true},
		{"city with stopword", func(g *Gazetteer) { g.Cities = append(g.Cities, "la marsa") }, true},
		{"multiword stopword", func(g *Gazetteer) { g.Stopwords = append(g.Stopwords, "de la") }, true},
		{"duplicate alias", func(g *Gazetteer) { g.Aliases = append(g.Aliases, Alias{From: "susa", To: "sfax"}) }, true},
		{"target contains source", func(g *Gazetteer) {
			g.Aliases = append(g.Aliases, Alias{From: "jem", To: "el jem"})
		}, true},
		{"target contains other source", func(g *Gazetteer) {
			g.Aliases = append(g.Aliases, Alias{From: "thysdrus", To: "susa port"})
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := base()
			tt.mutate(g)
			err := g.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errs.Is(err, errs.ErrValidation) {
				t.Errorf("Validate() err kind = %T, want *ValidationError", err)
			}
		})
	}
}

func TestLoadGazetteer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "places.yaml")
	content := `default_country: algeria
cities: [oran, alger]
aliases:
  - {from: wahran, to: oran}
stopwords: [de]
countries:
  - name: algeria
    alternates: [algerie]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	g, err := LoadGazetteer(path)
	if err != nil {
		t.Fatalf("LoadGazetteer: %v", err)
	}
	if g.DefaultCountry != "algeria" || len(g.Cities) != 2 || g.Aliases[0].To != "oran" {
		t.Errorf("LoadGazetteer = %+v", g)
	}

	if _, err := LoadGazetteer(filepath.Join(dir, "missing.yaml")); !errs.Is(err, errs.ErrValidation) {
		t.Errorf("missing file err = %v, want validation error", err)
	}
	if _, err := ParseGazetteer([]byte("cities: [oran")); err == nil {
		t.Error("ParseGazetteer accepted malformed yaml")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"tunis", "tunis"},
		{"Ben Arous", "ben_arous"},
		{"  Sidi Bou  Said ", "sidi_bou_said"},
		{"Gouvernorat de Tunis", "gouvernorat_de_tunis"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.expected {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFromComponents(t *testing.T) {
	tests := []struct {
		name       string
		components []maps.AddressComponent
		wantCity   string
		wantPath   string
	}{
		{
			name: "full address",
			components: []maps.AddressComponent{
				{LongName: "Avenue Habib Bourguiba", Types: []string{"route"}},
				{LongName: "La Marsa", Types: []string{"locality", "political"}},
				{LongName: "Tunis", Types: []string{"administrative_area_level_1", "political"}},
				{LongName: "Tunisia", ShortName: "TN", Types: []string{"country", "political"}},
			},
			wantCity: "La Marsa",
			wantPath: "tunisia|tunis|la_marsa",
		},
		{
			name: "governorate only",
			components: []maps.AddressComponent{
				{LongName: "Sfax", Types: []string{"administrative_area_level_1"}},
				{LongName: "Tunisia", Types: []string{"country"}},
			},
			wantCity: "Sfax",
			wantPath: "tunisia|sfax|sfax",
		},
		{
			name: "with neighborhood",
			components: []maps.AddressComponent{
				{LongName: "El Menzah", Types: []string{"sublocality_level_1", "sublocality"}},
				{LongName: "Ariana", Types: []string{"locality"}},
				{LongName: "Tunisia", Types: []string{"country"}},
			},
			wantCity: "Ariana",
			wantPath: "tunisia|ariana|el_menzah",
		},
		{
			name:       "empty",
			components: nil,
			wantCity:   "",
			wantPath:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromComponents(tt.components)
			if p.City != tt.wantCity {
				t.Errorf("City = %q, want %q", p.City, tt.wantCity)
			}
			if got := p.Path(); got != tt.wantPath {
				t.Errorf("Path() = %q, want %q", got, tt.wantPath)
			}
		})
	}
}
