package geography

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	errs "pickup-address-matcher/pkg/errors"
)

//go:embed gazetteer.yaml
var gazetteerYAML []byte

var defaultGazetteer *Gazetteer

func init() {
	g, err := ParseGazetteer(gazetteerYAML)
	if err != nil {
		panic("failed to load gazetteer.yaml: " + err.Error())
	}
	defaultGazetteer = g
}

// Country is a country name plus the spellings that identify it in an address.
type Country struct {
	Name       string   `yaml:"name" json:"name"`
	Alternates []string `yaml:"alternates" json:"alternates,omitempty"`
}

// Alias rewrites a known place-name variant to its canonical spelling.
type Alias struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Gazetteer is the closed place-name data that drives normalization and
// city/country extraction. Entries are stored in normalized form.
//
// Cities and Aliases are ordered: extraction returns the first city found and
// aliases are applied in sequence.
type Gazetteer struct {
	DefaultCountry string    `yaml:"default_country" json:"default_country"`
	Countries      []Country `yaml:"countries" json:"countries"`
	Cities         []string  `yaml:"cities" json:"cities"`
	Aliases        []Alias   `yaml:"aliases" json:"aliases"`
	Stopwords      []string  `yaml:"stopwords" json:"stopwords"`
}

// Default returns a copy of the embedded gazetteer.
func Default() *Gazetteer {
	return defaultGazetteer.Clone()
}

// LoadGazetteer reads and validates a gazetteer YAML file.
func LoadGazetteer(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewValidation("geography.LoadGazetteer", "read gazetteer file", err)
	}
	return ParseGazetteer(data)
}

// ParseGazetteer decodes and validates gazetteer YAML.
func ParseGazetteer(data []byte) (*Gazetteer, error) {
	var g Gazetteer
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, errs.NewValidation("geography.ParseGazetteer", "decode yaml", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate checks the invariants normalization depends on. In particular an
// alias target must not contain any alias source as a whole word, otherwise
// normalizing twice could rewrite the result again.
func (g *Gazetteer) Validate() error {
	const op = "geography.Gazetteer.Validate"

	if g.DefaultCountry == "" {
		return errs.NewValidation(op, "default_country is required", nil)
	}
	if !isNormalizedEntry(g.DefaultCountry) {
		return errs.NewValidation(op, fmt.Sprintf("default_country %q must be lowercase ascii", g.DefaultCountry), nil)
	}

	stop := make(map[string]struct{}, len(g.Stopwords))
	for _, w := range g.Stopwords {
		if !isNormalizedEntry(w) || strings.Contains(w, " ") {
			return errs.NewValidation(op, fmt.Sprintf("stopword %q must be a single lowercase ascii word", w), nil)
		}
		stop[w] = struct{}{}
	}

	for _, c := range g.Cities {
		if !isNormalizedEntry(c) {
			return errs.NewValidation(op, fmt.Sprintf("city %q must be lowercase ascii", c), nil)
		}
		for _, tok := range strings.Fields(c) {
			if _, ok := stop[tok]; ok {
				return errs.NewValidation(op, fmt.Sprintf("city %q contains stopword %q", c, tok), nil)
			}
		}
	}

	for _, c := range g.Countries {
		for _, name := range append([]string{c.Name}, c.Alternates...) {
			if !isNormalizedEntry(name) {
				return errs.NewValidation(op, fmt.Sprintf("country name %q must be lowercase ascii", name), nil)
			}
		}
	}

	sources := make(map[string]struct{}, len(g.Aliases))
	for _, a := range g.Aliases {
		if !isNormalizedEntry(a.From) || !isNormalizedEntry(a.To) {
			return errs.NewValidation(op, fmt.Sprintf("alias %q -> %q must be lowercase ascii", a.From, a.To), nil)
		}
		if _, dup := sources[a.From]; dup {
			return errs.NewValidation(op, fmt.Sprintf("duplicate alias source %q", a.From), nil)
		}
		sources[a.From] = struct{}{}
	}
	for _, a := range g.Aliases {
		for src := range sources {
			if ContainsWord(a.To, src) {
				return errs.NewValidation(op, fmt.Sprintf("alias target %q contains alias source %q", a.To, src), nil)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (g *Gazetteer) Clone() *Gazetteer {
	c := &Gazetteer{
		DefaultCountry: g.DefaultCountry,
		Cities:         append([]string(nil), g.Cities...),
		Aliases:        append([]Alias(nil), g.Aliases...),
		Stopwords:      append([]string(nil), g.Stopwords...),
		Countries:      make([]Country, len(g.Countries)),
	}
	for i, ct := range g.Countries {
		c.Countries[i] = Country{Name: ct.Name, Alternates: append([]string(nil), ct.Alternates...)}
	}
	return c
}

// WithDefaultCountry returns a copy whose fallback country is name. An empty
// name leaves the default unchanged.
func (g *Gazetteer) WithDefaultCountry(name string) *Gazetteer {
	c := g.Clone()
	if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
		c.DefaultCountry = name
	}
	return c
}

func isNormalizedEntry(s string) bool {
	if s == "" || s != strings.TrimSpace(s) || strings.Contains(s, "  ") {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || unicode.IsUpper(r) {
			return false
		}
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}

// ContainsWord reports whether phrase appears in s as whole space-separated
// words. A period closing a word in s is ignored ("tunisia." holds "tunisia").
func ContainsWord(s, phrase string) bool {
	words := strings.Fields(s)
	want := strings.Fields(phrase)
	if len(want) == 0 {
		return false
	}
	for i := 0; i+len(want) <= len(words); i++ {
		match := true
		for j, w := range want {
			if strings.TrimRight(words[i+j], ".") != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
