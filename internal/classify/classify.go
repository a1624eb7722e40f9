// Package classify maps exercise names to muscle-group categories.
//
// The mapping is data: an ordered table of canonical names plus keyword
// buckets, loaded from YAML. Matching is input-contains-key. A free-text
// name such as "Dumbbell Single-Arm Row-Right" is matched against the
// shorter canonical "Single-Arm Row"; canonical keys are never matched by
// being contained in the input the other way round.
package classify

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Other is the category of names nothing matches.
const Other = "Other"

// Delimiter separates multiple categories in one category string.
const Delimiter = "/"

//go:embed muscles.yaml
var defaultTable []byte

// Entry is one canonical exercise name and its category string.
type Entry struct {
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
}

// Keyword is a fallback bucket: any name containing Keyword gets Category.
type Keyword struct {
	Keyword  string `yaml:"keyword" json:"keyword"`
	Category string `yaml:"category" json:"category"`
}

// CardioConfig names the category token and exercises treated as cardio.
type CardioConfig struct {
	Marker    string   `yaml:"marker" json:"marker"`
	Exercises []string `yaml:"exercises" json:"exercises"`
}

// Table is the on-disk classifier definition.
type Table struct {
	Exercises []Entry      `yaml:"exercises" json:"exercises"`
	Keywords  []Keyword    `yaml:"keywords" json:"keywords"`
	Cardio    CardioConfig `yaml:"cardio" json:"cardio"`
}

// Source says which rule produced a category.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceExact    Source = "exact"
	SourceContains Source = "contains"
	SourceKeyword  Source = "keyword"
	SourceFallback Source = "fallback"
)

// Match is the detailed result of a lookup.
type Match struct {
	Category string `json:"category"`
	Source   Source `json:"source"`
	Key      string `json:"key,omitempty"`
}

type rule struct {
	key      string // normalized
	label    string // as written in the table
	category string
}

// Classifier answers category lookups. It is immutable after construction
// and safe for concurrent use.
type Classifier struct {
	table    Table
	exact    map[string]int
	entries  []rule
	keywords []rule
	marker   string
	cardio   []string
}

// Default returns the classifier built from the embedded table.
func Default() *Classifier {
	c, err := Load(strings.NewReader(string(defaultTable)))
	if err != nil {
		panic(fmt.Sprintf("classify: embedded table: %v", err))
	}
	return c
}

// LoadFile reads a YAML table from path.
func LoadFile(path string) (*Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening classifier table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML table.
func Load(r io.Reader) (*Classifier, error) {
	var t Table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("parsing classifier table: %w", err)
	}
	return New(t)
}

// New validates t and builds a classifier. When two entries normalize to
// the same key the first one wins.
func New(t Table) (*Classifier, error) {
	c := &Classifier{
		table:  t,
		exact:  make(map[string]int, len(t.Exercises)),
		marker: strings.TrimSpace(t.Cardio.Marker),
	}

	for i, e := range t.Exercises {
		key := Normalize(e.Name)
		cat := strings.TrimSpace(e.Category)
		if key == "" || cat == "" {
			return nil, fmt.Errorf("exercise entry %d: name and category are required", i)
		}
		if _, dup := c.exact[key]; dup {
			continue
		}
		c.exact[key] = len(c.entries)
		c.entries = append(c.entries, rule{key: key, label: e.Name, category: cat})
	}

	for i, k := range t.Keywords {
		key := Normalize(k.Keyword)
		cat := strings.TrimSpace(k.Category)
		if key == "" || cat == "" {
			return nil, fmt.Errorf("keyword entry %d: keyword and category are required", i)
		}
		c.keywords = append(c.keywords, rule{key: key, label: k.Keyword, category: cat})
	}

	for _, name := range t.Cardio.Exercises {
		if key := Normalize(name); key != "" {
			c.cardio = append(c.cardio, key)
		}
	}

	return c, nil
}

// Table returns the definition the classifier was built from.
func (c *Classifier) Table() Table {
	return c.table
}

// Classify returns the category string for an exercise name, "Other" when
// nothing matches.
func (c *Classifier) Classify(name string) string {
	return c.Match(name).Category
}

// Match looks a name up: exact canonical name, then the longest canonical
// name contained in the input, then the longest contained keyword.
func (c *Classifier) Match(name string) Match {
	key := Normalize(name)
	if key == "" {
		return Match{Category: Other, Source: SourceFallback}
	}
	if i, ok := c.exact[key]; ok {
		return Match{Category: c.entries[i].category, Source: SourceExact, Key: c.entries[i].label}
	}
	if r, ok := longestContained(key, c.entries); ok {
		return Match{Category: r.category, Source: SourceContains, Key: r.label}
	}
	if r, ok := longestContained(key, c.keywords); ok {
		return Match{Category: r.category, Source: SourceKeyword, Key: r.label}
	}
	return Match{Category: Other, Source: SourceFallback}
}

// Resolve returns the category of an exercise record. An explicit muscle
// field wins over the table.
func (c *Classifier) Resolve(ex models.Exercise) Match {
	if m := strings.TrimSpace(ex.Muscle); m != "" {
		return Match{Category: m, Source: SourceExplicit}
	}
	return c.Match(ex.Name)
}

// IsCardio reports whether volume for this exercise counts reps alone.
func (c *Classifier) IsCardio(name string, categories []string) bool {
	if c.marker != "" {
		for _, cat := range categories {
			if strings.EqualFold(cat, c.marker) {
				return true
			}
		}
	}
	key := Normalize(name)
	for _, k := range c.cardio {
		if key == k || strings.Contains(key, k) {
			return true
		}
	}
	return false
}

func longestContained(key string, rules []rule) (rule, bool) {
	best := -1
	for i, r := range rules {
		if !strings.Contains(key, r.key) {
			continue
		}
		// Strictly longer only, so table order breaks ties.
		if best < 0 || len(r.key) > len(rules[best].key) {
			best = i
		}
	}
	if best < 0 {
		return rule{}, false
	}
	return rules[best], true
}

// Split breaks a category string into trimmed atomic categories. An empty
// string yields ["Other"].
func Split(category string) []string {
	var out []string
	for _, part := range strings.Split(category, Delimiter) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{Other}
	}
	return out
}

// Normalize folds an exercise name for comparison: NFKC, case folded,
// hyphens and underscores as spaces, whitespace collapsed.
func Normalize(name string) string {
	s := norm.NFKC.String(name)
	s = cases.Fold().String(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '–', '—':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
