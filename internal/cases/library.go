// Package cases holds the library of practice cases.
package cases

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

//go:embed cases.yaml
var builtin []byte

// DefaultID is the case used when nothing has been selected.
const DefaultID = "aerowidget"

// All matches every value of a filter field.
const All = "All"

// Entry is one case in the library.
type Entry struct {
	ID         string   `yaml:"id" json:"id"`
	Title      string   `yaml:"title" json:"title"`
	Desc       string   `yaml:"desc" json:"desc"`
	Industry   string   `yaml:"industry" json:"industry"`
	Difficulty string   `yaml:"difficulty" json:"difficulty"`
	Type       string   `yaml:"type" json:"type"`
	Minutes    int      `yaml:"minutes" json:"minutes"`
	Goal       string   `yaml:"goal" json:"goal"`
	Facts      []string `yaml:"facts" json:"facts"`
}

// Descriptor converts the entry into the case a session runs against.
func (e Entry) Descriptor() interview.Case {
	return interview.Case{
		ID:       e.ID,
		Company:  e.Title,
		Industry: e.Industry,
		Problem:  e.Desc,
		Goal:     e.Goal,
		Facts:    append([]string(nil), e.Facts...),
	}
}

// Filter narrows the library. Empty or All fields match everything.
type Filter struct {
	Query      string
	Difficulty string
	Industry   string
	Type       string
}

func (f Filter) matches(e Entry) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(e.Title), q) && !strings.Contains(strings.ToLower(e.Desc), q) {
			return false
		}
	}
	return field(f.Difficulty, e.Difficulty) && field(f.Industry, e.Industry) && field(f.Type, e.Type)
}

func field(want, got string) bool {
	return want == "" || want == All || strings.EqualFold(want, got)
}

// Library is an immutable, ordered set of cases.
type Library struct {
	entries []Entry
	byID    map[string]int
}

// Builtin returns the embedded case library.
func Builtin() (*Library, error) {
	return Parse(builtin)
}

// Parse loads a library from YAML. IDs must be present and unique.
func Parse(data []byte) (*Library, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing cases: %w", err)
	}

	lib := &Library{entries: entries, byID: make(map[string]int, len(entries))}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("case %d (%q) has no id", i, e.Title)
		}
		if _, dup := lib.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate case id %q", e.ID)
		}
		lib.byID[e.ID] = i
	}
	return lib, nil
}

// All returns every case in library order.
func (l *Library) All() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Filter returns the cases matching f, in library order.
func (l *Library) Filter(f Filter) []Entry {
	var out []Entry
	for _, e := range l.entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Get looks up a case by id.
func (l *Library) Get(id string) (Entry, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Default returns the AeroWidget case, or the first case if the library
// does not contain it.
func (l *Library) Default() Entry {
	if e, ok := l.Get(DefaultID); ok {
		return e
	}
	if len(l.entries) > 0 {
		return l.entries[0]
	}
	return Entry{}
}

// Values lists the distinct values of one field, in first-seen order,
// for building filter menus. name is "difficulty", "industry" or "type".
func (l *Library) Values(name string) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range l.entries {
		var v string
		switch name {
		case "difficulty":
			v = e.Difficulty
		case "industry":
			v = e.Industry
		case "type":
			v = e.Type
		}
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
