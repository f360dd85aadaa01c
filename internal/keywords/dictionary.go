package keywords

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CanonicalEntry is one canonical concept and everything needed to decide
// whether a candidate token belongs to it. Entries are immutable for the
// lifetime of a Dictionary.
type CanonicalEntry struct {
	// Key names the group all matching tokens fold into.
	Key string `yaml:"key"`
	// Variants are known spellings, transliterations and synonyms, most
	// canonical first. Compound detection only consults the first few.
	Variants []string `yaml:"variants"`
	// ExcludedTerms veto a match outright when present in the token,
	// regardless of similarity score. Guards look-alike unrelated words.
	ExcludedTerms []string `yaml:"excluded_terms,omitempty"`
	// Compounds are secondary qualifiers (dosage, salt form, target use)
	// that justify grouping a long compound token onto a short variant.
	Compounds []string `yaml:"compounds,omitempty"`
	// Threshold is the minimum fuzzy similarity (0..100) this entry accepts.
	Threshold int `yaml:"threshold"`
	// MinLength skips tokens shorter than this many runes entirely.
	MinLength int `yaml:"min_length"`
}

// Validate rejects malformed entries. Dictionary configuration errors are
// programmer errors and fail at construction time, unlike data errors which
// the grouper coerces.
func (e *CanonicalEntry) Validate() error {
	if strings.TrimSpace(e.Key) == "" {
		return fmt.Errorf("canonical entry has empty key")
	}
	if len(e.Variants) == 0 {
		return fmt.Errorf("canonical entry %q has no variants", e.Key)
	}
	for i, v := range e.Variants {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("canonical entry %q has empty variant at index %d", e.Key, i)
		}
	}
	if e.Threshold <= 0 || e.Threshold > 100 {
		return fmt.Errorf("canonical entry %q has threshold %d, want 1..100", e.Key, e.Threshold)
	}
	if e.MinLength < 0 {
		return fmt.Errorf("canonical entry %q has negative min_length %d", e.Key, e.MinLength)
	}
	return nil
}

func (e *CanonicalEntry) excludes(token string) bool {
	for _, ex := range e.ExcludedTerms {
		if ex != "" && strings.Contains(token, ex) {
			return true
		}
	}
	return false
}

func (e *CanonicalEntry) hasExactVariant(token string) bool {
	for _, v := range e.Variants {
		if strings.EqualFold(v, token) {
			return true
		}
	}
	return false
}

// Dictionary is an ordered, validated set of canonical entries. Iteration
// order is the declared order: tie-breaking between equally scored entries
// depends on it, so the Dictionary never reorders.
type Dictionary struct {
	entries []CanonicalEntry
}

func NewDictionary(entries []CanonicalEntry) (*Dictionary, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("dictionary requires at least one entry")
	}
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return nil, fmt.Errorf("dictionary entry %d: %w", i, err)
		}
	}
	copied := make([]CanonicalEntry, len(entries))
	copy(copied, entries)
	return &Dictionary{entries: copied}, nil
}

// LoadDictionary reads an entry list from a YAML file. The file holds a
// top-level `entries:` sequence using the CanonicalEntry field names.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary file %s: %w", path, err)
	}

	var doc struct {
		Entries []CanonicalEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing dictionary file %s: %w", path, err)
	}

	dict, err := NewDictionary(doc.Entries)
	if err != nil {
		return nil, fmt.Errorf("validating dictionary file %s: %w", path, err)
	}
	return dict, nil
}

func (d *Dictionary) Len() int {
	return len(d.entries)
}

// Entries returns the entries in declared order. The slice is a copy; the
// dictionary itself stays immutable.
func (d *Dictionary) Entries() []CanonicalEntry {
	out := make([]CanonicalEntry, len(d.entries))
	copy(out, d.entries)
	return out
}
