package keywords

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCanonicalEntryValidate(t *testing.T) {
	valid := CanonicalEntry{
		Key:       "مغنيسيوم",
		Variants:  []string{"مغنيسيوم", "magnesium"},
		Threshold: 78,
		MinLength: 5,
	}

	tests := []struct {
		name    string
		mutate  func(e *CanonicalEntry)
		wantErr string
	}{
		{
			name:   "valid entry",
			mutate: func(e *CanonicalEntry) {},
		},
		{
			name:    "empty key",
			mutate:  func(e *CanonicalEntry) { e.Key = "  " },
			wantErr: "empty key",
		},
		{
			name:    "no variants",
			mutate:  func(e *CanonicalEntry) { e.Variants = nil },
			wantErr: "no variants",
		},
		{
			name:    "blank variant",
			mutate:  func(e *CanonicalEntry) { e.Variants = []string{"magnesium", " "} },
			wantErr: "empty variant at index 1",
		},
		{
			name:    "zero threshold",
			mutate:  func(e *CanonicalEntry) { e.Threshold = 0 },
			wantErr: "threshold",
		},
		{
			name:    "threshold above 100",
			mutate:  func(e *CanonicalEntry) { e.Threshold = 101 },
			wantErr: "threshold",
		},
		{
			name:    "negative min length",
			mutate:  func(e *CanonicalEntry) { e.MinLength = -1 },
			wantErr: "min_length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := valid
			entry.Variants = append([]string(nil), valid.Variants...)
			tt.mutate(&entry)

			err := entry.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewDictionary(t *testing.T) {
	t.Run("empty entry list rejected", func(t *testing.T) {
		if _, err := NewDictionary(nil); err == nil {
			t.Fatal("expected error for empty dictionary")
		}
	})

	t.Run("invalid entry reported with index", func(t *testing.T) {
		entries := []CanonicalEntry{
			{Key: "عسل", Variants: []string{"عسل"}, Threshold: 85},
			{Key: "", Variants: []string{"honey"}, Threshold: 85},
		}
		_, err := NewDictionary(entries)
		if err == nil || !strings.Contains(err.Error(), "entry 1") {
			t.Fatalf("NewDictionary() = %v, want error naming entry 1", err)
		}
	})

	t.Run("entries are copied", func(t *testing.T) {
		entries := []CanonicalEntry{
			{Key: "عسل", Variants: []string{"عسل"}, Threshold: 85},
		}
		dict, err := NewDictionary(entries)
		if err != nil {
			t.Fatalf("NewDictionary() error = %v", err)
		}
		entries[0].Key = "mutated"
		if got := dict.Entries()[0].Key; got != "عسل" {
			t.Errorf("dictionary entry key = %q, want %q", got, "عسل")
		}
	})
}

func TestLoadDictionary(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dict.yaml")
		doc := `entries:
  - key: "مغنيسيوم"
    variants: ["مغنيسيوم", "magnesium"]
    compounds: ["glycinate", "400"]
    threshold: 78
    min_length: 5
  - key: "عسل"
    variants: ["عسل", "honey"]
    threshold: 85
    min_length: 3
`
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}

		dict, err := LoadDictionary(path)
		if err != nil {
			t.Fatalf("LoadDictionary() error = %v", err)
		}
		if dict.Len() != 2 {
			t.Errorf("Len() = %d, want 2", dict.Len())
		}
		if got := dict.Entries()[0].Key; got != "مغنيسيوم" {
			t.Errorf("first entry key = %q, want %q", got, "مغنيسيوم")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadDictionary(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dict.yaml")
		if err := os.WriteFile(path, []byte("entries: [unterminated"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadDictionary(path); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("invalid entry rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dict.yaml")
		doc := `entries:
  - key: "عسل"
    variants: ["عسل"]
    threshold: 0
`
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadDictionary(path); err == nil {
			t.Fatal("expected validation error")
		}
	})
}

func TestDefaultEntries(t *testing.T) {
	dict, err := NewDictionary(DefaultEntries())
	if err != nil {
		t.Fatalf("default entries failed validation: %v", err)
	}
	if dict.Len() == 0 {
		t.Fatal("default dictionary is empty")
	}

	seen := make(map[string]struct{})
	for _, entry := range dict.Entries() {
		if _, ok := seen[entry.Key]; ok {
			t.Errorf("duplicate key %q", entry.Key)
		}
		seen[entry.Key] = struct{}{}
	}
}
