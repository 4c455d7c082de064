package domain

import (
	"fmt"
	"slices"
)

// BaytRow is a couplet as seen by the fal assembler.
type BaytRow struct {
	PoemID int      `json:"poem_id"`
	BaytID int      `json:"bayt_id"`
	Text   string   `json:"text"`
	Affect []string `json:"affect"`
	Lens   *string  `json:"lens,omitempty"`
}

// DatasetRow is one line of the canonical couplet dataset.
type DatasetRow struct {
	PoemID     int      `json:"poem_id"`
	BaytID     int      `json:"bayt_id"`
	Text       string   `json:"text"`
	BaytHint   string   `json:"bayt_hint"`
	Affect     []string `json:"affect"`
	GhazalAxis string   `json:"ghazal_axis"`
	Lens       *string  `json:"lens,omitempty"`
}

// Key returns the couplet key.
func (r DatasetRow) Key() UnitKey {
	return BaytKey(r.PoemID, r.BaytID)
}

// FalRow projects the dataset row for assembly.
func (r DatasetRow) FalRow() BaytRow {
	return BaytRow{
		PoemID: r.PoemID,
		BaytID: r.BaytID,
		Text:   r.Text,
		Affect: slices.Clone(r.Affect),
		Lens:   r.Lens,
	}
}

// EmbeddingText returns the text embedded for retrieval.
func (r DatasetRow) EmbeddingText() string {
	if r.BaytHint == "" {
		return r.Text
	}
	return r.Text + "\n" + r.BaytHint
}

// LensTag assigns an interpretive lens to a couplet.
type LensTag struct {
	PoemID int    `json:"poem_id"`
	BaytID int    `json:"bayt_id"`
	Lens   string `json:"lens"`
}

// Key returns the couplet key.
func (l LensTag) Key() UnitKey {
	return BaytKey(l.PoemID, l.BaytID)
}

// EmbeddingRecord is the vector of one dataset row.
type EmbeddingRecord struct {
	PoemID    int       `json:"poem_id"`
	BaytID    int       `json:"bayt_id"`
	Embedding []float32 `json:"embedding"`
}

// Key returns the couplet key.
func (e EmbeddingRecord) Key() UnitKey {
	return BaytKey(e.PoemID, e.BaytID)
}

// FalLexicon holds the sentence tables used to render a fal.
type FalLexicon struct {
	DefaultMarker  string              `yaml:"default_marker"`
	AffectVariants map[string][]string `yaml:"affect_variants"`
	SoftLenses     map[string][]string `yaml:"soft_lenses"`
	HardLenses     map[string][]string `yaml:"hard_lenses"`
}

// Validate checks that the lens tables are disjoint and the marker is set.
func (l FalLexicon) Validate() error {
	if l.DefaultMarker == "" {
		return &SchemaError{Field: "default_marker", Reason: "missing"}
	}
	for tag := range l.HardLenses {
		if _, ok := l.SoftLenses[tag]; ok {
			return &SchemaError{
				Field:  "lenses",
				Reason: fmt.Sprintf("lens %q is both soft and hard", tag),
			}
		}
	}
	return nil
}
