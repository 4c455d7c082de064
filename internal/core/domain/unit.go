package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// UnitKey identifies a record in a stage output file.
// Poem-level keys have no bayt component.
type UnitKey struct {
	PoemID  int
	BaytID  int
	HasBayt bool
}

// PoemKey returns the key for a poem-level record.
func PoemKey(poemID int) UnitKey {
	return UnitKey{PoemID: poemID}
}

// BaytKey returns the key for a couplet-level record.
func BaytKey(poemID, baytID int) UnitKey {
	return UnitKey{PoemID: poemID, BaytID: baytID, HasBayt: true}
}

// String returns the key in progress-line form.
func (k UnitKey) String() string {
	s := "poem_id=" + strconv.Itoa(k.PoemID)
	if k.HasBayt {
		s += " bayt_id=" + strconv.Itoa(k.BaytID)
	}
	return s
}

// KeySet is the set of keys already present in a stage output.
// It is the resume frontier: present keys are never reprocessed.
type KeySet map[UnitKey]struct{}

// NewKeySet returns a set containing keys.
func NewKeySet(keys ...UnitKey) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts a key.
func (s KeySet) Add(k UnitKey) {
	s[k] = struct{}{}
}

// Has reports whether the key is present.
func (s KeySet) Has(k UnitKey) bool {
	_, ok := s[k]
	return ok
}

// Insight holds the prose summaries attached to a raw couplet.
type Insight struct {
	GhazalSummary string `json:"ghazal_summary"`
	BaytSummary   string `json:"bayt_summary"`
}

// RawUnit is one couplet of the raw corpus. Loaded once per run and never mutated.
type RawUnit struct {
	PoemID  int     `json:"poem_id"`
	BaytID  int     `json:"bayt_id"`
	Text    string  `json:"text"`
	Insight Insight `json:"insight"`
}

// Key returns the couplet key.
func (u RawUnit) Key() UnitKey {
	return BaytKey(u.PoemID, u.BaytID)
}

// Poem groups the couplets of one poem in corpus order.
type Poem struct {
	ID    int
	Units []RawUnit
}

// GroupPoems groups units by poem id, ordered by first appearance.
func GroupPoems(units []RawUnit) []Poem {
	index := make(map[int]int)
	var poems []Poem //nolint:prealloc // poem count unknown until grouped
	for _, u := range units {
		i, ok := index[u.PoemID]
		if !ok {
			i = len(poems)
			index[u.PoemID] = i
			poems = append(poems, Poem{ID: u.PoemID})
		}
		poems[i].Units = append(poems[i].Units, u)
	}
	return poems
}

// DecodeKey extracts the unit key from an encoded record.
// A record without bayt_id yields a poem-level key.
func DecodeKey(raw json.RawMessage) (UnitKey, error) {
	var k struct {
		PoemID *int `json:"poem_id"`
		BaytID *int `json:"bayt_id"`
	}
	if err := json.Unmarshal(raw, &k); err != nil {
		return UnitKey{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	if k.PoemID == nil {
		return UnitKey{}, fmt.Errorf("%w: missing poem_id", ErrCorruptRecord)
	}
	if k.BaytID == nil {
		return PoemKey(*k.PoemID), nil
	}
	return BaytKey(*k.PoemID, *k.BaytID), nil
}
