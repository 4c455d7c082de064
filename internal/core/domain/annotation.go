package domain

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// Provenance keys written into annotation_meta.
const (
	MetaModel          = "model"
	MetaPromptVersion  = "prompt_version"
	MetaRepair         = "repair"
	MetaRepairRule     = "repair_rule"
	MetaManualNorm     = "manual_norm"
	MetaManualNormRule = "manual_norm_rule"
	MetaNormPrefix     = "manual_norm_prefix"
)

// Meta is the free-form provenance mapping attached to an annotation.
// It is treated as an immutable value: Merge returns a new mapping.
type Meta map[string]any

// Merge returns a new mapping holding m overlaid with other.
// Neither input is modified.
func (m Meta) Merge(other Meta) Meta {
	out := make(Meta, len(m)+len(other))
	maps.Copy(out, m)
	maps.Copy(out, other)
	return out
}

// String returns the string value at key, or "".
func (m Meta) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Bool returns the boolean value at key, or false.
func (m Meta) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// MaxAffects is the maximum number of affect labels on a couplet.
const MaxAffects = 2

// affectVocabulary is the closed set of affect labels.
var affectVocabulary = []string{
	"اندوه",
	"امید",
	"ناامیدی",
	"حیرت",
	"شوق",
	"حسرت",
	"آرامش",
	"بی‌قراری",
}

// AffectVocabulary returns the closed affect vocabulary in canonical order.
func AffectVocabulary() []string {
	return slices.Clone(affectVocabulary)
}

// IsAffect reports whether label belongs to the affect vocabulary.
func IsAffect(label string) bool {
	return slices.Contains(affectVocabulary, label)
}

// AxisAnnotation is the semantic axis of one poem.
type AxisAnnotation struct {
	PoemID     int    `json:"poem_id"`
	GhazalAxis string `json:"ghazal_axis"`
	Meta       Meta   `json:"annotation_meta"`
}

// Key returns the poem-level key.
func (a AxisAnnotation) Key() UnitKey {
	return PoemKey(a.PoemID)
}

// BaytAnnotation is the hint and affect labelling of one couplet.
type BaytAnnotation struct {
	PoemID     int      `json:"poem_id"`
	BaytID     int      `json:"bayt_id"`
	BaytHint   string   `json:"bayt_hint"`
	Affect     []string `json:"affect"`
	GhazalAxis string   `json:"ghazal_axis"`
	Meta       Meta     `json:"annotation_meta"`
}

// Key returns the couplet key.
func (b BaytAnnotation) Key() UnitKey {
	return BaytKey(b.PoemID, b.BaytID)
}

// MarshalJSON encodes the annotation with affect and meta never null.
func (b BaytAnnotation) MarshalJSON() ([]byte, error) {
	type plain BaytAnnotation
	p := plain(b)
	if p.Affect == nil {
		p.Affect = []string{}
	}
	if p.Meta == nil {
		p.Meta = Meta{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WithHint returns a copy with a new hint and meta merged with extra.
func (b BaytAnnotation) WithHint(hint string, extra Meta) BaytAnnotation {
	out := b
	out.BaytHint = hint
	out.Affect = slices.Clone(b.Affect)
	out.Meta = b.Meta.Merge(extra)
	return out
}

// RejectionRecord is an audit entry for a model response that failed validation.
type RejectionRecord struct {
	Timestamp          time.Time `json:"timestamp"`
	PoemID             int       `json:"poem_id"`
	BaytID             int       `json:"bayt_id"`
	Attempt            int       `json:"attempt"`
	ReturnedAffect     any       `json:"returned_affect"`
	AllowedAffectVocab []string  `json:"allowed_affect_vocab"`
	Model              string    `json:"model"`
	PromptVersion      string    `json:"prompt_version"`
	Final              bool      `json:"final"`
	Reason             string    `json:"reason"`
}
