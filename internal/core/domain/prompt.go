package domain

import "strings"

// PromptSet is a frozen, versioned set of prompt templates.
// User templates use text/template syntax.
type PromptSet struct {
	Version      string `yaml:"version"`
	System       string `yaml:"system"`
	Axis         string `yaml:"axis"`
	Bayt         string `yaml:"bayt"`
	RepairSystem string `yaml:"repair_system"`
	Repair       string `yaml:"repair"`
}

// Validate checks that every template is present.
func (p PromptSet) Validate() error {
	fields := []struct {
		name, value string
	}{
		{"version", p.Version},
		{"system", p.System},
		{"axis", p.Axis},
		{"bayt", p.Bayt},
		{"repair_system", p.RepairSystem},
		{"repair", p.Repair},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &SchemaError{Field: "prompts." + f.name, Reason: "missing"}
		}
	}
	return nil
}

// AxisPromptData fills the axis template.
type AxisPromptData struct {
	AllBayts    string
	GhazalProse string
}

// BaytPromptData fills the couplet extraction template.
type BaytPromptData struct {
	AffectList string
	GhazalAxis string
	BaytText   string
	BaytProse  string
}

// RepairPromptData fills the hint repair template.
type RepairPromptData struct {
	BaytText string
	OldHint  string
}
