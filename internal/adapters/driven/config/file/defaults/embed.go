// Package defaults embeds the built-in prompt sets and fal lexicon.
package defaults

import "embed"

// FS holds the default YAML files.
//
//go:embed *.yaml
var FS embed.FS

// LexiconFile is the name of the default lexicon within FS.
const LexiconFile = "lexicon.yaml"
