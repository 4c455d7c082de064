package driven

import "github.com/custodia-labs/yaar-cli/internal/core/domain"

// PromptStore provides access to versioned prompt sets.
// A prompt set is frozen once a corpus has been built with it.
type PromptStore interface {
	// Load returns the prompt set for the given version.
	// Returns domain.ErrNotFound if the version is unknown.
	Load(version string) (domain.PromptSet, error)

	// Versions lists the available prompt set versions.
	Versions() ([]string, error)
}

// LexiconStore provides the sentence tables used to render a fal.
type LexiconStore interface {
	// Load returns the fal lexicon.
	Load() (domain.FalLexicon, error)
}
