package file

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/config/file/defaults"
	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

// Ensure LexiconStore implements the interface.
var _ driven.LexiconStore = (*LexiconStore)(nil)

// LexiconStore loads the fal lexicon from a YAML file,
// falling back to the embedded default when no path is set or the file is absent.
type LexiconStore struct {
	path string
}

// NewLexiconStore creates a lexicon store reading path.
func NewLexiconStore(path string) *LexiconStore {
	return &LexiconStore{path: path}
}

// Load reads and validates the lexicon.
func (s *LexiconStore) Load() (domain.FalLexicon, error) {
	data, err := s.read()
	if err != nil {
		return domain.FalLexicon{}, err
	}

	var lex domain.FalLexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return domain.FalLexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}
	if err := lex.Validate(); err != nil {
		return domain.FalLexicon{}, fmt.Errorf("lexicon: %w", err)
	}
	return lex, nil
}

func (s *LexiconStore) read() ([]byte, error) {
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read lexicon: %w", err)
		}
	}
	return fs.ReadFile(defaults.FS, defaults.LexiconFile)
}
