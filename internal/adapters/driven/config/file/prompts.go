package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/yaar-cli/internal/adapters/driven/config/file/defaults"
	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/yaar-cli/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

const promptExt = ".yaml"

// PromptStore loads versioned prompt sets from YAML files on disk.
// Each version lives in <dir>/<version>.yaml. Built-in versions fall back to
// the embedded copy when the file is absent.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]domain.PromptSet
	initOnce  sync.Once
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.yaar/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]domain.PromptSet),
	}, nil
}

// Load returns the prompt set for the given version.
func (s *PromptStore) Load(version string) (domain.PromptSet, error) {
	s.initOnce.Do(s.initialise)

	s.mu.RLock()
	if set, ok := s.cache[version]; ok {
		s.mu.RUnlock()
		return set, nil
	}
	s.mu.RUnlock()

	data, err := s.read(version)
	if err != nil {
		return domain.PromptSet{}, err
	}

	set, err := parsePromptSet(data)
	if err != nil {
		return domain.PromptSet{}, fmt.Errorf("prompt set %q: %w", version, err)
	}
	if set.Version != version {
		return domain.PromptSet{}, fmt.Errorf("prompt set %q: file declares version %q: %w",
			version, set.Version, domain.ErrInvalidInput)
	}

	s.mu.Lock()
	s.cache[version] = set
	s.mu.Unlock()

	return set, nil
}

// Versions lists the available prompt set versions, sorted.
func (s *PromptStore) Versions() ([]string, error) {
	seen := make(map[string]struct{})

	builtin, err := fs.Glob(defaults.FS, "v*"+promptExt)
	if err != nil {
		return nil, err
	}
	for _, name := range builtin {
		seen[strings.TrimSuffix(name, promptExt)] = struct{}{}
	}

	entries, err := os.ReadDir(s.promptDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read prompt directory: %w", err)
	}
	for _, e := range entries {
		if name := e.Name(); !e.IsDir() && strings.HasSuffix(name, promptExt) {
			seen[strings.TrimSuffix(name, promptExt)] = struct{}{}
		}
	}

	versions := make([]string, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]domain.PromptSet)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// read returns the YAML for a version from disk or the embedded defaults.
func (s *PromptStore) read(version string) ([]byte, error) {
	if version == "" || strings.ContainsAny(version, `/\`) {
		return nil, fmt.Errorf("prompt version %q: %w", version, domain.ErrInvalidInput)
	}

	data, err := os.ReadFile(filepath.Join(s.promptDir, version+promptExt))
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read prompt set %q: %w", version, err)
	}

	data, err = fs.ReadFile(defaults.FS, version+promptExt)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("prompt set %q: %w", version, domain.ErrNotFound)
	}
	return data, err
}

// initialise writes the built-in prompt sets to the prompt directory.
// Existing files are never overwritten. Failure is not fatal: loads fall
// back to the embedded copies.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0o700); err != nil {
		logger.Warn("prompt store: create %s: %v", s.promptDir, err)
		return
	}

	builtin, err := fs.Glob(defaults.FS, "v*"+promptExt)
	if err != nil {
		logger.Warn("prompt store: %v", err)
		return
	}
	for _, name := range builtin {
		path := filepath.Join(s.promptDir, name)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		content, err := fs.ReadFile(defaults.FS, name)
		if err != nil {
			logger.Warn("prompt store: %v", err)
			return
		}
		if err := os.WriteFile(path, content, 0o600); err != nil {
			logger.Warn("prompt store: create default prompt set %q: %v", name, err)
			return
		}
	}

	if err := s.createReadme(); err != nil {
		logger.Warn("prompt store: %v", err)
	}
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# Yaar Prompt Sets

Each file in this directory is one frozen prompt set, named <version>.yaml.
Annotations record the prompt_version they were produced with, so a set must
not be edited once a corpus has been built from it. Copy it to a new version
and select that version with ` + "`prompts.version`" + ` in config.toml instead.

## Keys

- ` + "`system`" + ` - system prompt for axis and bayt extraction
- ` + "`axis`" + ` - poem axis prompt ({{.AllBayts}}, {{.GhazalProse}})
- ` + "`bayt`" + ` - couplet prompt ({{.AffectList}}, {{.GhazalAxis}}, {{.BaytText}}, {{.BaytProse}})
- ` + "`repair_system`" + ` - system prompt for hint repair
- ` + "`repair`" + ` - hint repair prompt ({{.BaytText}}, {{.OldHint}})

Templates use Go text/template syntax.
`
	return os.WriteFile(path, []byte(content), 0o600)
}

func parsePromptSet(data []byte) (domain.PromptSet, error) {
	var set domain.PromptSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return domain.PromptSet{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := set.Validate(); err != nil {
		return domain.PromptSet{}, err
	}
	return set, nil
}
