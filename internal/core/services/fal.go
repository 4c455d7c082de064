package services

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driving"
)

// Ensure FalService implements the interface.
var _ driving.FalService = (*FalService)(nil)

// Chooser picks an index in [0, n). *rand.Rand satisfies it.
type Chooser interface {
	IntN(n int) int
}

type globalChooser struct{}

func (globalChooser) IntN(n int) int { return rand.IntN(n) }

// FalAssembler composes the display text for a couplet.
type FalAssembler struct {
	lexicon domain.FalLexicon
	choose  Chooser
}

// NewFalAssembler creates an assembler. A nil chooser uses the global source.
func NewFalAssembler(lexicon domain.FalLexicon, choose Chooser) *FalAssembler {
	if choose == nil {
		choose = globalChooser{}
	}
	return &FalAssembler{lexicon: lexicon, choose: choose}
}

// Assemble returns the couplet followed by an affect line and a lens line
// when they apply. A row with neither affect nor lens gets the default marker.
func (a *FalAssembler) Assemble(row domain.BaytRow) string {
	blocks := []string{strings.TrimSpace(row.Text)}

	if line := a.affectLine(row.Affect); line != "" {
		blocks = append(blocks, line)
	}
	if line := a.lensLine(row.Lens); line != "" {
		blocks = append(blocks, line)
	}
	if len(row.Affect) == 0 && row.Lens == nil {
		blocks = append(blocks, a.lexicon.DefaultMarker)
	}

	return strings.Join(blocks, "\n")
}

func (a *FalAssembler) affectLine(affect []string) string {
	var parts []string
	for _, label := range affect {
		if opts := a.lexicon.AffectVariants[label]; len(opts) > 0 {
			parts = append(parts, a.pick(opts))
		}
	}
	return strings.Join(parts, " ")
}

// lensLine checks hard lenses first; an unknown lens yields no line.
func (a *FalAssembler) lensLine(lens *string) string {
	if lens == nil {
		return ""
	}
	if opts := a.lexicon.HardLenses[*lens]; len(opts) > 0 {
		return a.pick(opts)
	}
	if opts := a.lexicon.SoftLenses[*lens]; len(opts) > 0 {
		return a.pick(opts)
	}
	return ""
}

func (a *FalAssembler) pick(opts []string) string {
	return opts[a.choose.IntN(len(opts))]
}

// Retriever finds the dataset row nearest to a query vector.
type Retriever struct {
	rows    []domain.DatasetRow
	vectors [][]float32
	dims    int
}

// LoadRetriever reads the dataset and its embeddings. Every dataset row must
// have exactly one vector of a common dimension.
func LoadRetriever(ctx context.Context, store driven.RecordStore, datasetPath, embeddingsPath string) (*Retriever, error) {
	if !store.Exists(embeddingsPath) {
		return nil, fmt.Errorf("%w: %s (run 'yaar embed' first)", domain.ErrEmbeddingsNotFound, embeddingsPath)
	}

	rows, err := loadRecords[domain.DatasetRow](ctx, store, datasetPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	byKey := make(map[domain.UnitKey][]float32)
	err = eachRecord(ctx, store, embeddingsPath, func(rec domain.EmbeddingRecord) error {
		byKey[rec.Key()] = rec.Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	if len(byKey) != len(rows) {
		return nil, fmt.Errorf("%w: %d dataset rows but %d embeddings", domain.ErrInvalidInput, len(rows), len(byKey))
	}

	r := &Retriever{rows: rows, vectors: make([][]float32, len(rows))}
	for i, row := range rows {
		vec, ok := byKey[row.Key()]
		if !ok {
			return nil, fmt.Errorf("%w: no embedding for %s", domain.ErrInvalidInput, row.Key())
		}
		if i == 0 {
			r.dims = len(vec)
		} else if len(vec) != r.dims {
			return nil, fmt.Errorf("%w: %s has %d dimensions, want %d", domain.ErrInvalidInput, row.Key(), len(vec), r.dims)
		}
		r.vectors[i] = vec
	}
	return r, nil
}

// Len returns the number of indexed rows.
func (r *Retriever) Len() int { return len(r.rows) }

// Nearest returns the row with the highest cosine similarity to query.
// Ties go to the earlier row.
func (r *Retriever) Nearest(query []float32) (domain.DatasetRow, float64, error) {
	if len(r.rows) == 0 {
		return domain.DatasetRow{}, 0, fmt.Errorf("%w: empty dataset", domain.ErrNotFound)
	}
	if len(query) != r.dims {
		return domain.DatasetRow{}, 0, fmt.Errorf("%w: query has %d dimensions, want %d",
			domain.ErrInvalidInput, len(query), r.dims)
	}

	best, bestSim := 0, math.Inf(-1)
	for i, vec := range r.vectors {
		if sim := cosine(query, vec); sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return r.rows[best], bestSim, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// FalService answers a free-text question with the nearest couplet.
type FalService struct {
	store          driven.RecordStore
	embedder       driven.EmbeddingService
	assembler      *FalAssembler
	datasetPath    string
	embeddingsPath string

	mu        sync.Mutex
	retriever *Retriever
}

// NewFalService creates a fal service. embedder may be nil, in which case
// Fal reports the embedding service as unavailable once the index loads.
func NewFalService(
	store driven.RecordStore,
	embedder driven.EmbeddingService,
	assembler *FalAssembler,
	layout domain.Layout,
) *FalService {
	return &FalService{
		store:          store,
		embedder:       embedder,
		assembler:      assembler,
		datasetPath:    layout.Dataset(),
		embeddingsPath: layout.Embeddings(),
	}
}

// Fal embeds query, retrieves the nearest couplet and assembles its text.
func (s *FalService) Fal(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	retriever, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if s.embedder == nil {
		return "", fmt.Errorf("%w: configure one with 'yaar settings embedding'", domain.ErrEmbeddingUnavailable)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	row, _, err := retriever.Nearest(vec)
	if err != nil {
		return "", err
	}
	return s.assembler.Assemble(row.FalRow()), nil
}

func (s *FalService) load(ctx context.Context) (*Retriever, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retriever != nil {
		return s.retriever, nil
	}
	r, err := LoadRetriever(ctx, s.store, s.datasetPath, s.embeddingsPath)
	if err != nil {
		return nil, err
	}
	s.retriever = r
	return r, nil
}
