// Package bs25 implements BS25, a BM25-style document scorer that replaces
// exact term matching with an arbitrary similarity function.
//
// An Engine is used in three phases: DefineConfig, then AddDoc for every
// document, then Consolidate exactly once before Query.
package bs25

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	seterrors "github.com/setexpand/setexpand/internal/errors"
)

// DefaultLimit is the result count used when Query receives a non-positive limit.
const DefaultLimit = 10

const idfEpsilon = 1e-4

// SimFunc scores a document against a single query term, in [0,1].
type SimFunc func(doc, term string) float64

// Config holds the query terms and the BM25 tuning parameters.
type Config struct {
	Terms []string
	K1    float64
	B     float64
}

// Result is one ranked document. Documents with identical text are grouped
// into a single result listing every id that carried that text.
type Result struct {
	IDs   []string
	Score float64
	Doc   string
}

type document struct {
	id   string
	text string
	sims []float64
	len  int
}

// Engine scores documents against a fixed set of terms.
type Engine struct {
	sim SimFunc

	terms   []string
	k1      float64
	b       float64
	avgSims []float64
	avgLen  float64

	docs  []document
	ids   map[string]struct{}
	ready bool
	done  bool
}

// New creates an engine using sim to compare documents with terms.
func New(sim SimFunc) *Engine {
	return &Engine{sim: sim}
}

// DefineConfig sets the query terms and parameters and discards any
// previously added documents. K1 defaults to 0.5 when not positive and B is
// clamped to [0,1].
func (e *Engine) DefineConfig(cfg Config) error {
	if len(cfg.Terms) == 0 {
		return seterrors.NewInvalidInput("bs25: config terms must be a non-empty list")
	}

	e.Reset()
	e.terms = append([]string(nil), cfg.Terms...)
	e.k1 = cfg.K1
	if e.k1 <= 0 {
		e.k1 = 0.5
	}
	e.b = math.Max(0, math.Min(1, cfg.B))
	e.avgSims = make([]float64, len(e.terms))
	e.ready = true
	return nil
}

// AddDoc indexes doc under id.
func (e *Engine) AddDoc(doc, id string) error {
	if !e.ready {
		return seterrors.NewInvalidInput("bs25: config must be defined before adding documents")
	}
	if e.done {
		return seterrors.NewInvalidInput("bs25: documents cannot be added after consolidation")
	}
	if _, ok := e.ids[id]; ok {
		return seterrors.NewInvalidInput(fmt.Sprintf("bs25: id %q is already linked to a document", id))
	}

	d := document{
		id:   id,
		text: doc,
		sims: make([]float64, len(e.terms)),
		len:  utf8.RuneCountInString(doc),
	}
	for i, term := range e.terms {
		s := e.sim(doc, term)
		d.sims[i] = s
		e.avgSims[i] += s
	}
	e.avgLen += float64(d.len)

	e.docs = append(e.docs, d)
	e.ids[id] = struct{}{}
	return nil
}

// Consolidate computes the per-term mean similarity and the mean document
// length. It must be called exactly once, after at least one AddDoc.
func (e *Engine) Consolidate() error {
	if !e.ready {
		return seterrors.NewInvalidInput("bs25: config must be defined before consolidation")
	}
	if e.done {
		return seterrors.NewInvalidInput("bs25: engine already consolidated")
	}
	if len(e.docs) == 0 {
		return seterrors.NewInvalidInput("bs25: cannot consolidate without documents")
	}

	n := float64(len(e.docs))
	for i := range e.avgSims {
		e.avgSims[i] /= n
	}
	e.avgLen /= n
	e.done = true
	return nil
}

// Query returns up to limit results ordered by descending score. Ties keep
// insertion order.
func (e *Engine) Query(limit int) ([]Result, error) {
	if !e.done {
		return nil, seterrors.NewInvalidInput("bs25: consolidate must be called before query")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	idfs := make([]float64, len(e.avgSims))
	for i, avg := range e.avgSims {
		idfs[i] = math.Log(1/(avg+idfEpsilon)) + 1
	}

	byText := make(map[string]int)
	var results []Result
	for _, d := range e.docs {
		if i, ok := byText[d.text]; ok {
			results[i].IDs = append(results[i].IDs, d.id)
			continue
		}
		byText[d.text] = len(results)
		results = append(results, Result{
			IDs:   []string{d.id},
			Score: e.score(d, idfs),
			Doc:   d.text,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) score(d document, idfs []float64) float64 {
	norm := 1.0
	if e.avgLen > 0 {
		norm = 1 - e.b + e.b*float64(d.len)/e.avgLen
	}

	var sum float64
	for i, s := range d.sims {
		denom := s + e.k1*norm
		if denom == 0 {
			continue
		}
		sum += idfs[i] * (e.k1 + 1) * s / denom
	}
	return sum
}

// NumDocs returns the number of indexed documents.
func (e *Engine) NumDocs() int {
	return len(e.docs)
}

// Reset returns the engine to its unconfigured state.
func (e *Engine) Reset() {
	e.terms = nil
	e.k1 = 0
	e.b = 0
	e.avgSims = nil
	e.avgLen = 0
	e.docs = nil
	e.ids = make(map[string]struct{})
	e.ready = false
	e.done = false
}
