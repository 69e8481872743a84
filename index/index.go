package index

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/vecgo/distance"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Epsilon is added to every L2 norm before dividing by it.
const Epsilon = 1e-10

// MaskedScore is the score given to records rejected by a filter.
const MaskedScore float32 = -1.0

type Record struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Vector   []float32         `json:"vector,omitempty"`
}

type Result struct {
	Record Record  `json:"record"`
	Score  float32 `json:"score"`
}

// Filter reports whether a record is eligible for a query.
type Filter func(r *Record) bool

// Where matches records whose metadata attribute equals value exactly.
func Where(key, value string) Filter {
	return func(r *Record) bool {
		v, ok := r.Metadata[key]
		return ok && v == value
	}
}

// And matches records accepted by every non-nil filter.
func And(filters ...Filter) Filter {
	return func(r *Record) bool {
		for _, f := range filters {
			if f != nil && !f(r) {
				return false
			}
		}
		return true
	}
}

// Index is an exact cosine-similarity index over a fixed set of records.
// It is immutable after Build and safe for concurrent queries.
type Index struct {
	records []Record
	matrix  []float32 // row-major, len(records) x dim, unit rows
	dim     int
}

// Build copies the records and their vectors, and precomputes the
// normalized matrix.
func Build(records []Record) (*Index, error) {
	idx := &Index{
		records: make([]Record, len(records)),
	}

	if len(records) == 0 {
		return idx, nil
	}

	dim := len(records[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("%w: record %q has an empty vector", ErrValidation, records[0].ID)
	}

	idx.dim = dim
	idx.matrix = make([]float32, len(records)*dim)

	for i, r := range records {
		if len(r.Vector) != dim {
			return nil, fmt.Errorf("%w: record %q has dimension %d, expected %d",
				ErrValidation, r.ID, len(r.Vector), dim)
		}

		r.Vector = slices.Clone(r.Vector)
		r.Metadata = cloneMetadata(r.Metadata)
		idx.records[i] = r

		normalizeInto(idx.matrix[i*dim:(i+1)*dim], r.Vector)
	}

	return idx, nil
}

// Len returns the number of records.
func (idx *Index) Len() int {
	return len(idx.records)
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (idx *Index) Dimension() int {
	return idx.dim
}

// Record returns a copy of the i-th record in insertion order.
func (idx *Index) Record(i int) Record {
	r := idx.records[i]
	r.Vector = slices.Clone(r.Vector)
	r.Metadata = cloneMetadata(r.Metadata)
	return r
}

// Query returns up to k records ordered by descending cosine similarity.
// Records rejected by filter never appear in the output.
func (idx *Index) Query(vector []float32, k int, filter Filter) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrValidation, k)
	}

	n := len(idx.records)
	if n == 0 {
		return []Result{}, nil
	}

	if len(vector) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			ErrDimensionMismatch, len(vector), idx.dim)
	}

	query := make([]float32, idx.dim)
	normalizeInto(query, vector)

	scores := make([]float32, n)
	eligible := make([]int, 0, n)
	for i := range idx.records {
		if filter != nil && !filter(&idx.records[i]) {
			scores[i] = MaskedScore
			continue
		}

		row := idx.matrix[i*idx.dim : (i+1)*idx.dim]
		scores[i] = clamp(distance.Dot(row, query))
		eligible = append(eligible, i)
	}

	slices.SortStableFunc(eligible, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	if k < len(eligible) {
		eligible = eligible[:k]
	}

	results := make([]Result, len(eligible))
	for i, pos := range eligible {
		results[i] = Result{
			Record: idx.Record(pos),
			Score:  scores[pos],
		}
	}

	return results, nil
}

// Normalize returns a unit-length copy of v using the same epsilon guard
// as the index.
func Normalize(v []float32) []float32 {
	dst := make([]float32, len(v))
	normalizeInto(dst, v)
	return dst
}

func normalizeInto(dst, src []float32) {
	// Summed in float64: the float32 square of a large component overflows.
	var sum float64
	for _, x := range src {
		sum += float64(x) * float64(x)
	}

	norm := math.Sqrt(sum)
	inv := 1 / (norm + Epsilon)
	for i, x := range src {
		dst[i] = float32(float64(x) * inv)
	}
}

func clamp(s float32) float32 {
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	case s != s: // NaN
		return MaskedScore
	}
	return s
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}

	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
