package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	ErrMissingColumn    = errors.New("missing column")
	ErrMissingEmbedding = errors.New("missing embedding column, run embed first")
)

const (
	colID        = "Id"
	colProductID = "ProductId"
	colUserID    = "UserId"
	colScore     = "Score"
	colSummary   = "Summary"
	colText      = "Text"
	colContent   = "content"
	colEmbedding = "embedding"
)

type table struct {
	reader  *csv.Reader
	columns map[string]int
	line    int
}

func openTable(r io.Reader, required ...string) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}

	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	return &table{reader: reader, columns: columns, line: 1}, nil
}

func (t *table) has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// next returns the next row, or io.EOF.
func (t *table) next() (func(name string) string, error) {
	row, err := t.reader.Read()
	if err != nil {
		return nil, err
	}

	t.line++
	return func(name string) string {
		i, ok := t.columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}, nil
}

func (t *table) score(value string) (int, error) {
	score, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("line %d: invalid score %q: %w", t.line, value, err)
	}
	return score, nil
}

// ReadRaw reads the source reviews export. Columns are located by header
// name, extra columns are ignored.
func ReadRaw(r io.Reader) ([]RawReview, error) {
	t, err := openTable(r, colID, colProductID, colUserID, colScore, colSummary, colText)
	if err != nil {
		return nil, err
	}

	var raws []RawReview
	for {
		get, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		score, err := t.score(get(colScore))
		if err != nil {
			return nil, err
		}

		raws = append(raws, RawReview{
			ID:        get(colID),
			ProductID: get(colProductID),
			UserID:    get(colUserID),
			Score:     score,
			Summary:   get(colSummary),
			Text:      get(colText),
		})
	}

	return raws, nil
}

func readReviews(r io.Reader, embedded bool) ([]Review, error) {
	t, err := openTable(r, colID, colProductID, colScore, colContent)
	if err != nil {
		return nil, err
	}

	if embedded && !t.has(colEmbedding) {
		return nil, ErrMissingEmbedding
	}

	var reviews []Review
	for {
		get, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		score, err := t.score(get(colScore))
		if err != nil {
			return nil, err
		}

		review := Review{
			ID:        get(colID),
			ProductID: get(colProductID),
			Score:     score,
			Content:   get(colContent),
		}

		if embedded {
			if err := json.Unmarshal([]byte(get(colEmbedding)), &review.Embedding); err != nil {
				return nil, fmt.Errorf("line %d: invalid embedding: %w", t.line, err)
			}
		}

		reviews = append(reviews, review)
	}

	return reviews, nil
}

// ReadClean reads reviews written by WriteClean. An embedding column, if
// present, is ignored.
func ReadClean(r io.Reader) ([]Review, error) {
	return readReviews(r, false)
}

// ReadEmbedded reads reviews written by WriteEmbedded.
func ReadEmbedded(r io.Reader) ([]Review, error) {
	return readReviews(r, true)
}

func writeReviews(w io.Writer, reviews []Review, embedded bool) error {
	writer := csv.NewWriter(w)

	header := []string{colID, colProductID, colScore, colContent}
	if embedded {
		header = append(header, colEmbedding)
	}

	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range reviews {
		row := []string{r.ID, r.ProductID, strconv.Itoa(r.Score), r.Content}

		if embedded {
			if len(r.Embedding) == 0 {
				return fmt.Errorf("review %s: %w", r.ID, ErrMissingEmbedding)
			}

			bs, err := json.Marshal(r.Embedding)
			if err != nil {
				return err
			}

			row = append(row, string(bs))
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteClean writes reviews without embeddings.
func WriteClean(w io.Writer, reviews []Review) error {
	return writeReviews(w, reviews, false)
}

// WriteEmbedded writes reviews with their embeddings as JSON arrays.
// Every review must carry an embedding.
func WriteEmbedded(w io.Writer, reviews []Review) error {
	return writeReviews(w, reviews, true)
}
