package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawCSV = `Id,ProductId,UserId,ProfileName,HelpfulnessNumerator,HelpfulnessDenominator,Score,Time,Summary,Text
1,B001,U1,alice,1,1,5,1303862400,Good Quality Dog Food,"I have bought several of the Vitality canned dog food products, and found them all to be of good quality."
2,B002,U2,bob,0,0,1,1346976000,Not as Advertised,Product arrived labeled as Jumbo Salted Peanuts
3,B001,U1,alice,1,1,4,1303862401,Still good,  Second review by the same user  
4,B003,U3,carol,0,0,3,1219017600,   ,Summary is blank
5,B004,U4,dan,0,0,2,1219017601,Cough Medicine,
`

func TestReadRawAndPrepare(t *testing.T) {
	assert := assert.New(t)

	raws, err := ReadRaw(strings.NewReader(rawCSV))
	require.NoError(t, err)
	assert.Len(raws, 5)
	assert.Equal("U1", raws[0].UserID)
	assert.Equal(5, raws[0].Score)

	reviews := Prepare(raws, DefaultPrepareOptions())
	require.Len(t, reviews, 2)

	// duplicate (B001, U1) keeps the last occurrence at its own position
	assert.Equal("2", reviews[0].ID)
	assert.Equal("Not as Advertised. Product arrived labeled as Jumbo Salted Peanuts", reviews[0].Content)
	assert.Equal("3", reviews[1].ID)
	assert.Equal("Still good. Second review by the same user", reviews[1].Content)
	assert.Equal(4, reviews[1].Score)
}

func TestPrepareSampleAndTruncate(t *testing.T) {
	assert := assert.New(t)

	raws := []RawReview{
		{ID: "1", ProductID: "p1", UserID: "u1", Score: 5, Summary: "好吃", Text: "巧克力味道很浓"},
		{ID: "2", ProductID: "p2", UserID: "u2", Score: 4, Summary: "ok", Text: "fine"},
		{ID: "3", ProductID: "p3", UserID: "u3", Score: 3, Summary: "meh", Text: "average"},
	}

	reviews := Prepare(raws, PrepareOptions{SampleSize: 2, MaxChars: 5})
	require.Len(t, reviews, 2)
	assert.Equal("好吃. 巧", reviews[0].Content)
	assert.Equal("ok. f", reviews[1].Content)

	all := Prepare(raws, PrepareOptions{})
	assert.Len(all, 3)
	assert.Equal("meh. average", all[2].Content)
}

// wordTokenizer treats every whitespace separated word as one token.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

func (wordTokenizer) Truncate(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ")
}

func TestPrepareMaxTokens(t *testing.T) {
	assert := assert.New(t)

	raws := []RawReview{
		{ID: "1", ProductID: "p1", UserID: "u1", Score: 5, Summary: "Great", Text: "my dog loves this food"},
		{ID: "2", ProductID: "p2", UserID: "u2", Score: 2, Summary: "Meh", Text: "stale"},
	}

	opts := PrepareOptions{MaxTokens: 3, Tokenizer: wordTokenizer{}}
	reviews := Prepare(raws, opts)
	require.Len(t, reviews, 2)
	assert.Equal("Great. my dog", reviews[0].Content)
	assert.Equal("Meh. stale", reviews[1].Content)

	// Without a tokenizer the limit does not apply.
	reviews = Prepare(raws, PrepareOptions{MaxTokens: 3})
	assert.Equal("Great. my dog loves this food", reviews[0].Content)

	report := CountTokens(reviews, wordTokenizer{})
	assert.Equal(TokenReport{Total: 8, Max: 6, Mean: 4}, report)

	assert.Equal(TokenReport{}, CountTokens(nil, wordTokenizer{}))
}

func TestScoreDistribution(t *testing.T) {
	dist := ScoreDistribution([]Review{{Score: 5}, {Score: 5}, {Score: 1}})
	assert.Equal(t, map[int]int{5: 2, 1: 1}, dist)
}

func TestEmbeddedRoundTrip(t *testing.T) {
	assert := assert.New(t)

	reviews := []Review{
		{ID: "1", ProductID: "B001", Score: 5, Content: "Great, \"really\" great", Embedding: []float32{0.1, -0.2, 3.4028235e38, 1e-7}},
		{ID: "2", ProductID: "B002", Score: 1, Content: "line\nbreak", Embedding: []float32{0.33333334, 0, -1, 0.7}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEmbedded(&buf, reviews))

	loaded, err := ReadEmbedded(&buf)
	require.NoError(t, err)
	assert.Equal(reviews, loaded)
}

func TestReadEmbeddedMissingColumn(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteClean(&buf, []Review{{ID: "1", ProductID: "p", Score: 3, Content: "c"}}))

	_, err := ReadEmbedded(bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrMissingEmbedding)

	reviews, err := ReadClean(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []Review{{ID: "1", ProductID: "p", Score: 3, Content: "c"}}, reviews)
}

func TestWriteEmbeddedRequiresVectors(t *testing.T) {
	var buf bytes.Buffer
	err := WriteEmbedded(&buf, []Review{{ID: "1", Content: "c"}})
	assert.ErrorIs(t, err, ErrMissingEmbedding)
}

func TestReadRawInvalidScore(t *testing.T) {
	input := "Id,ProductId,UserId,Score,Summary,Text\n1,p,u,five,s,t\n"

	_, err := ReadRaw(strings.NewReader(input))
	assert.ErrorContains(t, err, "line 2")
}

func TestReadRawMissingColumn(t *testing.T) {
	_, err := ReadRaw(strings.NewReader("Id,ProductId\n1,p\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}
