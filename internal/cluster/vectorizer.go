// Package cluster groups documents by text similarity and picks the
// reference document that anchors each cluster's extraction template.
package cluster

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/internal/fingerprint"
)

// Input pairs a document id with the fingerprint to vectorize.
type Input struct {
	ID        uuid.UUID
	Signature fingerprint.Signature
}

// Vector is one document's position in the batch's shared TF-IDF feature
// space. Values are L2-normalized, so cosine similarity is a dot product.
type Vector struct {
	ID     uuid.UUID
	Values []float64
}

// Vectorizer turns a batch of fingerprints into comparable TF-IDF vectors.
// Vectorization is batch-relative: the vocabulary is built from the batch,
// so changing membership changes every vector. Callers re-vectorize the
// whole batch on any membership change; vectors are never patched.
type Vectorizer struct {
	MaxFeatures int // cap on vocabulary size, most frequent terms win
	MinDocFreq  int // terms must appear in at least this many documents
	Bigrams     bool
}

// NewVectorizer returns a vectorizer with the tuning the clusterer expects:
// up to 500 features, unigrams and bigrams, terms in at least 2 documents.
func NewVectorizer() *Vectorizer {
	return &Vectorizer{MaxFeatures: 500, MinDocFreq: 2, Bigrams: true}
}

// FitTransform builds the shared vocabulary from the batch and returns one
// vector per input, in input order. Deterministic: vocabulary order is
// frequency-ranked with lexicographic tie-break.
func (v *Vectorizer) FitTransform(docs []Input) []Vector {
	tokenized := make([][]string, len(docs))
	for i, d := range docs {
		tokenized[i] = v.terms(d.Signature.CorpusText())
	}

	vocab := v.buildVocabulary(tokenized)

	n := len(docs)
	out := make([]Vector, n)
	for i, d := range docs {
		values := make([]float64, len(vocab.index))
		for _, term := range tokenized[i] {
			if j, ok := vocab.index[term]; ok {
				values[j]++
			}
		}
		// smoothed idf, then L2 normalization
		var norm float64
		for j := range values {
			if values[j] == 0 {
				continue
			}
			values[j] *= vocab.idf[j]
			norm += values[j] * values[j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range values {
				values[j] /= norm
			}
		}
		out[i] = Vector{ID: d.ID, Values: values}
	}
	return out
}

type vocabulary struct {
	index map[string]int
	idf   []float64
}

func (v *Vectorizer) buildVocabulary(tokenized [][]string) vocabulary {
	docFreq := make(map[string]int)
	totalFreq := make(map[string]int)
	for _, terms := range tokenized {
		seen := make(map[string]struct{})
		for _, t := range terms {
			totalFreq[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				docFreq[t]++
			}
		}
	}

	minDF := v.MinDocFreq
	if minDF < 1 {
		minDF = 1
	}
	candidates := make([]string, 0, len(docFreq))
	for t, df := range docFreq {
		if df >= minDF {
			candidates = append(candidates, t)
		}
	}
	// a tiny or fully heterogeneous batch can leave nothing above the
	// document-frequency floor; fall back to the full vocabulary
	if len(candidates) == 0 {
		for t := range docFreq {
			candidates = append(candidates, t)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		fi, fj := totalFreq[candidates[i]], totalFreq[candidates[j]]
		if fi != fj {
			return fi > fj
		}
		return candidates[i] < candidates[j]
	})
	if v.MaxFeatures > 0 && len(candidates) > v.MaxFeatures {
		candidates = candidates[:v.MaxFeatures]
	}
	sort.Strings(candidates)

	n := float64(len(tokenized))
	voc := vocabulary{index: make(map[string]int, len(candidates)), idf: make([]float64, len(candidates))}
	for i, t := range candidates {
		voc.index[t] = i
		voc.idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}
	return voc
}

// terms tokenizes into lowercase word unigrams and, when enabled, adjacent
// bigrams joined with a space.
func (v *Vectorizer) terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if !v.Bigrams {
		return words
	}
	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

// Cosine returns the cosine similarity of two vectors from the same batch.
func Cosine(a, b Vector) float64 {
	var dot float64
	for i := range a.Values {
		if i < len(b.Values) {
			dot += a.Values[i] * b.Values[i]
		}
	}
	return dot
}
