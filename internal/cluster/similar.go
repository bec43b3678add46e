package cluster

import "github.com/google/uuid"

// DefaultSimilarityThreshold is the cosine similarity at or above which a
// document counts as matching a reference.
const DefaultSimilarityThreshold = 0.7

// SimilarDocuments returns the ids of batch members whose cosine similarity
// to the reference vector meets the threshold, in batch order. The reference
// itself is skipped. Used to attach late-arriving documents to an existing
// cluster without re-clustering the corpus (the result is advisory; cluster
// membership still changes only through a full re-cluster).
func SimilarDocuments(ref Vector, batch []Vector, threshold float64) []uuid.UUID {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	var out []uuid.UUID
	for _, v := range batch {
		if v.ID == ref.ID {
			continue
		}
		if Cosine(ref, v) >= threshold {
			out = append(out, v.ID)
		}
	}
	return out
}
