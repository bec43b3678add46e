package cluster

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/fingerprint"
)

// Member pairs a cluster member's id with its fingerprint for reference
// selection.
type Member struct {
	ID        uuid.UUID
	Signature fingerprint.Signature
}

// completenessScore rates how much extractable structure a document shows.
// Word count dominates, keyword hits and line density follow, a detected
// table adds a fixed bonus.
func completenessScore(s fingerprint.Signature) float64 {
	score := float64(s.TotalWords) * 0.4
	score += float64(len(s.Keywords)) * 10 * 0.3
	score += float64(s.TotalLines) / 10 * 0.2
	if s.HasTable {
		score += 100 * 0.1
	}
	return score
}

// SelectReference picks the most complete member to anchor the cluster's
// template. Ties break on lowest document id, so re-running selection on an
// unchanged cluster always yields the same reference.
func SelectReference(members []Member) (uuid.UUID, error) {
	if len(members) == 0 {
		return uuid.Nil, common.NewAppError("REFERENCE_EMPTY", "no members to select a reference from", common.ErrInvalidInput)
	}
	best := members[0]
	bestScore := completenessScore(best.Signature)
	for _, m := range members[1:] {
		score := completenessScore(m.Signature)
		if score > bestScore || score == bestScore && m.ID.String() < best.ID.String() {
			best, bestScore = m, score
		}
	}
	return best.ID, nil
}
