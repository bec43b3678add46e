package entity

import "github.com/google/uuid"

// Cluster is a set of documents judged similar enough to share one template.
// Members keep a stable representative ordering for display; membership
// itself is unordered. Every document belongs to exactly one cluster and a
// cluster always has exactly one reference chosen from its own members.
type Cluster struct {
	ID          string      `json:"id"`
	Members     []uuid.UUID `json:"members"`
	ReferenceID uuid.UUID   `json:"reference_id"`
}

// Contains reports whether the document is a member of the cluster.
func (c *Cluster) Contains(id uuid.UUID) bool {
	for _, m := range c.Members {
		if m == id {
			return true
		}
	}
	return false
}
