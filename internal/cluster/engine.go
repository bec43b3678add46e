package cluster

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/entity"
)

// Assignment is a total partition of the input documents: every input id
// appears in exactly one cluster. Clusters are ordered and labeled by the
// batch position of their earliest member, which makes repeated runs over
// the same vectors produce identical labels.
type Assignment struct {
	ByDocument map[uuid.UUID]string
	Clusters   []entity.Cluster
}

// Engine performs deterministic average-linkage agglomerative clustering
// over TF-IDF vectors. No randomized initialization: given the same vectors
// and parameters, the partition is the same on every run.
type Engine struct {
	// StopDistance is the linkage distance beyond which two clusters are
	// never merged. Mutually dissimilar corpora end as one cluster per
	// document instead of being forced together.
	StopDistance float64

	// CollapseDistance is the linkage distance under which clusters keep
	// merging even past the adaptive target count. Near-identical corpora
	// collapse to a single cluster.
	CollapseDistance float64

	logger *slog.Logger
}

// NewEngine returns an engine with the default distance thresholds.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{StopDistance: 0.95, CollapseDistance: 0.15, logger: logger}
}

// Cluster partitions the batch. An empty batch is a systemic error: there is
// no meaningful partial result for clustering.
func (e *Engine) Cluster(vectors []Vector) (Assignment, error) {
	n := len(vectors)
	if n == 0 {
		return Assignment{}, common.NewAppError("CLUSTER_EMPTY", "no documents to cluster", common.ErrInvalidInput)
	}
	if n == 1 {
		return e.assignment(vectors, [][]int{{0}}), nil
	}

	// pairwise cosine distance
	dist := make([][]float64, n)
	var sum float64
	var pairs int
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - Cosine(vectors[i], vectors[j])
			if d < 0 {
				d = 0
			}
			dist[i][j], dist[j][i] = d, d
			sum += 1 - d
			pairs++
		}
	}

	// adaptive cluster count from mean pairwise similarity: homogeneous
	// corpora aim low, heterogeneous corpora aim high
	avgSim := sum / float64(pairs)
	var target int
	if avgSim > 0.7 {
		target = n / 3
	} else {
		target = n / 2
	}
	if target < 1 {
		target = 1
	}
	e.logger.Debug("clustering batch", "documents", n, "avg_similarity", avgSim, "target_clusters", target)

	groups := make([][]int, n)
	for i := range groups {
		groups[i] = []int{i}
	}

	for len(groups) > 1 {
		bi, bj, best := -1, -1, 0.0
		for i := 0; i < len(groups); i++ {
			for j := i + 1; j < len(groups); j++ {
				d := averageLinkage(groups[i], groups[j], dist)
				if bi == -1 || d < best {
					bi, bj, best = i, j, d
				}
			}
		}
		if best >= e.StopDistance {
			break
		}
		if len(groups) <= target && best > e.CollapseDistance {
			break
		}
		groups[bi] = append(groups[bi], groups[bj]...)
		groups = append(groups[:bj], groups[bj+1:]...)
	}

	e.logger.Info("clustering complete", "documents", n, "clusters", len(groups))
	return e.assignment(vectors, groups), nil
}

func averageLinkage(a, b []int, dist [][]float64) float64 {
	var sum float64
	for _, i := range a {
		for _, j := range b {
			sum += dist[i][j]
		}
	}
	return sum / float64(len(a)*len(b))
}

// assignment orders clusters by earliest member and keeps members in batch
// order inside each cluster.
func (e *Engine) assignment(vectors []Vector, groups [][]int) Assignment {
	for gi := range groups {
		sort.Ints(groups[gi])
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	a := Assignment{ByDocument: make(map[uuid.UUID]string, len(vectors))}
	for gi, g := range groups {
		id := fmt.Sprintf("cluster_%d", gi)
		c := entity.Cluster{ID: id, Members: make([]uuid.UUID, len(g))}
		for i, idx := range g {
			c.Members[i] = vectors[idx].ID
			a.ByDocument[vectors[idx].ID] = id
		}
		a.Clusters = append(a.Clusters, c)
	}
	return a
}
