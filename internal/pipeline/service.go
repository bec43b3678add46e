// Package pipeline orchestrates the full flow: ingest a corpus, cluster it,
// anchor each cluster on a reference document, replay templates and collect
// results.
package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/constants"
	"github.com/joseph-ayodele/docmapper/internal/cluster"
	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/detect"
	"github.com/joseph-ayodele/docmapper/internal/entity"
	"github.com/joseph-ayodele/docmapper/internal/extract"
	"github.com/joseph-ayodele/docmapper/internal/fingerprint"
	"github.com/joseph-ayodele/docmapper/internal/pdf"
	"github.com/joseph-ayodele/docmapper/internal/repository"
	"github.com/joseph-ayodele/docmapper/internal/template"
)

// IngestStats summarizes one directory walk.
type IngestStats struct {
	Scanned   int
	Matched   int
	Succeeded int
	Failed    int
}

type Service struct {
	cfg       *common.Config
	docs      repository.DocumentRepository
	clusters  repository.ClusterRepository
	templates *template.Manager
	proc      *pdf.Processor
	engine    *extract.Engine
	detector  *detect.Detector
	logger    *slog.Logger
}

func NewService(
	cfg *common.Config,
	docs repository.DocumentRepository,
	clusters repository.ClusterRepository,
	templates *template.Manager,
	proc *pdf.Processor,
	engine *extract.Engine,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		docs:      docs,
		clusters:  clusters,
		templates: templates,
		proc:      proc,
		engine:    engine,
		detector:  detect.NewDetector(),
		logger:    logger,
	}
}

// IngestDirectory walks dir, reads every PDF's text layer and page geometry
// and persists the documents. A file that cannot be read is recorded with
// ERROR status and does not stop the walk.
func (s *Service) IngestDirectory(ctx context.Context, dir string) ([]*entity.Document, IngestStats, error) {
	var stats IngestStats
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if constants.MapExtToFormat(filepath.Ext(path)) != constants.PDF {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, common.WrapError(err, "walk "+dir)
	}
	sort.Strings(paths)

	var docs []*entity.Document
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return docs, stats, err
		}
		doc, err := s.ingestFile(ctx, path)
		if err != nil {
			stats.Failed++
			s.logger.Error("failed to ingest document", "path", path, "error", err)
			continue
		}
		stats.Succeeded++
		docs = append(docs, doc)
	}

	s.logger.Info("ingestion complete",
		"dir", dir,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed)
	return docs, stats, nil
}

func (s *Service) ingestFile(ctx context.Context, path string) (*entity.Document, error) {
	text, pages, err := s.proc.FullText(ctx, path)
	if err != nil {
		failed := &entity.Document{
			ID: uuid.New(), Path: path, Status: constants.DocumentStatusError,
		}
		if upsertErr := s.docs.Upsert(ctx, failed); upsertErr != nil {
			return nil, upsertErr
		}
		return nil, common.WrapError(common.ErrDocumentFailed, fmt.Sprintf("%s: %v", path, err))
	}

	doc := &entity.Document{
		ID:     uuid.New(),
		Path:   path,
		Text:   text,
		Pages:  pages,
		Status: constants.DocumentStatusProcessed,
	}
	for page := 0; page < pages; page++ {
		w, h, err := s.proc.PageSize(ctx, path, page)
		if err != nil {
			s.logger.Warn("could not read page size", "path", path, "page", page, "error", err)
			break
		}
		doc.PageSizes = append(doc.PageSizes, entity.PageSize{Width: w, Height: h})
	}

	if err := s.docs.Upsert(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// newVectorizer applies the configured vocabulary limits on top of the
// vectorizer defaults.
func (s *Service) newVectorizer() *cluster.Vectorizer {
	vec := cluster.NewVectorizer()
	if n := s.cfg.Clustering.MaxFeatures; n > 0 {
		vec.MaxFeatures = n
	}
	if n := s.cfg.Clustering.MinDocFreq; n > 0 {
		vec.MinDocFreq = n
	}
	return vec
}

// ClusterCorpus fingerprints and vectorizes every processed document,
// partitions the corpus and persists the assignment wholesale. Each cluster
// gets its reference selected in the same pass.
func (s *Service) ClusterCorpus(ctx context.Context) (cluster.Assignment, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return cluster.Assignment{}, err
	}

	signatures := make(map[uuid.UUID]fingerprint.Signature, len(docs))
	var inputs []cluster.Input
	for _, doc := range docs {
		if doc.Status == constants.DocumentStatusError {
			continue
		}
		sig := fingerprint.New(doc.Text)
		signatures[doc.ID] = sig
		inputs = append(inputs, cluster.Input{ID: doc.ID, Signature: sig})
	}

	vectors := s.newVectorizer().FitTransform(inputs)
	engine := cluster.NewEngine(s.logger)
	engine.StopDistance = s.cfg.Clustering.StopDistance
	engine.CollapseDistance = s.cfg.Clustering.CollapseDistance

	assignment, err := engine.Cluster(vectors)
	if err != nil {
		return cluster.Assignment{}, err
	}

	for i := range assignment.Clusters {
		c := &assignment.Clusters[i]
		members := make([]cluster.Member, len(c.Members))
		for j, id := range c.Members {
			members[j] = cluster.Member{ID: id, Signature: signatures[id]}
		}
		ref, err := cluster.SelectReference(members)
		if err != nil {
			return cluster.Assignment{}, err
		}
		c.ReferenceID = ref
	}

	if err := s.clusters.ReplaceAssignment(ctx, assignment.Clusters); err != nil {
		return cluster.Assignment{}, err
	}

	// reference changes invalidate existing template geometry
	for _, c := range assignment.Clusters {
		if _, err := s.templates.Get(c.ID); err == nil {
			if err := s.templates.SetReference(ctx, c.ID, c.ReferenceID); err != nil {
				return cluster.Assignment{}, err
			}
		}
	}

	s.logger.Info("corpus clustered",
		"documents", len(inputs),
		"clusters", len(assignment.Clusters))
	return assignment, nil
}

// EnsureTemplate creates an empty template for the cluster when none exists
// yet, anchored on the cluster's current reference.
func (s *Service) EnsureTemplate(ctx context.Context, clusterID string) (*template.Template, error) {
	if tpl, err := s.templates.Get(clusterID); err == nil {
		return tpl, nil
	}

	clusters, err := s.clusters.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range clusters {
		if c.ID == clusterID {
			return s.templates.Create(ctx, clusterID, c.ReferenceID)
		}
	}
	return nil, common.NewAppError("NOT_FOUND", "cluster "+clusterID+" not found", common.ErrNotFound)
}

// Template returns the cluster's template as a private clone.
func (s *Service) Template(clusterID string) (*template.Template, error) {
	return s.templates.Get(clusterID)
}

// ScanReference runs field type detection over the cluster reference's full
// text, yielding mapping suggestions in document order.
func (s *Service) ScanReference(ctx context.Context, clusterID string) ([]detect.Detection, error) {
	clusters, err := s.clusters.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range clusters {
		if c.ID != clusterID {
			continue
		}
		ref, err := s.docs.Get(ctx, c.ReferenceID)
		if err != nil {
			return nil, common.WrapError(common.ErrTemplateIntegrity,
				fmt.Sprintf("reference document for %s is gone: %v", clusterID, err))
		}
		return s.detector.ScanText(ref.Text), nil
	}
	return nil, common.NewAppError("NOT_FOUND", "cluster "+clusterID+" not found", common.ErrNotFound)
}

// SimilarDocuments finds corpus members whose fingerprints are close to the
// given document, without re-running full clustering.
func (s *Service) SimilarDocuments(ctx context.Context, docID uuid.UUID, threshold float64) ([]uuid.UUID, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, err
	}

	var inputs []cluster.Input
	for _, doc := range docs {
		if doc.Status == constants.DocumentStatusError {
			continue
		}
		inputs = append(inputs, cluster.Input{ID: doc.ID, Signature: fingerprint.New(doc.Text)})
	}
	vectors := s.newVectorizer().FitTransform(inputs)

	for _, v := range vectors {
		if v.ID == docID {
			return cluster.SimilarDocuments(v, vectors, threshold), nil
		}
	}
	return nil, common.NewAppError("NOT_FOUND", "document "+docID.String()+" not in corpus", common.ErrNotFound)
}

// ExtractCluster replays the cluster's template over every member. Member
// statuses advance to MAPPED on clean or partial extraction; wholly failed
// documents go to ERROR.
func (s *Service) ExtractCluster(ctx context.Context, clusterID string) (map[uuid.UUID]*entity.ExtractionResult, error) {
	tpl, err := s.templates.Get(clusterID)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.ListByCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, common.WrapError(common.ErrTemplateIntegrity,
			"cluster "+clusterID+" has a template but no documents")
	}

	clusters, err := s.clusters.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range clusters {
		if c.ID == clusterID && !c.Contains(tpl.ReferenceID) {
			return nil, common.WrapError(common.ErrTemplateIntegrity,
				"template for "+clusterID+" is anchored on a document outside the cluster")
		}
	}

	results, err := s.engine.ExtractBatch(ctx, tpl, docs)
	if err != nil {
		return results, err
	}

	for id, res := range results {
		status := constants.DocumentStatusMapped
		if res.Failed {
			status = constants.DocumentStatusError
		}
		if err := s.docs.UpdateStatus(ctx, id, status); err != nil {
			s.logger.Error("failed to update document status", "document_id", id, "error", err)
		}
	}
	return results, nil
}
