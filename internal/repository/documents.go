package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/constants"
	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/entity"
)

type DocumentRepository interface {
	Upsert(ctx context.Context, doc *entity.Document) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	List(ctx context.Context) ([]*entity.Document, error)
	ListByCluster(ctx context.Context, clusterID string) ([]*entity.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error
}

type documentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDocumentRepository(store *Store, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: store.DB, logger: logger}
}

func (r *documentRepository) Upsert(ctx context.Context, doc *entity.Document) error {
	sizes, err := json.Marshal(doc.PageSizes)
	if err != nil {
		return common.WrapError(err, "encode page sizes")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (id, path, text, pages, page_sizes, status, cluster_id, is_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			path = EXCLUDED.path,
			text = EXCLUDED.text,
			pages = EXCLUDED.pages,
			page_sizes = EXCLUDED.page_sizes,
			status = EXCLUDED.status,
			cluster_id = EXCLUDED.cluster_id,
			is_reference = EXCLUDED.is_reference`,
		doc.ID.String(), doc.Path, doc.Text, doc.Pages, string(sizes),
		string(doc.Status), doc.ClusterID, boolToInt(doc.Reference))
	if err != nil {
		r.logger.Error("failed to upsert document", "document_id", doc.ID, "error", err)
		return err
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, path, text, pages, page_sizes, status, cluster_id, is_reference
		FROM documents WHERE id = $1`, id.String())
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "document "+id.String()+" not found", common.ErrNotFound)
	}
	return doc, err
}

func (r *documentRepository) List(ctx context.Context) ([]*entity.Document, error) {
	return r.query(ctx, `
		SELECT id, path, text, pages, page_sizes, status, cluster_id, is_reference
		FROM documents ORDER BY id`)
}

func (r *documentRepository) ListByCluster(ctx context.Context, clusterID string) ([]*entity.Document, error) {
	return r.query(ctx, `
		SELECT id, path, text, pages, page_sizes, status, cluster_id, is_reference
		FROM documents WHERE cluster_id = $1 ORDER BY id`, clusterID)
}

func (r *documentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = $1 WHERE id = $2`, string(status), id.String())
	if err != nil {
		r.logger.Error("failed to update document status", "document_id", id, "error", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", "document "+id.String()+" not found", common.ErrNotFound)
	}
	return nil
}

func (r *documentRepository) query(ctx context.Context, q string, args ...any) ([]*entity.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		doc    entity.Document
		id     string
		sizes  string
		status string
		ref    int
	)
	if err := row.Scan(&id, &doc.Path, &doc.Text, &doc.Pages, &sizes, &status, &doc.ClusterID, &ref); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, common.WrapError(err, "parse document id")
	}
	doc.ID = parsed
	if err := json.Unmarshal([]byte(sizes), &doc.PageSizes); err != nil {
		return nil, common.WrapError(err, "decode page sizes")
	}
	doc.Status = constants.DocumentStatus(status)
	doc.Reference = ref != 0
	return &doc, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
